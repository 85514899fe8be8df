package httpapi

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	dsapp "smart-sales-forecast/internal/application/dataset"
	fcapp "smart-sales-forecast/internal/application/forecast"
	datasetDomain "smart-sales-forecast/internal/domain/dataset"
	forecastDomain "smart-sales-forecast/internal/domain/forecast"

	"github.com/gin-gonic/gin"
)

type forecastRequest struct {
	DateColumn  string            `json:"date_column"`
	ValueColumn string            `json:"value_column"`
	Filters     map[string]string `json:"filters"`
	Method      string            `json:"method"`
	Horizon     string            `json:"horizon"`
	CustomDays  int               `json:"custom_days"`
	EventDates  []string          `json:"event_dates"`
}

func (s *Server) handleForecastRun(c *gin.Context) {
	id := c.Param("id")
	var body forecastRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body", "error_code": errCodeBadRequest})
		return
	}
	if body.DateColumn == "" || body.ValueColumn == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "date_column and value_column required", "error_code": errCodeBadRequest})
		return
	}

	d, err := s.dataRepo.GetDataset(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "dataset not found", "error_code": errCodeDatasetNotFound})
		return
	}

	methodStr := body.Method
	if methodStr == "" {
		methodStr = s.cfg.Forecast.DefaultMethod
	}
	method, err := forecastDomain.ParseMethod(methodStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}

	horizon, err := s.parseHorizon(body.Horizon, body.CustomDays)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}

	pre, err := s.preprocessUC.Execute(c.Request.Context(), dsapp.PreprocessInput{
		Table:       d.Table,
		DateColumn:  body.DateColumn,
		ValueColumn: body.ValueColumn,
		Filters:     body.Filters,
	})
	if err != nil {
		if datasetDomain.IsColumnError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
			return
		}
		if errors.Is(err, datasetDomain.ErrNoUsableRows) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "error": "no usable rows after cleaning", "error_code": errCodeForecastUnavailable})
			return
		}
		log.Printf("preprocess failed dataset=%s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "preprocess failed", "error_code": errCodeInternal})
		return
	}

	res, err := s.forecastUC.Run(c.Request.Context(), fcapp.RunInput{
		Series:     pre.Series,
		Method:     method,
		Horizon:    horizon,
		EventDates: parseEventDates(body.EventDates),
	})
	if err != nil {
		if forecastDomain.IsInsufficientHistory(err) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "error": "not enough history to forecast", "error_code": errCodeForecastUnavailable})
			return
		}
		log.Printf("forecast failed dataset=%s method=%s: %v", id, method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "forecast failed", "error_code": errCodeInternal})
		return
	}

	pattern := fcapp.DetectPattern(pre.Series)
	run := forecastDomain.Run{
		DatasetID:   id,
		Method:      method,
		DateColumn:  body.DateColumn,
		ValueColumn: body.ValueColumn,
		Filters:     body.Filters,
		Pattern:     pattern,
		Result:      res,
		CreatedAt:   time.Now(),
	}
	if err := s.dataRepo.SaveForecastRun(c.Request.Context(), run); err != nil {
		log.Printf("save forecast run failed dataset=%s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "save forecast failed", "error_code": errCodeInternal})
		return
	}

	log.Printf("forecast done dataset=%s method=%s days=%d dropped_rows=%d", id, method, res.Days, pre.Dropped)

	if res.Empty() {
		c.JSON(http.StatusOK, gin.H{
			"success":       true,
			"dataset_id":    id,
			"method":        string(method),
			"message":       "no remaining days to forecast in the selected period",
			"last_date":     res.LastDate.Format(dateLayout),
			"forecast_days": 0,
			"pattern":       pattern,
			"explanation":   fcapp.MethodExplanation(method),
			"dropped_rows":  pre.Dropped,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"dataset_id":         id,
		"method":             string(method),
		"last_date":          res.LastDate.Format(dateLayout),
		"forecast_days":      res.Days,
		"pattern":            pattern,
		"explanation":        fcapp.MethodExplanation(method),
		"dropped_rows":       pre.Dropped,
		"future":             res.Future,
		"full":               res.Full,
		"forecast_chart":     s.reportsUC.BuildForecastChart(res),
		"actual_vs_forecast": s.reportsUC.BuildActualVsForecast(pre.Series, res),
		"daily_actuals":      s.reportsUC.BuildDailyActuals(pre.Series),
		"daily_table":        s.reportsUC.BuildDailyTable(res),
	})
}

func (s *Server) parseHorizon(policy string, customDays int) (forecastDomain.Horizon, error) {
	if policy == "" {
		policy = s.cfg.Forecast.DefaultHorizon
	}
	h := forecastDomain.Horizon{Policy: forecastDomain.HorizonPolicy(policy), CustomDays: customDays}
	switch h.Policy {
	case forecastDomain.HorizonMonthEnd, forecastDomain.HorizonQuarterEnd, forecastDomain.HorizonYearEnd, "":
		return h, nil
	case forecastDomain.HorizonCustom:
		if customDays <= 0 {
			return h, fmt.Errorf("custom horizon requires positive custom_days")
		}
		return h, nil
	default:
		return h, fmt.Errorf("unknown horizon %q", policy)
	}
}

func (s *Server) handleForecastExport(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.dataRepo.GetDataset(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "dataset not found", "error_code": errCodeDatasetNotFound})
		return
	}
	run, err := s.dataRepo.LatestForecastRun(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, forecastDomain.ErrNoForecast) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "run a forecast before exporting", "error_code": errCodeForecastNotReady})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "load forecast failed", "error_code": errCodeInternal})
		return
	}

	csvBody, err := s.reportsUC.ExportForecastCSV(run.Result)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "export failed", "error_code": errCodeInternal})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=forecast_%s.csv", id))
	c.Data(http.StatusOK, "text/csv", []byte(csvBody))
}
