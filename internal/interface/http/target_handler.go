package httpapi

import (
	"errors"
	"log"
	"net/http"

	dsapp "smart-sales-forecast/internal/application/dataset"
	"smart-sales-forecast/internal/application/target"
	datasetDomain "smart-sales-forecast/internal/domain/dataset"
	forecastDomain "smart-sales-forecast/internal/domain/forecast"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleTargetAnalysis(c *gin.Context) {
	id := c.Param("id")
	var body struct {
		Target     float64 `json:"target"`
		PeriodMode string  `json:"period_mode"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body", "error_code": errCodeBadRequest})
		return
	}

	mode, err := forecastDomain.ParsePeriodMode(body.PeriodMode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}

	d, err := s.dataRepo.GetDataset(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "dataset not found", "error_code": errCodeDatasetNotFound})
		return
	}
	run, err := s.dataRepo.LatestForecastRun(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, forecastDomain.ErrNoForecast) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "run a forecast before analyzing a target", "error_code": errCodeForecastNotReady})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "load forecast failed", "error_code": errCodeInternal})
		return
	}

	// 以預測當時的欄位與過濾條件重建實際序列。
	pre, err := s.preprocessUC.Execute(c.Request.Context(), dsapp.PreprocessInput{
		Table:       d.Table,
		DateColumn:  run.DateColumn,
		ValueColumn: run.ValueColumn,
		Filters:     run.Filters,
	})
	if err != nil {
		if datasetDomain.IsColumnError(err) || errors.Is(err, datasetDomain.ErrNoUsableRows) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "stored forecast no longer matches dataset", "error_code": errCodeForecastNotReady})
			return
		}
		log.Printf("target preprocess failed dataset=%s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "preprocess failed", "error_code": errCodeInternal})
		return
	}

	out, err := s.targetUC.Execute(c.Request.Context(), target.Input{
		Series:   pre.Series,
		Forecast: run.Result,
		Target:   body.Target,
		Mode:     mode,
	})
	if err != nil {
		if forecastDomain.IsInvalidTarget(err) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "target must be greater than zero", "error_code": errCodeInvalidTarget})
			return
		}
		log.Printf("target analysis failed dataset=%s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "target analysis failed", "error_code": errCodeInternal})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"dataset_id":     id,
		"period_mode":    string(mode),
		"metrics":        out.Metrics,
		"metric_rows":    s.reportsUC.MetricsRows(out.Metrics),
		"recommendation": out.Recommendation,
	})
}
