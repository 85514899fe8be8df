package httpapi

import (
	"errors"
	"log"
	"net/http"

	dsapp "smart-sales-forecast/internal/application/dataset"
	fcapp "smart-sales-forecast/internal/application/forecast"
	datasetDomain "smart-sales-forecast/internal/domain/dataset"
	forecastDomain "smart-sales-forecast/internal/domain/forecast"

	"github.com/gin-gonic/gin"
)

type regionRequest struct {
	forecastRequest
	RegionColumn string `json:"region_column"`
}

func (s *Server) handleRegionSummary(c *gin.Context) {
	id := c.Param("id")
	var body regionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid body", "error_code": errCodeBadRequest})
		return
	}
	if body.DateColumn == "" || body.ValueColumn == "" || body.RegionColumn == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "date_column, value_column and region_column required", "error_code": errCodeBadRequest})
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
		log.Printf("region preprocess failed dataset=%s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "preprocess failed", "error_code": errCodeInternal})
		return
	}

	out, err := s.regionUC.Execute(c.Request.Context(), fcapp.RegionInput{
		Records:      pre.Records,
		RegionColumn: body.RegionColumn,
		Method:       method,
		Horizon:      horizon,
		EventDates:   parseEventDates(body.EventDates),
	})
	if err != nil {
		log.Printf("region summary failed dataset=%s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "region summary failed", "error_code": errCodeInternal})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"dataset_id":    id,
		"method":        string(method),
		"region_column": body.RegionColumn,
		"summary":       out.Summary,
	})
}
