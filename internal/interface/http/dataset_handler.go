package httpapi

import (
	"log"
	"net/http"
	"time"

	dsapp "smart-sales-forecast/internal/application/dataset"
	datasetDomain "smart-sales-forecast/internal/domain/dataset"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (s *Server) handleUploadDataset(c *gin.Context) {
	maxBytes := s.cfg.Upload.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file field required", "error_code": errCodeBadRequest})
		return
	}
	defer file.Close()

	out, err := s.parseUC.Execute(c.Request.Context(), dsapp.ParseInput{
		Filename: header.Filename,
		Reader:   file,
	})
	if err != nil {
		log.Printf("dataset parse failed filename=%s: %v", header.Filename, err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "error_code": errCodeBadRequest})
		return
	}

	d := datasetDomain.Dataset{
		ID:         uuid.NewString(),
		Name:       header.Filename,
		UploadedAt: time.Now(),
		Table:      out.Table,
	}
	if err := s.dataRepo.SaveDataset(c.Request.Context(), d); err != nil {
		log.Printf("dataset save failed id=%s: %v", d.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "save dataset failed", "error_code": errCodeInternal})
		return
	}

	previewRows := s.cfg.Upload.PreviewRows
	if previewRows <= 0 {
		previewRows = 5
	}
	if previewRows > len(out.Table.Rows) {
		previewRows = len(out.Table.Rows)
	}

	log.Printf("dataset uploaded id=%s name=%s rows=%d uploaded_by=%s", d.ID, d.Name, out.RowCount, currentUserID(c))
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"dataset_id": d.ID,
		"name":       d.Name,
		"row_count":  out.RowCount,
		"columns":    out.Table.Headers,
		"preview":    out.Table.Rows[:previewRows],
	})
}

func (s *Server) handleDatasetColumns(c *gin.Context) {
	id := c.Param("id")
	d, err := s.dataRepo.GetDataset(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "dataset not found", "error_code": errCodeDatasetNotFound})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"dataset_id": d.ID,
		"name":       d.Name,
		"columns":    d.Table.Headers,
		"row_count":  len(d.Table.Rows),
	})
}
