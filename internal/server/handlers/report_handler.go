package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdwise/internal/backup"
	"github.com/mamadbah2/herdwise/internal/domain/models"
	"github.com/mamadbah2/herdwise/internal/service/reporting"
)

// ReportService renders reports and alerts.
type ReportService interface {
	Records(kind reporting.Kind) ([]backup.Record, error)
	ExportToSheets(ctx context.Context, kind reporting.Kind) (int, error)
	Alerts(now time.Time) []reporting.Alert
}

// Assistant answers questions about the farm.
type Assistant interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// ReportHandler exposes reports, alerts and the assistant over HTTP.
type ReportHandler struct {
	reports   ReportService
	assistant Assistant
	logger    *zap.Logger
	now       func() time.Time
}

// NewReportHandler constructs the HTTP handler adapter.
func NewReportHandler(reports ReportService, assistant Assistant, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{reports: reports, assistant: assistant, logger: logger, now: time.Now}
}

type askRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// CSV downloads one report as CSV.
func (h *ReportHandler) CSV(c *gin.Context) {
	kind, err := reporting.ParseKind(c.Param("kind"))
	if err != nil {
		respondError(c, h.logger, "invalid report", err)
		return
	}

	records, err := h.reports.Records(kind)
	if err != nil {
		respondError(c, h.logger, "failed building report", err)
		return
	}

	filename := fmt.Sprintf("%s-%s.csv", kind, models.FormatDate(h.now()))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "text/csv")
	c.Status(http.StatusOK)
	if err := backup.WriteCSV(c.Writer, records); err != nil {
		h.logger.Error("failed writing csv", zap.Error(err))
	}
}

// ExportToSheets pushes one report to the configured spreadsheet.
func (h *ReportHandler) ExportToSheets(c *gin.Context) {
	kind, err := reporting.ParseKind(c.Param("kind"))
	if err != nil {
		respondError(c, h.logger, "invalid report", err)
		return
	}

	n, err := h.reports.ExportToSheets(c.Request.Context(), kind)
	if err != nil {
		respondError(c, h.logger, "failed exporting to sheets", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": kind, "records": n})
}

// Alerts lists the current farm alerts.
func (h *ReportHandler) Alerts(c *gin.Context) {
	alerts := h.reports.Alerts(h.now())
	if alerts == nil {
		alerts = []reporting.Alert{}
	}
	c.JSON(http.StatusOK, alerts)
}

// Ask forwards a question to the assistant.
func (h *ReportHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	answer, err := h.assistant.Ask(c.Request.Context(), req.Prompt)
	if err != nil {
		respondError(c, h.logger, "assistant failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}
