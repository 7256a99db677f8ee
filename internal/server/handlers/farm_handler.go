package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdwise/internal/backup"
	"github.com/mamadbah2/herdwise/internal/domain/models"
	"github.com/mamadbah2/herdwise/internal/farm"
	"github.com/mamadbah2/herdwise/internal/service/farmsvc"
)

// FarmService is the application layer the farm routes drive.
type FarmService interface {
	Snapshot() models.Snapshot
	Stats() models.Stats
	Dispatch(ctx context.Context, action farm.Action) (models.Snapshot, error)
	AddAnimal(ctx context.Context, animal models.Animal) (models.Animal, error)
	SellAnimal(ctx context.Context, id string, price decimal.Decimal, date string) (models.Animal, error)
	MarkDeceased(ctx context.Context, id, reason, date string) (models.Animal, error)
	Offspring(id string) ([]models.Animal, error)
	Ancestors(id string) ([]models.Animal, error)
	Suggestions(id string) ([]string, error)
	CampCapacity(id string) (farm.CampCapacity, error)
	LogInventoryUsage(ctx context.Context, id string, amount float64, reason, date string) (models.InventoryItem, error)
	Export() backup.Backup
	Restore(ctx context.Context, b backup.Backup, confirm bool) (models.Snapshot, error)
}

var _ FarmService = (*farmsvc.Service)(nil)

// FarmHandler exposes the farm state and its mutations over HTTP.
type FarmHandler struct {
	svc    FarmService
	logger *zap.Logger
}

// NewFarmHandler constructs the HTTP handler adapter.
func NewFarmHandler(svc FarmService, logger *zap.Logger) *FarmHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FarmHandler{svc: svc, logger: logger}
}

type sellRequest struct {
	Price decimal.Decimal `json:"price"`
	Date  string          `json:"date"`
}

type deceasedRequest struct {
	Reason string `json:"reason"`
	Date   string `json:"date"`
}

type usageRequest struct {
	Amount float64 `json:"amount" binding:"required"`
	Reason string  `json:"reason"`
	Date   string  `json:"date"`
}

// Snapshot returns the whole farm state.
func (h *FarmHandler) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Snapshot())
}

// Stats returns the derived statistics.
func (h *FarmHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Stats())
}

// Dispatch applies a raw action envelope.
func (h *FarmHandler) Dispatch(c *gin.Context) {
	var env farm.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		h.logger.Warn("invalid action envelope", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	action, err := env.Decode()
	if err != nil {
		respondError(c, h.logger, "failed decoding action", err)
		return
	}

	snap, err := h.svc.Dispatch(c.Request.Context(), action)
	if err != nil {
		respondError(c, h.logger, "failed dispatching action", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// AddAnimal registers a new animal.
func (h *FarmHandler) AddAnimal(c *gin.Context) {
	var animal models.Animal
	if err := c.ShouldBindJSON(&animal); err != nil {
		h.logger.Warn("invalid animal payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	created, err := h.svc.AddAnimal(c.Request.Context(), animal)
	if err != nil {
		respondError(c, h.logger, "failed adding animal", err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// SellAnimal records the sale of an animal.
func (h *FarmHandler) SellAnimal(c *gin.Context) {
	var req sellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	animal, err := h.svc.SellAnimal(c.Request.Context(), c.Param("id"), req.Price, req.Date)
	if err != nil {
		respondError(c, h.logger, "failed selling animal", err)
		return
	}
	c.JSON(http.StatusOK, animal)
}

// MarkDeceased records the death of an animal.
func (h *FarmHandler) MarkDeceased(c *gin.Context) {
	var req deceasedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	animal, err := h.svc.MarkDeceased(c.Request.Context(), c.Param("id"), req.Reason, req.Date)
	if err != nil {
		respondError(c, h.logger, "failed marking animal deceased", err)
		return
	}
	c.JSON(http.StatusOK, animal)
}

// Offspring lists the descendants of an animal.
func (h *FarmHandler) Offspring(c *gin.Context) {
	h.lineage(c, h.svc.Offspring)
}

// Ancestors lists the ancestors of an animal.
func (h *FarmHandler) Ancestors(c *gin.Context) {
	h.lineage(c, h.svc.Ancestors)
}

func (h *FarmHandler) lineage(c *gin.Context, lookup func(string) ([]models.Animal, error)) {
	animals, err := lookup(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "failed reading pedigree", err)
		return
	}
	c.JSON(http.StatusOK, animals)
}

// Suggestions returns management hints for an animal.
func (h *FarmHandler) Suggestions(c *gin.Context) {
	hints, err := h.svc.Suggestions(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "failed building suggestions", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": hints})
}

// CampCapacity reports the grazing load of a camp.
func (h *FarmHandler) CampCapacity(c *gin.Context) {
	capacity, err := h.svc.CampCapacity(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "failed computing camp capacity", err)
		return
	}
	c.JSON(http.StatusOK, capacity)
}

// LogInventoryUsage consumes stock.
func (h *FarmHandler) LogInventoryUsage(c *gin.Context) {
	var req usageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	item, err := h.svc.LogInventoryUsage(c.Request.Context(), c.Param("id"), req.Amount, req.Reason, req.Date)
	if err != nil {
		respondError(c, h.logger, "failed logging inventory usage", err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// ExportBackup downloads the full farm backup.
func (h *FarmHandler) ExportBackup(c *gin.Context) {
	b := h.svc.Export()
	data, err := backup.Marshal(b)
	if err != nil {
		respondError(c, h.logger, "failed encoding backup", err)
		return
	}

	filename := fmt.Sprintf("farm-backup-%s.json", models.FormatDate(b.ExportDate))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/json", data)
}

// RestoreBackup replaces the farm with an uploaded backup. The request must
// carry confirm=true.
func (h *FarmHandler) RestoreBackup(c *gin.Context) {
	confirm, _ := strconv.ParseBool(c.Query("confirm"))

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read request body"})
		return
	}

	b, err := backup.Parse(raw)
	if err != nil {
		respondError(c, h.logger, "invalid backup", err)
		return
	}

	snap, err := h.svc.Restore(c.Request.Context(), b, confirm)
	if err != nil {
		respondError(c, h.logger, "failed restoring backup", err)
		return
	}
	c.JSON(http.StatusOK, snap.Stats)
}
