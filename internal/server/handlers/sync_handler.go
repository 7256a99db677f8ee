package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdwise/internal/offline"
	"github.com/mamadbah2/herdwise/internal/service/farmsvc"
	farmsync "github.com/mamadbah2/herdwise/internal/sync"
)

// SyncService drives the offline queue.
type SyncService interface {
	SyncNow(ctx context.Context) (*farmsync.Result, error)
	SyncStatus(ctx context.Context) (farmsvc.SyncStatus, error)
	PendingActions(ctx context.Context) ([]offline.Action, error)
}

// ConnectivitySwitch lets callers override the detected network state.
type ConnectivitySwitch interface {
	Online() bool
	Set(online bool) bool
}

// SyncHandler exposes the sync engine and the offline queue over HTTP.
type SyncHandler struct {
	svc    SyncService
	conn   ConnectivitySwitch
	logger *zap.Logger
}

// NewSyncHandler constructs the HTTP handler adapter.
func NewSyncHandler(svc SyncService, conn ConnectivitySwitch, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{svc: svc, conn: conn, logger: logger}
}

type connectivityRequest struct {
	Online *bool `json:"online" binding:"required"`
}

// Sync runs one sync pass and returns its result.
func (h *SyncHandler) Sync(c *gin.Context) {
	result, err := h.svc.SyncNow(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "sync failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Status reports connectivity, queue depth and the last pass.
func (h *SyncHandler) Status(c *gin.Context) {
	status, err := h.svc.SyncStatus(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "failed reading sync status", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Queue lists the pending offline actions in replay order.
func (h *SyncHandler) Queue(c *gin.Context) {
	actions, err := h.svc.PendingActions(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "failed listing queue", err)
		return
	}
	if actions == nil {
		actions = []offline.Action{}
	}
	c.JSON(http.StatusOK, actions)
}

// SetConnectivity forces the online flag, e.g. for a device without a probe.
func (h *SyncHandler) SetConnectivity(c *gin.Context) {
	var req connectivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	changed := h.conn.Set(*req.Online)
	if changed {
		h.logger.Info("connectivity overridden", zap.Bool("online", *req.Online))
	}
	c.JSON(http.StatusOK, gin.H{"online": h.conn.Online(), "changed": changed})
}
