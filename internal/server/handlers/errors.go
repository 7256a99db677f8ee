package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdwise/internal/backup"
	"github.com/mamadbah2/herdwise/internal/farm"
	"github.com/mamadbah2/herdwise/internal/service/farmsvc"
	"github.com/mamadbah2/herdwise/internal/service/reporting"
	farmsync "github.com/mamadbah2/herdwise/internal/sync"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, farmsvc.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, farmsvc.ErrDuplicateTag), errors.Is(err, farmsync.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, farmsvc.ErrInvalidArguments),
		errors.Is(err, farmsvc.ErrConfirmationRequired),
		errors.Is(err, farm.ErrUnknownAction),
		errors.Is(err, farm.ErrInvalidAction),
		errors.Is(err, backup.ErrMalformedBackup),
		errors.Is(err, reporting.ErrUnknownReport):
		return http.StatusBadRequest
	case errors.Is(err, reporting.ErrSheetsDisabled),
		errors.Is(err, reporting.ErrNotifierDisabled),
		errors.Is(err, reporting.ErrAssistantDisabled),
		errors.Is(err, farmsync.ErrNoUser):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, logger *zap.Logger, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, zap.Error(err))
	} else {
		logger.Warn(msg, zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
