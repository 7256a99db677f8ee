package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/herdwise/internal/server/handlers"
)

// Handlers groups the HTTP adapters mounted by the router.
type Handlers struct {
	Farm    *handlers.FarmHandler
	Sync    *handlers.SyncHandler
	Reports *handlers.ReportHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/snapshot", h.Farm.Snapshot)
		api.GET("/stats", h.Farm.Stats)
		api.POST("/actions", h.Farm.Dispatch)

		api.POST("/animals", h.Farm.AddAnimal)
		api.POST("/animals/:id/sell", h.Farm.SellAnimal)
		api.POST("/animals/:id/deceased", h.Farm.MarkDeceased)
		api.GET("/animals/:id/offspring", h.Farm.Offspring)
		api.GET("/animals/:id/ancestors", h.Farm.Ancestors)
		api.GET("/animals/:id/suggestions", h.Farm.Suggestions)
		api.GET("/camps/:id/capacity", h.Farm.CampCapacity)
		api.POST("/inventory/:id/usage", h.Farm.LogInventoryUsage)

		api.GET("/backup", h.Farm.ExportBackup)
		api.POST("/backup", h.Farm.RestoreBackup)

		api.POST("/sync", h.Sync.Sync)
		api.GET("/sync/status", h.Sync.Status)
		api.GET("/queue", h.Sync.Queue)
		api.PUT("/connectivity", h.Sync.SetConnectivity)

		api.GET("/reports/:kind", h.Reports.CSV)
		api.POST("/reports/:kind/sheets", h.Reports.ExportToSheets)
		api.GET("/alerts", h.Reports.Alerts)
		api.POST("/assistant", h.Reports.Ask)
	}

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
