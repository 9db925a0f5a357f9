package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/timmy/mojiscan/internal/api/handler"
	"github.com/timmy/mojiscan/internal/api/middleware"
	"github.com/timmy/mojiscan/internal/config"
	"github.com/timmy/mojiscan/internal/logger"
	"github.com/timmy/mojiscan/internal/observe"
	"github.com/timmy/mojiscan/internal/service"
)

// RouterDeps bundles what the HTTP layer needs from the rest of the service.
type RouterDeps struct {
	ScanService *service.ScanService
	Cache       *service.ResultCache // nil when caching is disabled
	Metrics     *observe.Metrics
	Logger      *logger.Logger
	Provider    string
	Model       string
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(cfg *config.Config, deps RouterDeps) *gin.Engine {
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	log := deps.Logger
	if log == nil {
		log = logger.GetDefault()
	}

	r := gin.New()
	r.MaxMultipartMemory = cfg.Server.MaxUploadBytes()

	r.Use(gin.Recovery())
	r.Use(middleware.Telemetry(metrics))
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}))

	healthHandler := handler.NewHealthHandler(deps.Provider, deps.Model)
	pageHandler := handler.NewPageHandler()
	statsHandler := handler.NewStatsHandler(deps.Cache)
	scanHandler := handler.NewScanHandler(deps.ScanService, &handler.ScanHandlerConfig{
		MaxUploadBytes: cfg.Server.MaxUploadBytes(),
		AllowedFormats: cfg.Transcribe.AllowedFormats,
	})

	r.GET("/", pageHandler.Index)
	r.GET("/health", healthHandler.Health)

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/api/v1")
	{
		v1.POST("/scans", scanHandler.Scan)
		v1.POST("/score", scanHandler.Score)
		v1.GET("/stats", statsHandler.GetStats)
	}

	return r
}
