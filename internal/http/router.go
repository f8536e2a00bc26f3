package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/visiblelabs/aivis-backend/internal/http/handlers"
	httpMW "github.com/visiblelabs/aivis-backend/internal/http/middleware"
	"github.com/visiblelabs/aivis-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	ScanHandler           *httpH.ScanHandler
	RecommendationHandler *httpH.RecommendationHandler
	ModeHandler           *httpH.ModeHandler
	HealthHandler         *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.RequestID())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Scans
		if cfg.ScanHandler != nil {
			api.POST("/scans", cfg.ScanHandler.IntakeScan)
			api.GET("/scans/:id/recommendations", cfg.ScanHandler.ListRecommendations)
			api.POST("/scans/:id/replacement", cfg.ScanHandler.TriggerReplacement)
		}

		// Recommendation lifecycle
		if cfg.RecommendationHandler != nil {
			api.GET("/recommendations/:id", cfg.RecommendationHandler.GetRecommendation)
			api.POST("/recommendations/:id/implemented", cfg.RecommendationHandler.MarkImplemented)
			api.POST("/recommendations/:id/skip", cfg.RecommendationHandler.Skip)
			api.POST("/detections/:id/confirm", cfg.RecommendationHandler.ConfirmDetection)
		}

		// Strategy mode
		if cfg.ModeHandler != nil {
			api.GET("/users/:id/mode", cfg.ModeHandler.GetMode)
		}
	}

	return r
}
