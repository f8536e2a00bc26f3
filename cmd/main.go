package main

import (
	"context"
	"fmt"
	"os"

	"github.com/visiblelabs/aivis-backend/internal/config"
	"github.com/visiblelabs/aivis-backend/internal/data/db"
	"github.com/visiblelabs/aivis-backend/internal/data/repos"
	httpserver "github.com/visiblelabs/aivis-backend/internal/http"
	httpH "github.com/visiblelabs/aivis-backend/internal/http/handlers"
	"github.com/visiblelabs/aivis-backend/internal/notify"
	"github.com/visiblelabs/aivis-backend/internal/platform/logger"
	"github.com/visiblelabs/aivis-backend/internal/services"
	"github.com/visiblelabs/aivis-backend/internal/sweep"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	log.Info("Loading configuration from main...")
	cfg := config.Load(log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	scanRepo := repos.NewScanRepo(thePG, log)
	selectedPageRepo := repos.NewSelectedPageRepo(thePG, log)
	recommendationRepo := repos.NewRecommendationRepo(thePG, log)
	userProgressRepo := repos.NewUserProgressRepo(thePG, log)
	userModeRepo := repos.NewUserModeRepo(thePG, log)
	validationRecordRepo := repos.NewValidationRecordRepo(thePG, log)

	// Notification bus (optional; the engine runs without redis)
	var modeBus notify.ModeBus
	if cfg.RedisAddr != "" {
		modeBus, err = notify.NewModeBus(log)
		if err != nil {
			log.Warn("Could not init redis mode bus, mode events will not be published", "error", err)
			modeBus = nil
		}
	}

	// Services
	log.Info("Setting up Services from main...")
	progressService := services.NewProgressService(thePG, log, recommendationRepo, userProgressRepo)
	classifierService := services.NewClassifierService(thePG, log, cfg, recommendationRepo, userProgressRepo)
	lifecycleService := services.NewLifecycleService(thePG, log, recommendationRepo, progressService)
	schedulerService := services.NewSchedulerService(thePG, log, cfg, recommendationRepo, userProgressRepo)
	var notifier services.ModeNotifier
	if modeBus != nil {
		notifier = modeBus
	}
	modeService := services.NewModeService(thePG, log, cfg, userModeRepo, notifier)
	validationService := services.NewValidationService(thePG, log, cfg, scanRepo, recommendationRepo, validationRecordRepo, progressService)
	recommendationService := services.NewRecommendationService(thePG, log, recommendationRepo, userProgressRepo, schedulerService)
	scanIntakeService := services.NewScanIntakeService(thePG, log, scanRepo, selectedPageRepo, classifierService, modeService, validationService)

	// Background sweep
	if cfg.SweepEnabled {
		log.Info("Starting replacement sweeper", "interval", cfg.SweepInterval)
		sweeper := sweep.NewSweeper(log, userProgressRepo, schedulerService, cfg.SweepInterval)
		sweeper.Start(context.Background())
	}

	// Handlers
	log.Info("Setting up handlers from main...")
	scanHandler := httpH.NewScanHandler(scanIntakeService, recommendationService, schedulerService)
	recommendationHandler := httpH.NewRecommendationHandler(recommendationService, lifecycleService)
	modeHandler := httpH.NewModeHandler(modeService)
	healthHandler := httpH.NewHealthHandler()

	// Router
	log.Info("Setting up router from main...")
	server := httpserver.NewServer(httpserver.RouterConfig{
		Log:                   log,
		ScanHandler:           scanHandler,
		RecommendationHandler: recommendationHandler,
		ModeHandler:           modeHandler,
		HealthHandler:         healthHandler,
	})

	fmt.Printf("Server listening on :%s\n", cfg.HTTPPort)
	if err := server.Run(":" + cfg.HTTPPort); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
