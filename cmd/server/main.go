package main

import (
	"flag"
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ShaniStaretz-ai/FinalProject/internal/api"
	adminapi "github.com/ShaniStaretz-ai/FinalProject/internal/api/admin"
	authapi "github.com/ShaniStaretz-ai/FinalProject/internal/api/auth"
	modelsapi "github.com/ShaniStaretz-ai/FinalProject/internal/api/models"
	"github.com/ShaniStaretz-ai/FinalProject/internal/artifact"
	"github.com/ShaniStaretz-ai/FinalProject/internal/pkg/config"
	"github.com/ShaniStaretz-ai/FinalProject/internal/pkg/logger"
	"github.com/ShaniStaretz-ai/FinalProject/internal/pkg/redis"
	"github.com/ShaniStaretz-ai/FinalProject/internal/repository"
	"github.com/ShaniStaretz-ai/FinalProject/internal/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting Trainer API")

	db, err := repository.Open(cfg.Database.Path)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	store, err := artifact.NewStore(cfg.Storage.ModelsDir)
	if err != nil {
		zap.L().Fatal("Failed to initialize artifact store", zap.Error(err))
	}

	// Redis is optional: without it per-user training limits are disabled.
	if cfg.Redis.Enabled {
		if err := redis.Init(cfg); err != nil {
			zap.L().Warn("Redis initialization failed, training limits disabled", zap.Error(err))
		} else {
			defer redis.Close()
		}
	}

	users := repository.NewUserRepository(db)
	modelsRepo := repository.NewModelRepository(db)

	authService := service.NewAuthService(users, cfg.Costs.DefaultTokens)
	if err := authService.EnsureAdmin(cfg.Admin.Email, cfg.Admin.Password); err != nil {
		zap.L().Error("Failed to bootstrap admin user", zap.Error(err))
	}

	lifecycle := service.NewLifecycleService(
		users, modelsRepo, store,
		cfg.Costs.Train, cfg.Costs.Predict,
		cfg.Training.MaxConcurrent,
	)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	api.SetupRouter(r,
		authapi.NewHandler(authService),
		modelsapi.NewHandler(lifecycle, cfg.Training.MaxUploadBytes),
		adminapi.NewHandler(users, lifecycle),
	)

	logger.Info("Server listening",
		zap.String("addr", cfg.GetServerAddr()),
		zap.String("database", cfg.Database.Path),
		zap.String("models_dir", cfg.Storage.ModelsDir))

	if err := r.Run(cfg.GetServerAddr()); err != nil {
		zap.L().Fatal("Failed to start server", zap.Error(err))
	}
}
