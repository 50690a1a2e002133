package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/westtrac/parts-insights/internal/api"
	"github.com/westtrac/parts-insights/internal/cache"
	"github.com/westtrac/parts-insights/internal/config"
	"github.com/westtrac/parts-insights/internal/repository/postgres"
	"github.com/westtrac/parts-insights/internal/service"
	"github.com/westtrac/parts-insights/internal/storage"
	"github.com/westtrac/parts-insights/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.Configure(cfg.Log.Format, cfg.Log.Level)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	seasonalCache, err := cache.NewSeasonalCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Seasonal cache unavailable, continuing without cache")
		seasonalCache = cache.NewNoopSeasonalCache()
	}

	usageRepo := postgres.NewUsageRepository(db)
	seasonalService, err := service.NewSeasonalService(usageRepo, seasonalCache, cfg.Seasonal)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create seasonal service")
	}

	services := &api.Services{SeasonalService: seasonalService}
	if cfg.Storage.Enabled {
		objectStorage, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to create object storage client")
		}
		services.Storage = objectStorage
	}

	router := api.NewRouter(services, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// in-flight requests get 5 seconds to finish
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
