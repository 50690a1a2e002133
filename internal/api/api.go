package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/westtrac/parts-insights/internal/api/handlers"
	"github.com/westtrac/parts-insights/internal/api/middleware"
	"github.com/westtrac/parts-insights/internal/service"
	"github.com/westtrac/parts-insights/internal/storage"
)

type Services struct {
	SeasonalService *service.SeasonalService
	Storage         storage.ObjectStorage
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.SeasonalService != nil {
		seasonalHandler := handlers.NewSeasonalHandler(services.SeasonalService, services.Storage)
		seasonalGroup := apiGroup.Group("/parts/seasonal")
		{
			seasonalGroup.GET("/analysis", seasonalHandler.GetAnalysis)
			seasonalGroup.GET("/filters", seasonalHandler.GetFilterOptions)
			seasonalGroup.GET("/patterns/:level", seasonalHandler.GetPatterns)
			seasonalGroup.GET("/recommendations/:entity", seasonalHandler.GetRecommendation)
			seasonalGroup.GET("/recommendations/:entity/combined", seasonalHandler.GetCombinedRecommendation)
			seasonalGroup.GET("/export", seasonalHandler.ExportWorkbook)
			seasonalGroup.GET("/exports", seasonalHandler.ListExports)
			seasonalGroup.GET("/exports/:name", seasonalHandler.DownloadExport)
			seasonalGroup.DELETE("/cache", seasonalHandler.InvalidateCache)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
