package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/crime-eda-backend-go/internal/config"
	"github.com/jengzang/crime-eda-backend-go/internal/handler"
	"github.com/jengzang/crime-eda-backend-go/internal/logging"
	"github.com/jengzang/crime-eda-backend-go/internal/metrics"
	"github.com/jengzang/crime-eda-backend-go/internal/middleware"
)

// Handlers 路由使用的处理器
type Handlers struct {
	Dataset   *handler.DatasetHandler
	Aggregate *handler.AggregateHandler
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h Handlers, limiter *middleware.RateLimiter, met *metrics.Metrics, logger logging.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Crime EDA API is running",
		})
	})

	// Prometheus 指标
	if met != nil {
		r.GET("/metrics", gin.WrapH(met.Handler()))
	}

	// API 路由组
	api := r.Group("/api/v1")
	if limiter != nil {
		api.Use(middleware.RateLimit(limiter))
	}
	{
		// 数据集接口
		dataset := api.Group("/dataset")
		{
			dataset.GET("/overview", h.Dataset.GetOverview)
			dataset.GET("/columns", h.Dataset.GetColumns)
			dataset.GET("/preview", h.Dataset.GetPreview)
			dataset.GET("/missing", h.Dataset.GetMissing)
			dataset.GET("/history", h.Dataset.GetHistory)
			dataset.GET("/history/:id", h.Dataset.GetSnapshot)
			// 重新加载需要 JWT
			dataset.POST("/refresh", middleware.JWTAuth(cfg.JWTSecret), h.Dataset.Refresh)
		}

		// 聚合与图表接口
		aggregates := api.Group("/aggregates")
		{
			aggregates.GET("/derivations", h.Aggregate.ListDerivations)
			aggregates.GET("/derivations/:name", h.Aggregate.GetDerivation)
			aggregates.GET("/summary", h.Aggregate.GetSummary)
			aggregates.GET("/periods", h.Aggregate.GetPeriods)
			aggregates.GET("/timeseries", h.Aggregate.GetTimeSeries)
			aggregates.GET("/ranking", h.Aggregate.GetRanking)
			aggregates.GET("/ranking/series", h.Aggregate.GetRankingSeries)
			aggregates.GET("/top-categories", h.Aggregate.GetTopCategories)
			aggregates.GET("/density", h.Aggregate.GetDensity)
			aggregates.GET("/density/map", h.Aggregate.GetDensityMap)
			aggregates.GET("/density/geojson", h.Aggregate.GetDensityGeoJSON)
			aggregates.GET("/time-of-day", h.Aggregate.GetTimeOfDay)
		}
	}

	return r
}
