package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nurpe/waste-dispatch/internal/http/middleware"
)

const maxMultipartMemory = 16 << 20

type RouterConfig struct {
	Environment string
	CORSOrigins []string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

func NewRouter(handler *Handler, authMiddleware gin.HandlerFunc, cfg RouterConfig) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = maxMultipartMemory
	router.Use(gin.Recovery(), middleware.RequestLogger(handler.log))
	router.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	handler.Register(router.Group("/api/v1"), authMiddleware)
	return router
}

func corsConfig(origins []string) cors.Config {
	config := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		config.AllowAllOrigins = true
		config.AllowCredentials = false
	} else {
		config.AllowOrigins = origins
	}
	return config
}
