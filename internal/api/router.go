// Package api wires the HTTP surface: routes, handlers, middleware.
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/FearlessSpiff/radio-calico/internal/config"
	"github.com/FearlessSpiff/radio-calico/internal/metadata"
	"github.com/FearlessSpiff/radio-calico/internal/ratings"
)

// Deps carries everything the router needs; main constructs all of it
// once and hands it over.
type Deps struct {
	Log      *zap.SugaredLogger
	Cfg      *config.Config
	Ratings  *ratings.Service
	Metadata *metadata.Client
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(Recovery(d.Log))
	r.Use(RequestID())
	r.Use(RequestLogger(d.Log))
	r.Use(Metrics())
	r.Use(CacheControl())
	r.Use(cors.New(corsConfig(d.Cfg.CORSOrigins)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": d.Cfg.BuildVersion})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/metadata", MetadataHandler(d.Metadata, d.Log))
		apiGroup.GET("/ratings/:track_id", GetRatingsHandler(d.Ratings, d.Log))
		apiGroup.POST("/rate",
			RateLimit(d.Cfg.RateLimitRPS, d.Cfg.RateLimitBurst),
			RateHandler(d.Ratings, d.Log))
	}

	// The player page and its assets are optional; an API-only
	// deployment just doesn't ship the directory.
	if st, err := os.Stat(d.Cfg.StaticDir); err == nil && st.IsDir() {
		r.Static("/static", d.Cfg.StaticDir)
		if index := filepath.Join(d.Cfg.StaticDir, "index.html"); fileExists(index) {
			r.StaticFile("/", index)
		}
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.AllowHeaders = []string{"Content-Type", "X-Request-ID"}
	return cfg
}

func fileExists(name string) bool {
	st, err := os.Stat(name)
	return err == nil && !st.IsDir()
}
