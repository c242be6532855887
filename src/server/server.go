package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	app "imageserv/src/app"
	cfg "imageserv/src/configuration"
	"imageserv/src/metrics"
)

// NewRouter wires middleware and routes around images.
func NewRouter(config *cfg.Properties, images *app.ImageService, log zerolog.Logger) *gin.Engine {
	gin.SetMode(config.Server.Mode)
	router := gin.New()
	router.MaxMultipartMemory = config.Server.MaxUploadBytes()

	router.Use(recovery(log), requestLogger(log), metrics.Middleware())
	router.Use(cors.New(corsConfig(config.Server.CorsOrigins)))

	if config.Server.Pprof {
		pprof.Register(router)
	}

	metrics.Init()
	handler := NewS3Handler(images, config.Server.MaxUploadBytes())

	// Register Routes
	router.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	imagesGroup := router.Group("/images")
	{
		imagesGroup.POST("/upload", handler.PostImage)
		imagesGroup.GET("", handler.GetImageList)
		imagesGroup.GET("/buckets", handler.GetBuckets)
		imagesGroup.GET("/metadata", handler.GetMetadata)
		imagesGroup.GET("/:key", handler.GetImage)
		imagesGroup.GET("/:key/url", handler.RedirectToImage)
		imagesGroup.GET("/:key/url-json", handler.GetImageURL)
		imagesGroup.DELETE("/:key", handler.DeleteImage)
	}

	router.NoRoute(func(ctx *gin.Context) { ctx.JSON(http.StatusNotFound, gin.H{}) })
	return router
}

func corsConfig(origins []string) cors.Config {
	config := cors.Config{
		AllowMethods:  []string{"GET", "HEAD", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "Accept", "Accept-Encoding", "Cache-Control"},
		ExposeHeaders: []string{"Content-Length", "Location"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			// cors rejects "*" mixed with an explicit list
			config.AllowAllOrigins = true
			return config
		}
	}
	config.AllowOrigins = origins
	return config
}

// RunServer serves until ctx is cancelled, then drains in-flight requests.
func RunServer(ctx context.Context, config *cfg.Properties, images *app.ImageService, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", config.Server.Port),
		Handler:      NewRouter(config, images, log),
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("name", config.Server.Name).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	return nil
}
