package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/shared-board/backend/api/handlers"
	"github.com/shared-board/backend/internal/config"
	"github.com/shared-board/backend/internal/db"
	"github.com/shared-board/backend/internal/directory"
	"github.com/shared-board/backend/internal/logging"
	"github.com/shared-board/backend/internal/registry"
	"github.com/shared-board/backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.Init("board-server", cfg.LogLevel, cfg.LogFormat)

	// Pick the naming layer
	var naming directory.Directory
	if cfg.LocalNaming() {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			logger.Fatal().Err(err).Msg("Failed to create database directory")
		}
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer database.Close()
		naming = directory.NewStore(database)
	} else {
		naming = directory.NewClient(cfg.NamingURL, &http.Client{Timeout: cfg.DeregisterTimeout})
	}

	reg := registry.New(naming, registry.Config{
		TickInterval:      cfg.TickInterval,
		DeregisterTimeout: cfg.DeregisterTimeout,
	})

	if len(cfg.AllowedOrigins) > 0 {
		ws.SetCheckOrigin(func(r *http.Request) bool {
			return slices.Contains(cfg.AllowedOrigins, r.Header.Get("Origin"))
		})
	}

	boardHandler := handlers.NewBoardHandler(reg, naming, ws.NewHandler(cfg.OutboxSize), cfg.PublicURL)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.RequestLogger(logger))
	r.Use(corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	boardHandler.RegisterRoutes(r)
	if cfg.LocalNaming() {
		handlers.NewDirectoryHandler(naming).RegisterRoutes(r)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Bool("local_naming", cfg.LocalNaming()).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return reg.Run(gctx)
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		reg.Close(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("Server stopped")
}

// corsMiddleware returns a CORS middleware for development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
