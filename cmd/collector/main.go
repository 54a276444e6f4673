package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freesoil/sky-monitor-edge/collector/handlers"
	"github.com/freesoil/sky-monitor-edge/collector/middleware"
	"github.com/freesoil/sky-monitor-edge/collector/segments"
	"github.com/freesoil/sky-monitor-edge/config"
	"github.com/freesoil/sky-monitor-edge/logging"

	_ "github.com/mattn/go-sqlite3"
)

func main() {
	configPath := flag.String("config", "collector.json", "Path to configuration file")
	hashToken := flag.String("hash-token", "", "Print hash and salt for the given token, then exit")
	flag.Parse()

	if *hashToken != "" {
		hash, salt, err := segments.HashToken(*hashToken)
		if err != nil {
			log.Fatalf("Failed to hash token: %v", err)
		}
		fmt.Printf("token_hash: %s\ntoken_salt: %s\n", hash, salt)
		return
	}

	cfg, err := config.LoadCollectorConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.CreateLogger(logging.LogLevel(cfg.LogLevel), cfg.LogPath, "collector")
	logger.Info("starting collector", "port", cfg.Port, "upload_dir", cfg.UploadDir)

	database, err := sql.Open("sqlite3", cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	repo, err := segments.NewSQLiteRepository(database)
	if err != nil {
		log.Fatalf("Failed to create segment repository: %v", err)
	}

	var verifier segments.TokenVerifier
	if cfg.TokenHash != "" {
		verifier, err = segments.NewPBKDF2TokenVerifier(cfg.TokenHash, cfg.TokenSalt)
		if err != nil {
			log.Fatalf("Invalid token credentials in config: %v", err)
		}
	} else {
		logger.Warn("no token hash configured, collector accepts unauthenticated uploads")
	}

	var probe segments.MetadataProbe
	if cfg.ProbeMetadata {
		probe = segments.NewFFmpegProbe(logger)
	}

	authMiddleware := middleware.NewAuthMiddleware(logger, verifier)
	segmentHandler := handlers.NewSegmentHandler(logger, repo, probe, cfg.UploadDir)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	setupRoutes(router, authMiddleware, segmentHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("collector listening", "address", addr)

	if err := http.ListenAndServe(addr, router); err != nil {
		logger.Error("collector failed to start", "error", err)
		log.Fatalf("Server error: %v", err)
	}
}

// setupRoutes configures the HTTP routes.
func setupRoutes(router *gin.Engine, authMiddleware *middleware.AuthMiddleware, segmentHandler *handlers.SegmentHandler) {
	authed := router.Group("/")
	authed.Use(authMiddleware.RequireAuth())

	authed.POST("/upload", segmentHandler.Upload)
	authed.GET("/segments", segmentHandler.List)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "collector",
		})
	})
}
