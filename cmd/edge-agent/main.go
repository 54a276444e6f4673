package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freesoil/sky-monitor-edge/agent"
	"github.com/freesoil/sky-monitor-edge/config"
	"github.com/freesoil/sky-monitor-edge/logging"
	"github.com/freesoil/sky-monitor-edge/recording"
	"github.com/freesoil/sky-monitor-edge/storage"
	"github.com/freesoil/sky-monitor-edge/transport"
	"github.com/freesoil/sky-monitor-edge/uploading"
)

func main() {
	configPath := flag.String("config", "agent.json", "Path to configuration file")
	storageRoot := flag.String("storage", "", "Override storage root directory")
	endpointURL := flag.String("endpoint", "", "Override upload endpoint URL")
	authToken := flag.String("token", "", "Override upload auth token")
	logLevel := flag.String("log-level", "", "Override log level")
	flag.Parse()

	cfg, err := config.LoadAgentConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.Override(config.AgentOverrides{
		StorageRoot: storageRoot,
		EndpointURL: endpointURL,
		AuthToken:   authToken,
		LogLevel:    logLevel,
	})

	logger := logging.CreateLogger(logging.LogLevel(cfg.LogLevel), cfg.LogPath, "edge-agent")
	logger.Info("starting edge agent", "storage_root", cfg.StorageRoot, "endpoint", cfg.EndpointURL)

	store := storage.NewLocalStore(cfg.StorageRoot, cfg.SegmentExtension, cfg.CapacityBytes)

	evictor := storage.NewEvictionManager(logger, store, storage.Policy{
		MaxReservedBytes: cfg.MaxReservedBytes,
		MinFreeBytes:     cfg.MinFreeBytes,
		Enabled:          cfg.EvictionEnabled,
	})

	pipeline := uploading.NewPipeline(logger, store,
		&transport.NetDialer{SkipVerify: cfg.TLSSkipVerify},
		transport.InterfaceLinkChecker{},
		uploading.Config{
			EndpointURL:      cfg.EndpointURL,
			AuthToken:        cfg.AuthToken,
			ChunkBufferBytes: cfg.ChunkBufferBytes,
			ResponseTimeout:  time.Duration(cfg.ResponseTimeoutMs) * time.Millisecond,
			MaxRetries:       cfg.MaxRetries,
			UseTLS:           cfg.UseTLS,
			DeleteOnSuccess:  cfg.DeleteOnSuccess,
		})

	monitor := recording.NewIntervalMonitor(
		time.Duration(cfg.CaptureIntervalMs)*time.Millisecond,
		time.Duration(cfg.CaptureDurationMs)*time.Millisecond,
	)

	a := agent.New(logger, evictor, pipeline, monitor, time.Duration(cfg.CycleSeconds)*time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("agent exited with error", "error", err)
		os.Exit(1)
	}
}
