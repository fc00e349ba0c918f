// Command binderyd runs the comic fetch/convert/cache service daemon.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"bindery/internal/cache"
	"bindery/internal/config"
	"bindery/internal/daemon"
	"bindery/internal/history"
	"bindery/internal/logging"
	"bindery/internal/orchestrator"
	"bindery/internal/server"
	"bindery/internal/upstream"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, path, warning, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	if warning != "" {
		logger.Warn(warning)
	}
	logger.Info("configuration loaded", logging.String("path", path))

	journal, err := history.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("open history store: %v", err)
	}

	store := cache.NewStore(cfg, logger)
	metadata := upstream.New(cfg, logger)
	converter := orchestrator.New(cfg, logger)
	srv := server.New(cfg, store, metadata, converter, journal, logger)

	d, err := daemon.New(cfg, srv, journal, logger)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		log.Fatalf("start daemon: %v", err)
	}

	<-ctx.Done()
	logger.Info("binderyd shutting down")
}
