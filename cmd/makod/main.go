// makod is the tool-script backend for the MaKo assistant. It accepts
// Node.js script submissions, validates generated candidates, and queues
// jobs for manual review.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/strombasis/mako-assistant/pkg/api"
	"github.com/strombasis/mako-assistant/pkg/config"
	"github.com/strombasis/mako-assistant/pkg/jobs"
	"github.com/strombasis/mako-assistant/pkg/logging"
	"github.com/strombasis/mako-assistant/pkg/model"
	"github.com/strombasis/mako-assistant/pkg/ratelimit"
	"github.com/strombasis/mako-assistant/pkg/storage"
	"github.com/strombasis/mako-assistant/pkg/toolscript"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "makod: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "makod.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Close()
	logger.SetMinLevel(logging.Level(cfg.Logging.Level))

	store, err := storage.New(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	registry := jobs.NewRegistry(storage.NewJobStore(store), logger)

	llm := model.NewClient(cfg.Provider.APIKey, model.Options{
		BaseURL: cfg.Provider.BaseURL,
		Model:   cfg.Provider.Model,
		Timeout: cfg.Provider.Timeout,
	}, logger)
	engine := toolscript.NewEngine(logger)
	generator := toolscript.NewGenerator(llm, engine, logger)

	server := api.NewServer(api.ServerConfig{
		Address:   cfg.Server.Bind,
		Registry:  registry,
		Generator: generator,
		Limiter:   ratelimit.New(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst),
		Logger:    logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info(logging.CategoryAPI, "server_stopping", "shutdown signal received",
			map[string]any{"signal": sig.String()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Stop(ctx)
}
