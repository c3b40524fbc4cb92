// Command arbiter runs the ingestion-and-analysis pipeline standalone: the
// scrape scheduler, the retention sweeper, and the /stats observability
// surface, all wired from one config.Config through core.New.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kestrelodds/arbiter/internal/pkg/config"
	"github.com/kestrelodds/arbiter/internal/pkg/core"
)

const defaultConfigPath = "configs/arbiter.yaml"

type flags struct {
	configPath string
	envFile    string
	runFor     time.Duration
}

func main() {
	if err := run(); err != nil {
		slog.Error("arbiter: fatal startup error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := parseFlags()

	appConfig, err := config.Load(cfg.configPath, cfg.envFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := createContext(cfg.runFor)
	defer cancel()
	setupSignalHandler(ctx, cancel)

	c, err := core.New(ctx, *appConfig)
	if err != nil {
		return fmt.Errorf("wiring core: %w", err)
	}
	defer c.Close()

	c.Logger.Info("arbiter: starting pipeline",
		"scrape_interval", appConfig.Scrape.Interval(),
		"providers", len(appConfig.Providers),
		"stats_addr", appConfig.Stats.ListenAddr,
	)

	go c.Scheduler.Run(ctx)
	go c.Sweeper.Run(ctx)

	if appConfig.Stats.ListenAddr != "" {
		go func() {
			if err := c.Stats.ListenAndServe(ctx, appConfig.Stats.ListenAddr); err != nil {
				c.Logger.Error("arbiter: stats server stopped", "error", err)
			}
		}()
	}

	<-ctx.Done()
	c.Logger.Info("arbiter: shutting down")
	return nil
}

func parseFlags() flags {
	var f flags
	defaultConfig := os.Getenv("ARBITER_CONFIG")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}
	flag.StringVar(&f.configPath, "config", defaultConfig, "path to the YAML config file")
	flag.StringVar(&f.envFile, "env", ".env", "path to an optional .env file of overrides")
	flag.DurationVar(&f.runFor, "run-for", 0, "auto-stop after duration; 0 runs until SIGINT/SIGTERM")
	flag.Parse()
	return f
}

func createContext(runFor time.Duration) (context.Context, context.CancelFunc) {
	if runFor > 0 {
		return context.WithTimeout(context.Background(), runFor)
	}
	return context.WithCancel(context.Background())
}

func setupSignalHandler(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("arbiter: received shutdown signal", "signal", sig.String())
			cancel()
		case <-ctx.Done():
			signal.Stop(sigChan)
			close(sigChan)
		}
	}()
}
