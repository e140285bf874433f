package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docwatch/internal/config"
	"docwatch/internal/gate"
	"docwatch/internal/notify"
	"docwatch/internal/run"
	"docwatch/internal/scrape"
	"docwatch/internal/state"
)

func main() {
	configPath := flag.String("config", "config/docwatch.yaml", "Path to configuration file")
	interval := flag.Duration("interval", 0, "Re-run on this interval instead of exiting after one run")
	metricsAddr := flag.String("metrics", ":9090", "Metrics listen address (interval mode only)")
	flag.Parse()

	// Setup Logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Init Store
	var store state.Store
	if cfg.Store.Type == "valkey" {
		logger.Info("Using Valkey Store", "address", cfg.Store.Address)
		store = state.NewValkeyStore(cfg.Store.Address, cfg.Store.Password, cfg.Store.Key, logger)
	} else {
		logger.Info("Using File Store", "path", cfg.Store.Path)
		store = state.NewFileStore(cfg.Store.Path, logger)
	}

	// Init Components
	extractor := buildExtractor(cfg, logger)
	g := buildGate(cfg, logger)
	mailer := notify.NewMailer(cfg.Mail)

	var mirror run.Mirror
	if cfg.Webhook.URL != "" {
		mirror = notify.NewMirror(cfg.Webhook.URL, cfg.Webhook.Provider)
	}

	runner := run.New(cfg, extractor, store, g, mailer, mirror, logger)

	if *interval <= 0 {
		// Single invocation, scheduling left to cron or a timer unit.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := runner.Run(ctx); err != nil {
			// Mail failure. Logged, exit stays zero: the only fatal
			// configuration problem is a missing recipient list.
			logger.Error("Run failed", "error", err)
		}
		return
	}

	// Metrics Server
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		logger.Info("Starting metrics server", "address", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
			logger.Error("Metrics server failed", "error", err)
		}
	}()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutting down...")
		cancel()
	}()

	logger.Info("Starting document monitor",
		"interval", *interval,
		"url", cfg.Source.URL,
		"categories", len(cfg.Categories),
		"recipients", len(cfg.Mail.Recipients))

	runner.Loop(ctx, *interval)
	logger.Info("Monitor stopped")
}

func buildExtractor(cfg *config.Config, logger *slog.Logger) scrape.Extractor {
	if len(cfg.Categories) == 0 {
		return sourceExtractor(cfg.Source, scrape.Rules{
			Container: cfg.Source.Container,
			Pattern:   cfg.Source.Pattern,
			Text:      cfg.Source.Text,
		}, logger)
	}

	sources := make([]scrape.Source, 0, len(cfg.Categories))
	for _, cat := range cfg.Categories {
		src := cfg.Source
		src.URL = cat.URL
		rules := scrape.Rules{
			Container: cat.Container,
			Pattern:   cfg.Source.Pattern,
			Text:      cfg.Source.Text,
			Category:  cat.Name,
		}
		sources = append(sources, scrape.Source{
			Name:      cat.Name,
			Extractor: sourceExtractor(src, rules, logger),
		})
	}
	return scrape.NewMulti(sources, logger)
}

func sourceExtractor(src config.Source, rules scrape.Rules, logger *slog.Logger) scrape.Extractor {
	switch src.Mode {
	case "feed":
		return scrape.NewFeedExtractor(src.URL, rules.Category)
	case "http":
		return scrape.NewHTTPExtractor(src.URL, rules, src.Timeout)
	default:
		return scrape.NewRenderExtractor(src.URL, rules, src.Timeout, logger)
	}
}

func buildGate(cfg *config.Config, logger *slog.Logger) *gate.Gate {
	loc, err := time.LoadLocation(cfg.Gate.Timezone)
	if err != nil {
		logger.Warn("Unknown timezone, falling back to UTC", "timezone", cfg.Gate.Timezone, "error", err)
		loc = time.UTC
	}

	windows := make([]gate.Window, 0, len(cfg.Gate.Windows))
	for _, w := range cfg.Gate.Windows {
		target, err := gate.ParseClock(w.At)
		if err != nil {
			logger.Warn("Skipping invalid send window", "window", w.Name, "error", err)
			continue
		}
		windows = append(windows, gate.Window{Name: w.Name, Target: target})
	}

	return gate.New(windows, cfg.Gate.Tolerance, loc)
}
