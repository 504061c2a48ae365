// Bidpilot — an auction bidding assistant that watches marketplace listings,
// validates bids against the venue's increment schedules, and runs auto-bid
// proxies within entitlement and budget limits.
//
// Architecture:
//
//	main.go                — entry point: loads config, starts agent, waits for SIGINT/SIGTERM
//	agent/agent.go         — orchestrator: wires watcher → bidding rules → marketplace, runs auto-bids
//	bidding/increment.go   — increment schedule resolver (fine and coarse tiers)
//	bidding/validate.go    — pure bid validation: minimum next bid, override rules, auction end
//	bidding/entitlement.go — subscription tier gates for override bids and auto-bid
//	bidding/autobid.go     — auto-bid proxy policy: counter-bid amounts, ceiling checks
//	watch/watcher.go       — polls listings and bid history, detects price changes and outbids
//	watch/mirror.go        — local snapshot of one listing's price state and history
//	marketplace/client.go  — REST client for the auction marketplace (listings, bids, auto-bids)
//	guard/guard.go         — enforces per-listing, total commitment, and price-spike limits
//	store/store.go         — JSON file persistence for override usage and auto-bid orders
//
// What it does:
//
//	The agent keeps a local mirror of every watched listing. When another
//	bidder takes the lead, the auto-bid proxy computes the minimum next bid
//	from the listing's increment schedule and counter-bids up to the user's
//	ceiling. The marketplace stays authoritative: every bid still goes to the
//	server, and a refusal there just means the next poll retries from the new
//	price.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"bidpilot/internal/agent"
	"bidpilot/internal/api"
	"bidpilot/internal/config"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("BIDPILOT_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Set up logger
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	// Create and start agent
	ag, err := agent.New(*cfg, logger)
	if err != nil {
		logger.Error("failed to create agent", "error", err)
		os.Exit(1)
	}

	// Start dashboard API server if enabled
	var apiServer *api.Server
	if cfg.Dashboard.Enabled {
		apiServer = api.NewServer(cfg.Dashboard, ag, *cfg, logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("dashboard server failed", "error", err)
			}
		}()
		logger.Info("dashboard started", "url", fmt.Sprintf("http://localhost:%d", cfg.Dashboard.Port))
	}

	if err := ag.Start(); err != nil {
		logger.Error("failed to start agent", "error", err)
		os.Exit(1)
	}

	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE — no real bids will be placed")
	}

	logger.Info("bidpilot started",
		"listings", len(cfg.Watch.Listings),
		"auto_place_bids", cfg.Agent.AutoPlaceBids,
		"max_commitment", cfg.Guard.MaxTotalCommitment,
		"dry_run", cfg.DryRun,
	)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	// Stop dashboard first
	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			logger.Error("failed to stop dashboard", "error", err)
		}
	}

	ag.Stop()
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
