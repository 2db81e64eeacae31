// feedtail connects to one tournament feed and prints each validated event
// as a JSON line, plus connectivity changes.
// Usage: go run ./cmd/feedtail --tournament <id> [--token <token>] [--url ws://localhost:8000]
//
// The token defaults to the TORVI_TOKEN environment variable (or .env).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rickgao/torvi-live/internal/connection"
	"github.com/rickgao/torvi-live/internal/model"
)

func main() {
	_ = godotenv.Load()

	tournament := flag.String("tournament", "", "tournament id to follow")
	token := flag.String("token", os.Getenv("TORVI_TOKEN"), "feed access token")
	baseURL := flag.String("url", envOr("TORVI_WS_URL", "ws://localhost:8000"), "feed origin")
	heartbeat := flag.Duration("heartbeat", 25*time.Second, "heartbeat interval")
	verbose := flag.Bool("verbose", false, "log connection internals")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *tournament == "" || *token == "" {
		fmt.Fprintln(os.Stderr, "feedtail: --tournament and --token (or TORVI_TOKEN) are required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(os.Stdout)
	var events int

	cfg := connection.DefaultManagerConfig()
	cfg.BaseURL = *baseURL
	cfg.HeartbeatInterval = *heartbeat

	mgr := connection.NewManager(cfg, *tournament, *token,
		func(ev model.Event) {
			events++
			if err := enc.Encode(ev); err != nil {
				logger.Error("encode event", "error", err)
			}
		},
		func(connected bool) {
			logger.Info("feed status", "tournament_id", *tournament, "connected", connected)
		},
		logger,
	)

	mgr.Connect()
	<-ctx.Done()
	mgr.Disconnect()

	stats := mgr.Stats()
	logger.Info("feedtail done",
		"events", events,
		"dropped", stats.MessagesDropped,
		"opens", stats.Opens,
		"heartbeats", stats.HeartbeatsSent,
	)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
