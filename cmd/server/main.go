// Copyright (c) 2026 Das ELB Hotel & Restaurant
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Concierge — AI reply drafting for the hotel mailbox.
//
// Entry point for the service. It:
//  1. Loads configuration
//  2. Connects to PostgreSQL and Redis
//  3. Wires the agent gateway, pipeline, poller, and notifier
//  4. Runs the mailbox poll loop in the background
//  5. Serves the operator API
//  6. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/daselb/concierge/internal/agent"
	"github.com/daselb/concierge/internal/api"
	"github.com/daselb/concierge/internal/config"
	"github.com/daselb/concierge/internal/dedup"
	"github.com/daselb/concierge/internal/hotelapi"
	"github.com/daselb/concierge/internal/jobs"
	"github.com/daselb/concierge/internal/mail"
	"github.com/daselb/concierge/internal/notify"
	"github.com/daselb/concierge/internal/pipeline"
	"github.com/daselb/concierge/internal/poller"
	"github.com/daselb/concierge/internal/store"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting concierge service")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("configuration loaded",
		"poll_interval", cfg.PollInterval,
		"model", cfg.LLM.Model,
		"mailbox", cfg.Mail.Mailbox,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Connect to PostgreSQL ---
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create Postgres pool", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	if err := pgPool.Ping(ctx); err != nil {
		slog.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to PostgreSQL")

	// --- Connect to Redis ---
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to Redis")

	// --- Record Store ---
	st, err := store.New(ctx, pgPool)
	if err != nil {
		slog.Error("failed to initialise record store", "error", err)
		os.Exit(1)
	}

	// --- Mailbox, Agents, Hotel API, Notifier ---
	mailClient := mail.NewClient(ctx, cfg.Mail)
	agents := agent.NewAgents(agent.NewChatClient(cfg.LLM))
	hotelClient := hotelapi.NewClient(cfg.HotelAPIBase)
	notifier := notify.New(cfg.Notify, mailClient)

	// --- Pipeline ---
	orch := pipeline.New(pipeline.Config{
		Agents:       agents,
		Store:        st,
		HotelAPI:     hotelClient,
		Notifier:     notifier,
		HotelSenders: cfg.HotelSenders,
	})

	// --- Poller ---
	p := poller.New(poller.Config{
		Mail:      mailClient,
		Pipeline:  orch,
		Store:     st,
		Seen:      dedup.NewFilter(rdb),
		Lock:      dedup.NewPollLock(rdb),
		Interval:  cfg.PollInterval,
		SinceDays: cfg.PollSinceDays,
		MaxFetch:  cfg.PollMaxResults,
	})
	go p.Run(ctx)

	// --- Operator API ---
	srv := api.NewServer(api.Config{
		APIKey:    cfg.APIKey,
		Store:     st,
		Mail:      mailClient,
		Escalator: notifier,
		Mailbox:   p,
		Pipeline:  orch,
		Jobs:      jobs.NewRunner(),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	// --- Graceful Shutdown ---
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh

		slog.Info("received shutdown signal", "signal", sig)
		cancel() // Stop the poll loop

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}

		rdb.Close()
		pgPool.Close()
	}()

	slog.Info("concierge service listening", "addr", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("concierge service stopped")
}
