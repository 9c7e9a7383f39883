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

// Concierge — Bulk Import Command
//
// Standalone CLI tool that runs the whole mailbox backlog through the
// drafting pipeline once. Intended for seeding data on new deployments.
//
// Usage:
//
//	go run ./cmd/import/ [--since-days 30] [--max 500]
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/daselb/concierge/internal/agent"
	"github.com/daselb/concierge/internal/config"
	"github.com/daselb/concierge/internal/dedup"
	"github.com/daselb/concierge/internal/hotelapi"
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

	// --- CLI Flags ---
	sinceDays := flag.Int("since-days", 30, "How many days of mailbox history to import")
	maxResults := flag.Int("max", 500, "Maximum number of messages to fetch")
	flag.Parse()

	slog.Info("starting bulk import", "since_days", *sinceDays, "max", *maxResults)

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

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

	// --- Connect to Redis ---
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	// --- Record Store ---
	st, err := store.New(ctx, pgPool)
	if err != nil {
		slog.Error("failed to initialise record store", "error", err)
		os.Exit(1)
	}

	// --- Pipeline ---
	mailClient := mail.NewClient(ctx, cfg.Mail)
	orch := pipeline.New(pipeline.Config{
		Agents:       agent.NewAgents(agent.NewChatClient(cfg.LLM)),
		Store:        st,
		HotelAPI:     hotelapi.NewClient(cfg.HotelAPIBase),
		Notifier:     notify.New(cfg.Notify, mailClient),
		HotelSenders: cfg.HotelSenders,
	})

	// --- Import ---
	p := poller.New(poller.Config{
		Mail:      mailClient,
		Pipeline:  orch,
		Store:     st,
		Seen:      dedup.NewFilter(rdb),
		Lock:      dedup.NewPollLock(rdb),
		Interval:  time.Hour, // unused by ImportAll
		SinceDays: *sinceDays,
		MaxFetch:  *maxResults,
	})

	start := time.Now()
	if err := p.ImportAll(ctx); err != nil {
		slog.Error("bulk import failed", "error", err)
		os.Exit(1)
	}

	slog.Info("bulk import finished", "duration", time.Since(start).Round(time.Second).String())
}
