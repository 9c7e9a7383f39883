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

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LLMConfig holds credentials and budgets for the agent gateway.
type LLMConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	Retries     int     `yaml:"retries"`
}

// MailConfig holds credentials for the mailbox provider REST API.
type MailConfig struct {
	BaseURL      string   `yaml:"base_url"`
	TokenURL     string   `yaml:"token_url"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	Scopes       []string `yaml:"scopes"`
	Mailbox      string   `yaml:"mailbox"`
}

// NotifyConfig holds the Twilio WhatsApp alert settings.
type NotifyConfig struct {
	Enabled         bool   `yaml:"enabled"`
	AccountSID      string `yaml:"account_sid"`
	AuthToken       string `yaml:"auth_token"`
	WhatsAppFrom    string `yaml:"whatsapp_from"`
	ManagerWhatsApp string `yaml:"manager_whatsapp"`
	ManagerEmail    string `yaml:"manager_email"`
}

// Config holds all configuration for the concierge service.
type Config struct {
	DatabaseURL string
	RedisURL    string

	LLM    LLMConfig
	Mail   MailConfig
	Notify NotifyConfig

	// Live availability/pricing API of the hotel management system.
	HotelAPIBase string

	// HotelSenders are the hotel's own addresses and domains; mail from them
	// never gets a drafted reply.
	HotelSenders []string

	// Polling
	PollInterval   time.Duration
	PollSinceDays  int
	PollMaxResults int

	// Operator API
	APIKey string
	Port   int
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	LLM    LLMConfig    `yaml:"llm"`
	Mail   MailConfig   `yaml:"mail"`
	Notify NotifyConfig `yaml:"notify"`
	Hotel  struct {
		APIBase string   `yaml:"api_base"`
		Senders []string `yaml:"senders"`
	} `yaml:"hotel"`
	API struct {
		Key string `yaml:"key"`
	} `yaml:"api"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables for non-YAML settings.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "/app/config/config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	cfg := &Config{
		DatabaseURL:    firstNonEmpty(raw.Database.URL, envOrDefault("DATABASE_URL", "postgres://localhost:5432/concierge")),
		RedisURL:       firstNonEmpty(raw.Redis.URL, envOrDefault("REDIS_URL", "redis://localhost:6379/0")),
		LLM:            raw.LLM,
		Mail:           raw.Mail,
		Notify:         raw.Notify,
		HotelAPIBase:   firstNonEmpty(raw.Hotel.APIBase, os.Getenv("HOTEL_MGMT_API_BASE")),
		HotelSenders:   raw.Hotel.Senders,
		PollInterval:   envOrDefaultDuration("POLL_INTERVAL", 3*time.Minute),
		PollSinceDays:  envOrDefaultInt("POLL_SINCE_DAYS", 7),
		PollMaxResults: envOrDefaultInt("POLL_MAX_RESULTS", 10),
		APIKey:         firstNonEmpty(raw.API.Key, os.Getenv("DASHBOARD_API_KEY")),
		Port:           envOrDefaultInt("PORT", 8080),
	}

	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 512
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.3
	}
	if cfg.LLM.Retries == 0 {
		cfg.LLM.Retries = 5
	}
	if len(cfg.HotelSenders) == 0 {
		cfg.HotelSenders = []string{"rezeption@das-elb.de", "info@das-elb.de", "das-elb.de"}
	}

	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("llm.api_key is required — the pipeline cannot run without the agent gateway")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api.key is required — the operator surface must not run unauthenticated")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
