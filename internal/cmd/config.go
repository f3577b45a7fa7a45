package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kyisaiah47/deep-cut-sub000/internal/models"
)

// Config is the server configuration. Connection settings come from the
// environment; game rule defaults may be overridden by a YAML file.
type Config struct {
	Port    string
	NATSURL string

	OutboxPollInterval time.Duration
	ListenerChannel    string

	Game GameConfig
}

// GameConfig holds the rule defaults applied to new sessions.
type GameConfig struct {
	TargetScore         int    `yaml:"target_score"`
	MaxParticipants     int    `yaml:"max_participants"`
	MinParticipants     int    `yaml:"min_participants"`
	SubmissionTimerSec  int    `yaml:"submission_timer_sec"`
	VotingTimerSec      int    `yaml:"voting_timer_sec"`
	CardsPerParticipant int    `yaml:"cards_per_participant"`
	HostPolicy          string `yaml:"host_policy"`
	Theme               string `yaml:"theme"`
}

func loadConfig() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		NATSURL:            getEnv("NATS_URL", "nats://localhost:4222"),
		OutboxPollInterval: getEnvAsDuration("OUTBOX_POLL_INTERVAL", 5*time.Second),
		ListenerChannel:    getEnv("OUTBOX_NOTIFY_CHANNEL", "session_outbox_events"),
	}

	if path := os.Getenv("GAME_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg.Game); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	return cfg, nil
}

// DefaultSettings merges the configured rule defaults over the built-in
// ones.
func (c *Config) DefaultSettings(base models.SessionSettings) models.SessionSettings {
	g := c.Game
	if g.TargetScore > 0 {
		base.TargetScore = g.TargetScore
	}
	if g.MaxParticipants > 0 {
		base.MaxParticipants = g.MaxParticipants
	}
	if g.MinParticipants > 0 {
		base.MinParticipants = g.MinParticipants
	}
	if g.SubmissionTimerSec > 0 {
		base.SubmissionTimerSec = g.SubmissionTimerSec
	}
	if g.VotingTimerSec > 0 {
		base.VotingTimerSec = g.VotingTimerSec
	}
	if g.CardsPerParticipant > 0 {
		base.CardsPerParticipant = g.CardsPerParticipant
	}
	if g.HostPolicy != "" {
		base.HostPolicy = models.HostPolicy(g.HostPolicy)
	}
	if g.Theme != "" {
		base.Theme = g.Theme
	}
	return base
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
