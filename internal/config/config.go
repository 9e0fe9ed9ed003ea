package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/lawnchairsociety/bossbalance/internal/database"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds server-wide configuration settings.
type ServerConfig struct {
	HTTP        HTTPConfig        `yaml:"http"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Connections ConnectionsConfig `yaml:"connections"`
	Limits      LimitsConfig      `yaml:"limits"`
	Database    database.Config   `yaml:"database"`
}

// HTTPConfig holds the listener settings of the simulation API.
type HTTPConfig struct {
	Addr              string        `yaml:"addr" env:"BALANCE_HTTP_ADDR"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"BALANCE_HTTP_READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"BALANCE_HTTP_SHUTDOWN_TIMEOUT"`
}

// ConnectionsConfig holds concurrent run limits.
type ConnectionsConfig struct {
	// MaxPerIP is the maximum concurrent simulation runs allowed from a single IP address.
	// 0 means unlimited (not recommended).
	MaxPerIP int `yaml:"max_per_ip" env:"BALANCE_MAX_RUNS_PER_IP"`

	// MaxTotal is the maximum total concurrent simulation runs.
	// 0 means unlimited.
	MaxTotal int `yaml:"max_total" env:"BALANCE_MAX_RUNS"`

	// MaxActiveTrials bounds the simulated trials in flight across all runs.
	// A run larger than the budget starts only when nothing else is running.
	// 0 means unlimited.
	MaxActiveTrials int `yaml:"max_active_trials" env:"BALANCE_MAX_ACTIVE_TRIALS"`
}

// LimitsConfig caps the work a single request may ask for.
type LimitsConfig struct {
	MaxTrials       int `yaml:"max_trials" env:"BALANCE_MAX_TRIALS"`
	MaxRounds       int `yaml:"max_rounds" env:"BALANCE_MAX_ROUNDS"`
	MaxSingleTrials int `yaml:"max_single_trials" env:"BALANCE_MAX_SINGLE_TRIALS"`

	// MaxUsesPerRound caps the attack uses per round summed over the attack table.
	MaxUsesPerRound int `yaml:"max_uses_per_round" env:"BALANCE_MAX_USES_PER_ROUND"`
	// MaxDice caps the dice rolled by one damage or temp HP expression.
	MaxDice int `yaml:"max_dice" env:"BALANCE_MAX_DICE"`
	// MaxTargets caps the spread, lair and recharge target counts.
	MaxTargets int `yaml:"max_targets" env:"BALANCE_MAX_TARGETS"`
	// MaxTableRows caps the rows of each profile table.
	MaxTableRows int `yaml:"max_table_rows" env:"BALANCE_MAX_TABLE_ROWS"`

	// Workers bounds the goroutines of one encounter run. 0 means GOMAXPROCS.
	Workers int `yaml:"workers" env:"BALANCE_WORKERS"`

	// HistoryLimit is the default page size of the run history endpoints.
	HistoryLimit int `yaml:"history_limit" env:"BALANCE_HISTORY_LIMIT"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	// Use "*" to allow all origins (not recommended for production).
	AllowedOrigins []string `yaml:"allowed_origins" env:"BALANCE_WS_ALLOWED_ORIGINS" envSeparator:","`

	// MaxMessageSize is the maximum WebSocket message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size" env:"BALANCE_WS_MAX_MESSAGE_SIZE"`
}

// DefaultConfig returns a ServerConfig with secure defaults.
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins: []string{}, // Same-origin only by default
			MaxMessageSize: 64 * 1024,  // profiles are small but carry whole tables
		},
		Connections: ConnectionsConfig{
			MaxPerIP:        2,
			MaxTotal:        16,
			MaxActiveTrials: 400000,
		},
		Limits: LimitsConfig{
			MaxTrials:       100000,
			MaxRounds:       100,
			MaxSingleTrials: 200000,
			MaxUsesPerRound: 50,
			MaxDice:         200,
			MaxTargets:      100,
			MaxTableRows:    100,
			Workers:         0,
			HistoryLimit:    50,
		},
		Database: database.DefaultConfig("data/balance.db"),
	}
}

// LoadConfig loads server configuration from a YAML file, then applies
// BALANCE_* environment overrides.
// If the file doesn't exist, the defaults are used.
func LoadConfig(path string) (*ServerConfig, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, config); err != nil {
				return DefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return config, err
		}
	}

	if err := ParseEnv(config); err != nil {
		return config, err
	}
	return config, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	// If no origins configured, enforce same-origin policy
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		// Wildcard allows all origins
		if allowed == "*" {
			return true
		}
		if allowed == origin {
			return true
		}
	}

	return false
}

// isSameOrigin checks if the origin matches the request host (same-origin policy).
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // No origin header means same-origin (e.g., non-browser client)
	}

	// Extract host from origin URL (e.g., "http://localhost:3000" -> "localhost:3000")
	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
