package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig returned nil")
	}

	if len(cfg.WebSocket.AllowedOrigins) != 0 {
		t.Errorf("expected empty allowed origins by default, got %v", cfg.WebSocket.AllowedOrigins)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("expected addr :8080, got %q", cfg.HTTP.Addr)
	}
	if cfg.Limits.MaxTrials != 100000 || cfg.Limits.MaxRounds != 100 {
		t.Errorf("unexpected limits: %+v", cfg.Limits)
	}
	if cfg.Limits.MaxUsesPerRound != 50 || cfg.Limits.MaxDice != 200 || cfg.Limits.MaxTargets != 100 || cfg.Limits.MaxTableRows != 100 {
		t.Errorf("unexpected profile caps: %+v", cfg.Limits)
	}
	if cfg.Connections.MaxActiveTrials != 400000 {
		t.Errorf("expected trial budget 400000, got %d", cfg.Connections.MaxActiveTrials)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %q", cfg.Database.Driver)
	}
}

func TestLoadConfig_FileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")

	if err != nil {
		t.Errorf("expected no error for missing file, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected default config for missing file, got nil")
	}

	if cfg.Connections.MaxPerIP != 2 {
		t.Errorf("expected default max per IP, got %d", cfg.Connections.MaxPerIP)
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "server.yaml")

	content := `
http:
  addr: "127.0.0.1:9000"
  shutdown_timeout: 5s
websocket:
  allowed_origins:
    - "https://example.com"
    - "http://localhost:3000"
  max_message_size: 8192
limits:
  max_trials: 5000
database:
  driver: postgres
  postgres:
    host: db
    port: 5433
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTP.Addr != "127.0.0.1:9000" {
		t.Errorf("expected addr from file, got %q", cfg.HTTP.Addr)
	}
	if cfg.HTTP.ShutdownTimeout != 5*time.Second {
		t.Errorf("expected 5s shutdown timeout, got %v", cfg.HTTP.ShutdownTimeout)
	}
	if cfg.HTTP.ReadHeaderTimeout != 10*time.Second {
		t.Errorf("expected default read header timeout kept, got %v", cfg.HTTP.ReadHeaderTimeout)
	}
	if len(cfg.WebSocket.AllowedOrigins) != 2 || cfg.WebSocket.AllowedOrigins[0] != "https://example.com" {
		t.Errorf("unexpected allowed origins: %v", cfg.WebSocket.AllowedOrigins)
	}
	if cfg.WebSocket.MaxMessageSize != 8192 {
		t.Errorf("expected max message size 8192, got %d", cfg.WebSocket.MaxMessageSize)
	}
	if cfg.Limits.MaxTrials != 5000 || cfg.Limits.MaxRounds != 100 {
		t.Errorf("expected max trials from file and default max rounds, got %+v", cfg.Limits)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.Postgres.Host != "db" || cfg.Database.Postgres.Port != 5433 {
		t.Errorf("unexpected database config: %+v", cfg.Database)
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(configPath, []byte("http: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(configPath)
	if err == nil {
		t.Error("expected error for malformed yaml")
	}
	if cfg == nil || cfg.HTTP.Addr != ":8080" {
		t.Errorf("expected defaults alongside the error, got %+v", cfg)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("BALANCE_HTTP_ADDR", ":7000")
	t.Setenv("BALANCE_MAX_TRIALS", "2500")
	t.Setenv("BALANCE_WS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("BALANCE_DB_DRIVER", "postgres")
	t.Setenv("BALANCE_PG_HOST", "pg.internal")
	t.Setenv("BALANCE_PG_PORT", "6543")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTP.Addr != ":7000" {
		t.Errorf("expected addr override, got %q", cfg.HTTP.Addr)
	}
	if cfg.Limits.MaxTrials != 2500 {
		t.Errorf("expected max trials override, got %d", cfg.Limits.MaxTrials)
	}
	if len(cfg.WebSocket.AllowedOrigins) != 2 || cfg.WebSocket.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins: %v", cfg.WebSocket.AllowedOrigins)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.Postgres.Host != "pg.internal" || cfg.Database.Postgres.Port != 6543 {
		t.Errorf("unexpected database config: %+v", cfg.Database)
	}
	// untouched values keep their defaults
	if cfg.Limits.MaxRounds != 100 || cfg.Database.Postgres.SSLMode != "disable" {
		t.Errorf("defaults lost: %+v %+v", cfg.Limits, cfg.Database.Postgres)
	}
}

func TestLoadConfig_BadEnv(t *testing.T) {
	t.Setenv("BALANCE_MAX_TRIALS", "lots")

	if _, err := LoadConfig(""); err == nil {
		t.Error("expected error for malformed env value")
	}
}

func TestIsOriginAllowed_EmptyList_SameOrigin(t *testing.T) {
	cfg := WebSocketConfig{
		AllowedOrigins: []string{},
	}

	// Same origin (no Origin header)
	if !cfg.IsOriginAllowed("", "localhost:8080") {
		t.Error("expected empty origin to be allowed (same-origin)")
	}

	// Same origin (matching host)
	if !cfg.IsOriginAllowed("http://localhost:8080", "localhost:8080") {
		t.Error("expected matching origin to be allowed (same-origin)")
	}

	// Different origin should be rejected
	if cfg.IsOriginAllowed("http://evil.com", "localhost:8080") {
		t.Error("expected different origin to be rejected (same-origin policy)")
	}
}

func TestIsOriginAllowed_List(t *testing.T) {
	wildcard := WebSocketConfig{AllowedOrigins: []string{"*"}}
	if !wildcard.IsOriginAllowed("http://anything.com", "localhost:8080") {
		t.Error("expected wildcard to allow any origin")
	}

	cfg := WebSocketConfig{
		AllowedOrigins: []string{
			"https://example.com",
			"http://localhost:3000",
		},
	}
	if !cfg.IsOriginAllowed("https://example.com", "localhost:8080") {
		t.Error("expected exact match to be allowed")
	}
	if cfg.IsOriginAllowed("http://evil.com", "localhost:8080") {
		t.Error("expected non-matching origin to be rejected")
	}
	// Partial match should not work
	if cfg.IsOriginAllowed("https://example.com:8080", "localhost:8080") {
		t.Error("expected partial match to be rejected")
	}
}

func TestIsSameOrigin(t *testing.T) {
	tests := []struct {
		origin      string
		requestHost string
		expected    bool
	}{
		{"", "localhost:8080", true},
		{"http://localhost:8080", "localhost:8080", true},
		{"https://localhost:8080", "localhost:8080", true},
		{"http://localhost:8080/", "localhost:8080", true},
		{"http://example.com", "localhost:8080", false},
		{"http://localhost:3000", "localhost:8080", false},
		{"ws://localhost:8080", "localhost:8080", true},
	}

	for _, tt := range tests {
		result := isSameOrigin(tt.origin, tt.requestHost)
		if result != tt.expected {
			t.Errorf("isSameOrigin(%q, %q) = %v, want %v",
				tt.origin, tt.requestHost, result, tt.expected)
		}
	}
}
