//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	// Arrange
	path := writeFile(t, "config.yaml", `
bot:
  token: "123:abc"
  owner_id: 42
database:
  uri: "mongodb://localhost:27017"
antiflood:
  limit: 3
  window: 5s
`)

	// Act
	cfg, err := Load(path)

	// Assert
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Bot.Token != "123:abc" {
		t.Errorf("token = %q, want %q", cfg.Bot.Token, "123:abc")
	}
	if cfg.Bot.OwnerID != 42 {
		t.Errorf("owner_id = %d, want 42", cfg.Bot.OwnerID)
	}
	if cfg.AntiFlood.Limit != 3 || cfg.AntiFlood.Window != 5*time.Second {
		t.Errorf("antiflood = %d/%s, want 3/5s", cfg.AntiFlood.Limit, cfg.AntiFlood.Window)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
[bot]
token = "123:abc"

[database]
uri = "mongodb://localhost:27017"
name = "custom"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Database.Name != "custom" {
		t.Errorf("database name = %q, want %q", cfg.Database.Name, "custom")
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "config.ini", "bot]")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported extension, got nil")
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
bot:
  token: "123:abc"
database:
  uri: "mongodb://localhost:27017"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Bot.Workers != 8 {
		t.Errorf("workers = %d, want 8", cfg.Bot.Workers)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Log.Level)
	}
	if cfg.Database.Name != "anjani" {
		t.Errorf("db name = %q, want anjani", cfg.Database.Name)
	}
	if cfg.AntiFlood.Limit != 5 || cfg.AntiFlood.Window != 10*time.Second {
		t.Errorf("antiflood defaults = %d/%s", cfg.AntiFlood.Limit, cfg.AntiFlood.Window)
	}
	if cfg.SpamShield.CASURL != "https://api.cas.chat" {
		t.Errorf("cas url = %q", cfg.SpamShield.CASURL)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("web port = %d, want 8080", cfg.Web.Port)
	}
	if cfg.Scheduler.SessionCheckpointCron != "@every 15m" {
		t.Errorf("checkpoint cron = %q", cfg.Scheduler.SessionCheckpointCron)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeFile(t, "config.yaml", `
bot:
  token: "from-file"
database:
  uri: "mongodb://localhost:27017"
`)
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("OWNER_ID", "777")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Bot.Token != "from-env" {
		t.Errorf("token = %q, want env value to win", cfg.Bot.Token)
	}
	if cfg.Bot.OwnerID != 777 {
		t.Errorf("owner_id = %d, want 777", cfg.Bot.OwnerID)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		path := writeFile(t, "config.yaml", `
database:
  uri: "mongodb://localhost:27017"
`)
		if _, err := Load(path); err == nil {
			t.Fatal("expected error for missing bot token, got nil")
		}
	})

	t.Run("missing database uri", func(t *testing.T) {
		path := writeFile(t, "config.yaml", `
bot:
  token: "123:abc"
`)
		if _, err := Load(path); err == nil {
			t.Fatal("expected error for missing database uri, got nil")
		}
	})
}

func TestMLEnabled(t *testing.T) {
	cases := []struct {
		name   string
		cfg    Config
		expect bool
	}{
		{"no keys", Config{}, false},
		{"openai key", Config{SpamPredict: SpamPredictConfig{OpenAIKey: "sk-x"}}, true},
		{"gemini key", Config{SpamPredict: SpamPredictConfig{GeminiKey: "g-x"}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.MLEnabled(); got != tc.expect {
				t.Errorf("MLEnabled() = %v, want %v", got, tc.expect)
			}
		})
	}
}
