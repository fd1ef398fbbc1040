package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Webhook.Path != "/api/webhook" {
		t.Errorf("expected default webhook path %q, got %q", "/api/webhook", cfg.Webhook.Path)
	}
	if cfg.Model.MaxTokens != 500 {
		t.Errorf("expected default max_tokens 500, got %d", cfg.Model.MaxTokens)
	}
	if cfg.Model.Temperature != 0.7 {
		t.Errorf("expected default temperature 0.7, got %f", cfg.Model.Temperature)
	}
	if cfg.Teams.DefaultTenant != "botframework.com" {
		t.Errorf("expected default tenant botframework.com, got %q", cfg.Teams.DefaultTenant)
	}
	if cfg.Webhook.VerifySlackSignatures {
		t.Error("signature verification should be opt-in")
	}
	if !cfg.Webhook.AsyncDispatch {
		t.Error("webhooks should be acknowledged before replying by default")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.relay.yml")

	original := DefaultConfig()
	original.Server.Port = 9191
	original.Webhook.Path = "/hooks/chat"
	original.Webhook.VerifySlackSignatures = true
	original.Webhook.LoopGuard = LoopGuardStrict
	original.Model.Temperature = 0.2
	original.Teams.DefaultServiceURL = "https://smba.infra.gcc.teams.microsoft.com/teams/"

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Server.Port != 9191 {
		t.Errorf("port: got %d, want 9191", loaded.Server.Port)
	}
	if loaded.Webhook.Path != "/hooks/chat" {
		t.Errorf("webhook.path: got %q", loaded.Webhook.Path)
	}
	if !loaded.Webhook.VerifySlackSignatures {
		t.Error("verify_slack_signatures not round-tripped")
	}
	if loaded.Webhook.LoopGuard != LoopGuardStrict {
		t.Errorf("loop_guard: got %q", loaded.Webhook.LoopGuard)
	}
	if loaded.Model.Temperature != 0.2 {
		t.Errorf("temperature: got %f", loaded.Model.Temperature)
	}
	if loaded.Teams.DefaultServiceURL != original.Teams.DefaultServiceURL {
		t.Errorf("teams.default_service_url: got %q", loaded.Teams.DefaultServiceURL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yml")
	if err := os.WriteFile(path, []byte("model:\n  max_tokens: 256\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model.MaxTokens != 256 {
		t.Errorf("max_tokens: got %d, want 256", cfg.Model.MaxTokens)
	}
	if cfg.Model.Temperature != 0.7 {
		t.Errorf("temperature should keep its default, got %f", cfg.Model.Temperature)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yml")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("RELAY_SERVER__PORT", "9090")
	t.Setenv("RELAY_DATA_DIR", "/var/lib/relay")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("env override failed: got %d, want 9090", loaded.Server.Port)
	}
	if loaded.DataDir != "/var/lib/relay" {
		t.Errorf("env override failed: got %q", loaded.DataDir)
	}
	if loaded.DatabasePath() != filepath.Join("/var/lib/relay", "relay.db") {
		t.Errorf("DatabasePath() = %q", loaded.DatabasePath())
	}
}

func TestValidateValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}
}

func TestValidateInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative port", func(c *Config) { c.Server.Port = -1 }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"relative webhook path", func(c *Config) { c.Webhook.Path = "webhook" }},
		{"unknown loop guard", func(c *Config) { c.Webhook.LoopGuard = "paranoid" }},
		{"zero max tokens", func(c *Config) { c.Model.MaxTokens = 0 }},
		{"temperature too high", func(c *Config) { c.Model.Temperature = 3 }},
		{"empty fallback", func(c *Config) { c.Model.FallbackResponse = "" }},
		{"bad slack url", func(c *Config) { c.Slack.APIURL = "slack.com/api" }},
		{"bad login url", func(c *Config) { c.Teams.LoginURL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
