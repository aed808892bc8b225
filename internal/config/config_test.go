package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSubstitutesEnvVars(t *testing.T) {
	t.Setenv("EMOCHAT_DSN", "postgres://u:p@db:5432/emochat")
	path := writeConfig(t, `{
		"server": {"port": 9090},
		"database": {
			"postgres": {"dsn": "${EMOCHAT_DSN}"},
			"redis": {"url": "${EMOCHAT_REDIS:redis://localhost:6379/0}"}
		}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.Postgres.DSN != "postgres://u:p@db:5432/emochat" {
		t.Errorf("dsn = %s", cfg.Database.Postgres.DSN)
	}
	// Unset variable falls back to its inline default.
	if cfg.Database.Redis.URL != "redis://localhost:6379/0" {
		t.Errorf("redis url = %s", cfg.Database.Redis.URL)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `{}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Server.LogLevel != "info" {
		t.Errorf("log level = %s", cfg.Server.LogLevel)
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestContextBudgetOverrides(t *testing.T) {
	c := ContextConfig{Limit: 4000}
	budget := c.Budget()
	if budget.Limit != 4000 {
		t.Errorf("limit = %v", budget.Limit)
	}
	// Unset thresholds keep their defaults.
	if budget.CompactAt != 0.8 || budget.SummarizeAt != 1.0 {
		t.Errorf("thresholds = %v/%v", budget.CompactAt, budget.SummarizeAt)
	}
}
