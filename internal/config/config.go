// Package config loads the JSON configuration file and resolves
// ${VAR:default} environment references inside it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	ctxbundle "github.com/congde/emochat/internal/context"
	"github.com/congde/emochat/internal/embedding"
	"github.com/congde/emochat/internal/provider"
	"github.com/congde/emochat/internal/vectorstore"
)

// Config is the top-level configuration structure.
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Embedding  embedding.Config `json:"embedding"`
	Generation GenerationConfig `json:"generation"`
	Context    ContextConfig    `json:"context"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig     `json:"postgres"`
	Redis    RedisConfig        `json:"redis"`
	Qdrant   vectorstore.Config `json:"qdrant"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

// GenerationConfig names the primary text provider plus ordered fallbacks.
type GenerationConfig struct {
	Primary   provider.Config   `json:"primary"`
	Fallbacks []provider.Config `json:"fallbacks,omitempty"`
	Preamble  string            `json:"preamble,omitempty"`
}

// ContextConfig tunes the per-request context budget.
type ContextConfig struct {
	Limit       float64 `json:"limit,omitempty"`
	CompactAt   float64 `json:"compact_at,omitempty"`
	SummarizeAt float64 `json:"summarize_at,omitempty"`
}

// Budget converts the tuning values into a manager config, falling back to
// the documented defaults for anything unset.
func (c ContextConfig) Budget() ctxbundle.Config {
	cfg := ctxbundle.DefaultConfig()
	if c.Limit > 0 {
		cfg.Limit = c.Limit
	}
	if c.CompactAt > 0 {
		cfg.CompactAt = c.CompactAt
	}
	if c.SummarizeAt > 0 {
		cfg.SummarizeAt = c.SummarizeAt
	}
	return cfg
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = "info"
	}
	return &cfg, nil
}
