package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level application configuration.
type Config struct {
	Amplitude AmplitudeConfig `koanf:"amplitude"`
	Report    ReportConfig    `koanf:"report"`
	Anthropic AnthropicConfig `koanf:"anthropic"`
	Email     EmailConfig     `koanf:"email"`
	Database  DatabaseConfig  `koanf:"database"`
	Server    ServerConfig    `koanf:"server"`
}

type AmplitudeConfig struct {
	APIKey    string `koanf:"api_key"`
	SecretKey string `koanf:"secret_key"`
	BaseURL   string `koanf:"base_url"`
}

type ReportConfig struct {
	// TaxonomyDir holds per-kind YAML overrides for the event taxonomy.
	// A missing directory means the built-in taxonomy is used.
	TaxonomyDir string `koanf:"taxonomy_dir"`

	ScreenProperty         string `koanf:"screen_property"`
	ScreenFallbackProperty string `koanf:"screen_fallback_property"`
	ScreenCap              int    `koanf:"screen_cap"`

	// Partitions > 1 turns on the partition-then-merge parallel pass.
	Partitions int `koanf:"partitions"`
}

type AnthropicConfig struct {
	Enabled   bool   `koanf:"enabled"`
	APIKey    string `koanf:"api_key"`
	Model     string `koanf:"model"`
	MaxTokens int    `koanf:"max_tokens"`
	BaseURL   string `koanf:"base_url"`
}

type EmailConfig struct {
	Enabled  bool   `koanf:"enabled"`
	SMTPHost string `koanf:"smtp_host"`
	SMTPPort int    `koanf:"smtp_port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	To       string `koanf:"to"` // comma-separated
}

type DatabaseConfig struct {
	// DSN empty disables the report archive entirely.
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
	Mode string `koanf:"mode"` // debug | release
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Amplitude.APIKey) == "" {
		return fmt.Errorf("amplitude.api_key is required")
	}
	if strings.TrimSpace(c.Amplitude.SecretKey) == "" {
		return fmt.Errorf("amplitude.secret_key is required")
	}

	if strings.TrimSpace(c.Report.ScreenProperty) == "" {
		return fmt.Errorf("report.screen_property is required")
	}
	if c.Report.ScreenCap <= 0 {
		return fmt.Errorf("report.screen_cap must be > 0")
	}
	if c.Report.Partitions <= 0 {
		return fmt.Errorf("report.partitions must be > 0")
	}

	if c.Anthropic.Enabled {
		if strings.TrimSpace(c.Anthropic.APIKey) == "" {
			return fmt.Errorf("anthropic.api_key is required when anthropic.enabled")
		}
		if c.Anthropic.MaxTokens <= 0 {
			return fmt.Errorf("anthropic.max_tokens must be > 0")
		}
	}

	if c.Email.Enabled {
		if strings.TrimSpace(c.Email.SMTPHost) == "" {
			return fmt.Errorf("email.smtp_host is required when email.enabled")
		}
		if c.Email.SMTPPort <= 0 || c.Email.SMTPPort > 65535 {
			return fmt.Errorf("invalid email.smtp_port %d (must be 1-65535)", c.Email.SMTPPort)
		}
		if strings.TrimSpace(c.Email.From) == "" {
			return fmt.Errorf("email.from is required when email.enabled")
		}
		if strings.TrimSpace(c.Email.To) == "" {
			return fmt.Errorf("email.to is required when email.enabled")
		}
	}

	if c.Database.DSN != "" {
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database.max_idle_conns must be > 0")
		}
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	return nil
}

// Load parses config from file + env and validates it.
// Env overrides use the DAILYBRIEF_ prefix with __ as the section
// separator, e.g. DAILYBRIEF_AMPLITUDE__API_KEY.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"amplitude.base_url":              "",
		"report.taxonomy_dir":             "./config/taxonomy",
		"report.screen_property":          "screen_name",
		"report.screen_fallback_property": "screen",
		"report.screen_cap":               12,
		"report.partitions":               1,
		"anthropic.enabled":               true,
		"anthropic.model":                 "claude-sonnet-4-5-20250929",
		"anthropic.max_tokens":            1500,
		"anthropic.base_url":              "",
		"email.enabled":                   true,
		"email.smtp_port":                 587,
		"database.dsn":                    "",
		"database.max_open_conns":         25,
		"database.max_idle_conns":         25,
		"database.auto_migrate":           true,
		"server.host":                     "0.0.0.0",
		"server.port":                     8080,
		"server.mode":                     "release",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("DAILYBRIEF_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "DAILYBRIEF_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
