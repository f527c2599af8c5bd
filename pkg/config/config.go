// Package config parses the tap configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aniketwaliyan/tap-fastly/internal/state"
	"github.com/aniketwaliyan/tap-fastly/pkg/env"
)

// ErrMissingKey is returned when a required key is absent.
var ErrMissingKey = errors.New("missing required config key")

// Config holds the tap configuration
type Config struct {
	APIToken       string `yaml:"api_token"`
	StartDate      string `yaml:"start_date"`
	BaseURL        string `yaml:"base_url"`
	UserAgent      string `yaml:"user_agent"`
	RequestTimeout string `yaml:"request_timeout"`

	Sink struct {
		Type    string   `yaml:"type"`
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"sink"`

	State struct {
		Backend string `yaml:"backend"`
		Path    string `yaml:"path"`
		DSN     string `yaml:"dsn"`
		Addr    string `yaml:"addr"`
		Key     string `yaml:"key"`
		Table   string `yaml:"table"`
		TapID   string `yaml:"tap_id"`
	} `yaml:"state"`
}

// Parser handles configuration parsing
type Parser struct {
	env *env.Config
}

// NewParser creates a new configuration parser. Values from e fill keys the
// file leaves empty; e may be nil.
func NewParser(e *env.Config) *Parser {
	return &Parser{env: e}
}

var envVarPattern = regexp.MustCompile(`\${([^}]+)}`)

// Parse reads, expands and validates the configuration file. JSON files
// parse as YAML.
func (p *Parser) Parse(filePath string) (*Config, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filePath)
	}

	data, err := os.ReadFile(filepath.Clean(filePath))
	if err != nil {
		return nil, fmt.Errorf("error reading configuration file: %w", err)
	}

	content := envVarPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		value := os.Getenv(match[2 : len(match)-1])
		if value == "" {
			// Keep the reference so validation can report it.
			return match
		}
		return value
	})

	var cfg Config
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return nil, fmt.Errorf("error parsing configuration: %w", err)
	}
	p.applyEnv(&cfg)

	if err := p.validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (p *Parser) applyEnv(cfg *Config) {
	if p.env == nil {
		return
	}
	fill := func(dst *string, v string) {
		if *dst == "" || envVarPattern.MatchString(*dst) {
			*dst = v
		}
	}
	fill(&cfg.APIToken, p.env.APIToken)
	fill(&cfg.StartDate, p.env.StartDate)
	fill(&cfg.BaseURL, p.env.BaseURL)
	fill(&cfg.State.DSN, p.env.StateDSN)
	if len(cfg.Sink.Brokers) == 0 {
		cfg.Sink.Brokers = p.env.KafkaBrokers
	}
}

func (p *Parser) validate(cfg *Config) error {
	if cfg.APIToken == "" || envVarPattern.MatchString(cfg.APIToken) {
		return fmt.Errorf("%w: api_token", ErrMissingKey)
	}
	if cfg.StartDate == "" {
		return fmt.Errorf("%w: start_date", ErrMissingKey)
	}
	if _, err := state.ParseTimestamp(cfg.StartDate); err != nil {
		return fmt.Errorf("start_date: %w", err)
	}
	if cfg.RequestTimeout != "" {
		if _, err := time.ParseDuration(cfg.RequestTimeout); err != nil {
			return fmt.Errorf("request_timeout: %w", err)
		}
	}
	switch cfg.Sink.Type {
	case "", "stdout":
	case "kafka":
		if len(cfg.Sink.Brokers) == 0 || cfg.Sink.Topic == "" {
			return fmt.Errorf("kafka sink requires brokers and topic")
		}
	default:
		return fmt.Errorf("unsupported sink type %q", cfg.Sink.Type)
	}
	switch cfg.State.Backend {
	case "", "none", "file", "postgres", "sqlserver", "redis":
	default:
		return fmt.Errorf("unsupported state backend %q", cfg.State.Backend)
	}
	return nil
}

// StartTime returns the parsed start date.
func (c *Config) StartTime() time.Time {
	t, _ := state.ParseTimestamp(c.StartDate)
	return t
}

// Timeout returns the per-request timeout, zero when unset.
func (c *Config) Timeout() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

// StateOptions maps the state section onto store options.
func (c *Config) StateOptions() state.Options {
	return state.Options{
		Backend: c.State.Backend,
		Path:    c.State.Path,
		DSN:     c.State.DSN,
		Addr:    c.State.Addr,
		Key:     c.State.Key,
		Table:   c.State.Table,
		TapID:   c.State.TapID,
	}
}
