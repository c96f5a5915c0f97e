// Package config loads ragscore runtime configuration. Defaults come from
// DefaultConfig; a YAML file, when given, is decoded on top of them so it
// only needs to name the values it changes.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ragscore/internal/llm/configuration"
	"github.com/ahrav/go-ragscore/internal/scoring"
	"github.com/ahrav/go-ragscore/internal/storage"
)

// Defaults for the logging and worker sections.
const (
	DefaultTemporalHostPort  = "localhost:7233"
	DefaultTemporalNamespace = "default"
	DefaultTaskQueue         = "ragscore"
	DefaultMetricsAddr       = ":9090"
	DefaultLogLevel          = "info"
)

// ErrInvalidConfig indicates a configuration value that cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete runtime configuration.
type Config struct {
	LogLevel     string                `yaml:"log_level"`
	LLM          *configuration.Config `yaml:"llm"`
	Evaluators   EvaluatorsConfig      `yaml:"evaluators"`
	Orchestrator OrchestratorConfig    `yaml:"orchestrator"`
	Temporal     TemporalConfig        `yaml:"temporal"`
	Metrics      MetricsConfig         `yaml:"metrics"`
	Storage      storage.Config        `yaml:"storage"`
}

// EvaluatorsConfig supplies evaluator dependencies.
type EvaluatorsConfig struct {
	// ExternalURL is the endpoint of the external faithfulness service.
	ExternalURL string `yaml:"external_url"`
	// PolicyFile holds the bullet list policy used by the policy judges.
	PolicyFile string `yaml:"policy_file"`
}

// OrchestratorConfig controls the in-process orchestrator.
type OrchestratorConfig struct {
	Mode    string `yaml:"mode"`
	Workers int    `yaml:"workers"`
}

// TemporalConfig locates the Temporal frontend used by the worker command.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port"`
	Namespace string `yaml:"namespace"`
	TaskQueue string `yaml:"task_queue"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a configuration usable without a file.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		LLM:      configuration.DefaultConfig(),
		Orchestrator: OrchestratorConfig{
			Mode:    string(scoring.ModeSequential),
			Workers: scoring.DefaultWorkers,
		},
		Temporal: TemporalConfig{
			HostPort:  DefaultTemporalHostPort,
			Namespace: DefaultTemporalNamespace,
			TaskQueue: DefaultTaskQueue,
		},
		Metrics: MetricsConfig{Addr: DefaultMetricsAddr},
	}
}

// Load returns DefaultConfig overlaid with the YAML file at path, with API
// keys resolved from the environment. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if cfg.LLM == nil {
		cfg.LLM = configuration.DefaultConfig()
	}
	cfg.LLM.ResolveAPIKeys()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that do not depend on external services.
func (c *Config) Validate() error {
	if _, err := scoring.ParseMode(c.Orchestrator.Mode); err != nil {
		return fmt.Errorf("%w: orchestrator.mode: %w", ErrInvalidConfig, err)
	}
	if c.Orchestrator.Workers < 0 {
		return fmt.Errorf("%w: orchestrator.workers must not be negative", ErrInvalidConfig)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// PolicyText reads the policy file, or returns "" when none is configured.
func (c *Config) PolicyText() (string, error) {
	if c.Evaluators.PolicyFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.Evaluators.PolicyFile)
	if err != nil {
		return "", fmt.Errorf("read policy: %w", err)
	}
	return string(data), nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, s)
	}
}
