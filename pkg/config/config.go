// Package config loads agent settings from defaults, an optional YAML file,
// the environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. CODE_AGENT_MAX_TURNS
const EnvPrefix = "CODE_AGENT"

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// ErrMissingAPIKey is returned when the selected provider has no credential
var ErrMissingAPIKey = errors.New("missing API key")

// Config represents the configuration of one agent invocation
type Config struct {
	Provider       string        `mapstructure:"provider"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxTurns       int           `mapstructure:"max_turns"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	WorkingDir     string        `mapstructure:"working_dir"`
	SystemPrompt   string        `mapstructure:"system_prompt"`
	Verbose        bool          `mapstructure:"verbose"`

	Gemini ProviderConfig `mapstructure:"gemini"`
	OpenAI ProviderConfig `mapstructure:"openai"`

	Tools struct {
		MaxFileChars    int           `mapstructure:"max_file_chars"`
		ScriptTimeout   time.Duration `mapstructure:"script_timeout"`
		Interpreter     string        `mapstructure:"interpreter"`
		ScriptExtension string        `mapstructure:"script_extension"`
	} `mapstructure:"tools"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`

	Tracing struct {
		Enabled           bool   `mapstructure:"enabled"`
		ServiceName       string `mapstructure:"service_name"`
		CollectorEndpoint string `mapstructure:"collector_endpoint"`
	} `mapstructure:"tracing"`

	Output struct {
		Format string `mapstructure:"format"`
		File   string `mapstructure:"file"`
	} `mapstructure:"output"`
}

// ProviderConfig holds the settings of one model provider
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// SetDefaults registers every key with its default value
func SetDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("temperature", 0.7)
	v.SetDefault("max_turns", 20)
	v.SetDefault("request_timeout", 60*time.Second)
	v.SetDefault("working_dir", ".")
	v.SetDefault("system_prompt", "")
	v.SetDefault("verbose", false)

	v.SetDefault("gemini.model", "gemini-2.0-flash-001")
	v.SetDefault("gemini.base_url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "")

	v.SetDefault("tools.max_file_chars", 10000)
	v.SetDefault("tools.script_timeout", 30*time.Second)
	v.SetDefault("tools.interpreter", "python3")
	v.SetDefault("tools.script_extension", ".py")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "code-agent")
	v.SetDefault("tracing.collector_endpoint", "localhost:4317")

	v.SetDefault("output.format", "text")
	v.SetDefault("output.file", "")
}

// bindEnv wires the well-known variable names used by the providers and
// OpenTelemetry next to the prefixed ones.
func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string][]string{
		"gemini.api_key":             {EnvPrefix + "_GEMINI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"openai.api_key":             {EnvPrefix + "_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"openai.base_url":            {EnvPrefix + "_OPENAI_BASE_URL", "OPENAI_BASE_URL"},
		"tracing.enabled":            {EnvPrefix + "_TRACING_ENABLED", "OTEL_ENABLED"},
		"tracing.service_name":       {EnvPrefix + "_TRACING_SERVICE_NAME", "OTEL_SERVICE_NAME"},
		"tracing.collector_endpoint": {EnvPrefix + "_TRACING_COLLECTOR_ENDPOINT", "OTEL_COLLECTOR_ENDPOINT"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// Load reads configuration into a Config. configFile may be empty, in which
// case agent.yaml is looked up in the current directory and in
// $HOME/.code-agent; a missing file is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("agent")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".code-agent"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	if cfg.Verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// Active returns the settings of the selected provider
func (c *Config) Active() ProviderConfig {
	if c.Provider == ProviderOpenAI {
		return c.OpenAI
	}
	return c.Gemini
}

// Validate checks the configuration for values the agent cannot run with
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingAPIKey)
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingAPIKey)
		}
	default:
		return fmt.Errorf("unsupported provider %q (want %s or %s)", c.Provider, ProviderGemini, ProviderOpenAI)
	}

	if c.Active().Model == "" {
		return fmt.Errorf("model must not be empty")
	}
	if c.MaxTurns < 1 {
		return fmt.Errorf("max_turns must be at least 1, got %d", c.MaxTurns)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %g", c.Temperature)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}

	info, err := os.Stat(c.WorkingDir)
	if err != nil {
		return fmt.Errorf("working_dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("working_dir %q is not a directory", c.WorkingDir)
	}

	if c.Tools.MaxFileChars < 1 {
		return fmt.Errorf("tools.max_file_chars must be positive")
	}
	if c.Tools.ScriptTimeout <= 0 {
		return fmt.Errorf("tools.script_timeout must be positive")
	}
	if c.Tools.Interpreter == "" {
		return fmt.Errorf("tools.interpreter must not be empty")
	}

	switch c.Output.Format {
	case "text", "markdown", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output format %q", c.Output.Format)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unsupported log format %q", c.Logging.Format)
	}
	return nil
}
