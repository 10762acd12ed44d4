package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	APIKey          string   `mapstructure:"api_key" yaml:"api_key"`
	DefaultProvider string   `mapstructure:"default_provider" yaml:"default_provider"`
	DefaultModel    string   `mapstructure:"default_model" yaml:"default_model"`
	PreferredModels []string `mapstructure:"preferred_models" yaml:"preferred_models"`
	MaxTokens       int      `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature     float64  `mapstructure:"temperature" yaml:"temperature"`

	// Batch annotation
	BatchSize       int `mapstructure:"batch_size" yaml:"batch_size"`
	Concurrency     int `mapstructure:"concurrency" yaml:"concurrency"`
	BatchTimeoutSec int `mapstructure:"batch_timeout_sec" yaml:"batch_timeout_sec"`

	// Output
	OutputDirName string `mapstructure:"output_dir_name" yaml:"output_dir_name"`
	InsightsLimit int    `mapstructure:"insights_limit" yaml:"insights_limit"`
	HistoryDB     string `mapstructure:"history_db" yaml:"history_db"`

	// Optional JSON file merged into the model catalog at startup
	ModelsCatalogPath string `mapstructure:"models_catalog_path" yaml:"models_catalog_path"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Dir returns ~/.tabsight.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tabsight"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tabsight/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("TABSIGHT")
	v.AutomaticEnv()

	v.SetDefault("api_key", "")
	v.SetDefault("default_provider", "ollama")
	v.SetDefault("default_model", "")
	v.SetDefault("preferred_models", []string{"phi3:mini", "mistral:latest", "llama3:8b"})
	v.SetDefault("max_tokens", 1024)
	v.SetDefault("temperature", 0.1)
	v.SetDefault("batch_size", 5)
	v.SetDefault("concurrency", 1)
	v.SetDefault("batch_timeout_sec", 120)
	v.SetDefault("output_dir_name", "processed_results")
	v.SetDefault("insights_limit", 5)
	v.SetDefault("history_db", "")
	v.SetDefault("models_catalog_path", "")
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	// Ollama defaults
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ollama_timeout_sec", 120)
	v.SetDefault("log_level", "warn")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Global) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be >= 1, got %d", c.BatchSize)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be within [0,2], got %g", c.Temperature)
	}
	if c.InsightsLimit < 1 {
		return fmt.Errorf("insights_limit must be >= 1, got %d", c.InsightsLimit)
	}
	if strings.TrimSpace(c.OutputDirName) == "" {
		return fmt.Errorf("output_dir_name cannot be empty")
	}
	return nil
}

// NormalizeProvider maps accepted spellings to a canonical provider name.
func NormalizeProvider(val string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "openrouter":
		return "openrouter", nil
	case "ollama", "local":
		return "ollama", nil
	}
	return "", fmt.Errorf("invalid provider: %s (use openrouter or ollama)", val)
}

// Set assigns a single key from its textual form, as used by `config set`.
func (c *Global) Set(key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("invalid int for %s: %w", key, err)
		}
		return i, nil
	}
	var err error
	switch key {
	case "api_key":
		c.APIKey = val
	case "default_model":
		c.DefaultModel = val
	case "default_provider":
		c.DefaultProvider, err = NormalizeProvider(val)
	case "preferred_models":
		var list []string
		for _, p := range strings.Split(val, ",") {
			if p = strings.TrimSpace(p); p != "" {
				list = append(list, p)
			}
		}
		c.PreferredModels = list
	case "max_tokens":
		c.MaxTokens, err = atoi()
	case "temperature":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil {
			return fmt.Errorf("invalid float for temperature: %w", perr)
		}
		c.Temperature = f
	case "batch_size":
		c.BatchSize, err = atoi()
	case "concurrency":
		c.Concurrency, err = atoi()
	case "batch_timeout_sec":
		c.BatchTimeoutSec, err = atoi()
	case "output_dir_name":
		c.OutputDirName = val
	case "insights_limit":
		c.InsightsLimit, err = atoi()
	case "history_db":
		c.HistoryDB = val
	case "models_catalog_path":
		c.ModelsCatalogPath = val
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi()
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi()
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi()
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = atoi()
	case "ollama_host":
		c.OllamaHost = val
	case "ollama_timeout_sec":
		c.OllamaTimeoutSec, err = atoi()
	case "log_level":
		c.LogLevel = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err != nil {
		return err
	}
	return c.Validate()
}
