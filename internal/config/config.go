package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/planetquant/quant-engine/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Sources SourcesConfig `mapstructure:"sources"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	Mode   string `mapstructure:"mode"`
	APIKey string `mapstructure:"api_key"`
}

// SourcesConfig holds the three data-source settings. LookupTimeout is the
// per-lookup ceiling applied by the orchestrator, not an HTTP client timeout.
type SourcesConfig struct {
	LookupTimeout time.Duration    `mapstructure:"lookup_timeout"`
	Wikipedia     WikipediaConfig  `mapstructure:"wikipedia"`
	Finnhub       FinnhubConfig    `mapstructure:"finnhub"`
	Polymarket    PolymarketConfig `mapstructure:"polymarket"`
}

type WikipediaConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	MaxResults int    `mapstructure:"max_results"`
}

type FinnhubConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	NewsDaysBack int    `mapstructure:"news_days_back"`
}

type PolymarketConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Limit   int    `mapstructure:"limit"`
}

// LLMConfig holds inference settings. A missing API key is recoverable at
// request time (the scorer reports it as an error-shaped result), so it is
// deliberately not a validation failure.
type LLMConfig struct {
	Provider string         `mapstructure:"provider"`
	Groq     ProviderConfig `mapstructure:"groq"`
	OpenAI   ProviderConfig `mapstructure:"openai"`
	Claude   ProviderConfig `mapstructure:"claude"`
}

type ProviderConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// ArchiveConfig holds optional analysis archival settings.
type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Mode: "release",
		},
		Sources: SourcesConfig{
			LookupTimeout: 15 * time.Second,
			Wikipedia: WikipediaConfig{
				MaxResults: 3,
			},
			Finnhub: FinnhubConfig{
				NewsDaysBack: 7,
			},
			Polymarket: PolymarketConfig{
				Limit: 20,
			},
		},
		LLM: LLMConfig{
			Provider: "groq",
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Type:    "localfs",
			Path:    "data/analyses",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Sources.LookupTimeout <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("lookup_timeout must be positive, got %s", c.Sources.LookupTimeout))
	}
	if c.Sources.Wikipedia.MaxResults < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("wikipedia max_results must be at least 1, got %d", c.Sources.Wikipedia.MaxResults))
	}
	if c.Sources.Finnhub.NewsDaysBack < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("finnhub news_days_back must be at least 1, got %d", c.Sources.Finnhub.NewsDaysBack))
	}
	if c.Sources.Polymarket.Limit < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("polymarket limit must be at least 1, got %d", c.Sources.Polymarket.Limit))
	}

	switch c.LLM.Provider {
	case "", "groq", "openai", "claude":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown llm provider %q", c.LLM.Provider))
	}

	if c.Archive.Enabled {
		switch c.Archive.Type {
		case "localfs":
			if c.Archive.Path == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("archive path required for localfs"))
			}
		case "s3":
			if c.Archive.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("s3 bucket required when archive type is s3"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown archive type %q", c.Archive.Type))
		}
	}

	return nil
}
