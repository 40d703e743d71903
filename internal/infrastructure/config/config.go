package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	apperrors "github.com/davidleathers/aurelius-backend/internal/domain/errors"
)

// DefaultConfigPath is read when no explicit path is given; it is optional.
const DefaultConfigPath = "configs/config.yaml"

// EnvPrefix is stripped from environment variables before they are mapped onto config keys.
const EnvPrefix = "AURELIUS_"

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment" validate:"required"`
	LogLevel    string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	Redis      RedisConfig      `koanf:"redis"`
	LocalStore LocalStoreConfig `koanf:"local_store"`
	Scheduler  SchedulerConfig  `koanf:"scheduler"`
	Analytics  AnalyticsConfig  `koanf:"analytics"`
	RateLimits RateLimitConfig  `koanf:"rate_limits"`
	OpenAI     OpenAIConfig     `koanf:"openai"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

type RedisConfig struct {
	URL          string        `koanf:"url" validate:"required"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db" validate:"gte=0"`
	PoolSize     int           `koanf:"pool_size" validate:"gte=0"`
	MinIdleConns int           `koanf:"min_idle_conns" validate:"gte=0"`
	MaxRetries   int           `koanf:"max_retries"`
	DialTimeout  time.Duration `koanf:"dial_timeout" validate:"gt=0"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// LocalStoreConfig configures the sqlite file used when Redis is unreachable.
type LocalStoreConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path" validate:"required_if=Enabled true"`
}

type SchedulerConfig struct {
	AnalyticsInterval time.Duration `koanf:"analytics_interval" validate:"gt=0"`
	LearningInterval  time.Duration `koanf:"learning_interval" validate:"gt=0"`
	HealthInterval    time.Duration `koanf:"health_interval" validate:"gt=0"`
	ContentInterval   time.Duration `koanf:"content_interval" validate:"gt=0"`
	RetryDelay        time.Duration `koanf:"retry_delay" validate:"gt=0"`
}

type AnalyticsConfig struct {
	ReportTTL time.Duration `koanf:"report_ttl" validate:"gt=0"`
	ExportDir string        `koanf:"export_dir"`
}

type RateLimitConfig struct {
	Twitter  int `koanf:"twitter" validate:"gte=0"`
	Mastodon int `koanf:"mastodon" validate:"gte=0"`
	Discord  int `koanf:"discord" validate:"gte=0"`
}

// Limit returns the hourly call budget for a platform name.
func (r RateLimitConfig) Limit(platform string) int {
	switch platform {
	case "twitter":
		return r.Twitter
	case "mastodon":
		return r.Mastodon
	case "discord":
		return r.Discord
	default:
		return 0
	}
}

type OpenAIConfig struct {
	APIKey            string        `koanf:"api_key"`
	BaseURL           string        `koanf:"base_url"`
	Model             string        `koanf:"model"`
	RequestsPerMinute int           `koanf:"requests_per_minute" validate:"gte=0"`
	Timeout           time.Duration `koanf:"timeout"`
}

type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

type TelemetryConfig struct {
	Enabled      bool          `koanf:"enabled"`
	OTLPEndpoint string        `koanf:"otlp_endpoint"`
	SamplingRate float64       `koanf:"sampling_rate" validate:"gte=0,lte=1"`
	BatchTimeout time.Duration `koanf:"batch_timeout"`
}

// Defaults returns the configuration used before any file or environment overrides.
func Defaults() *Config {
	return &Config{
		Version:     "dev",
		Environment: "development",
		LogLevel:    "info",
		Redis: RedisConfig{
			URL:          "localhost:6379",
			PoolSize:     10,
			MinIdleConns: 1,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		LocalStore: LocalStoreConfig{
			Enabled: true,
			Path:    "local_storage/aurelius.db",
		},
		Scheduler: SchedulerConfig{
			AnalyticsInterval: 24 * time.Hour,
			LearningInterval:  12 * time.Hour,
			HealthInterval:    15 * time.Minute,
			ContentInterval:   time.Hour,
			RetryDelay:        5 * time.Minute,
		},
		Analytics: AnalyticsConfig{
			ReportTTL: 30 * 24 * time.Hour,
		},
		RateLimits: RateLimitConfig{
			Twitter:  100,
			Mastodon: 100,
			Discord:  100,
		},
		OpenAI: OpenAIConfig{
			Model:             "gpt-4o",
			RequestsPerMinute: 20,
			Timeout:           60 * time.Second,
		},
		Metrics: MetricsConfig{
			Addr: ":9102",
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			SamplingRate: 1.0,
			BatchTimeout: 5 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, an optional .env file and
// AURELIUS_ prefixed environment variables, in that order of precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = DefaultConfigPath
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading config file %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKey maps AURELIUS_SCHEDULER__LEARNING_INTERVAL to scheduler.learning_interval.
// A double underscore separates sections so single underscores can stay inside key names.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Validate checks field constraints declared in the struct tags.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return apperrors.NewValidationError("INVALID_CONFIG",
				"configuration validation failed: "+strings.Join(fields, ", ")).WithCause(err)
		}
		return apperrors.NewValidationError("INVALID_CONFIG", "configuration validation failed").WithCause(err)
	}
	return nil
}
