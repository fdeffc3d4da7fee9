package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/fusebox"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// metricNamePattern is the character set Prometheus accepts for namespace
// and metric names.
var metricNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

type BreakerConfig struct {
	MaxFailures  int    `mapstructure:"max_failures"`
	ResetTimeout string `mapstructure:"reset_timeout"`
	TimeUnit     string `mapstructure:"time_unit"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Environment string `mapstructure:"environment"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Namespace string `mapstructure:"namespace"`
}

type Config struct {
	Breaker BreakerConfig `mapstructure:"breaker"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Peers   []string      `mapstructure:"peers"`
}

func Load() (*Config, error) {
	viper.SetDefault("breaker.max_failures", 3)
	viper.SetDefault("breaker.reset_timeout", "10s")
	viper.SetDefault("breaker.time_unit", "60s")
	viper.SetDefault("logging.level", LogLevelInfo)
	viper.SetDefault("logging.environment", EnvDev)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.address", ":9090")
	viper.SetDefault("metrics.namespace", "fusebox")

	viper.SetConfigName("fusebox")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Breaker,
			validation.Required,
			validation.By(func(value interface{}) error {
				bc, ok := value.(BreakerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BreakerConfig")
				}
				return validation.ValidateStruct(&bc,
					validation.Field(&bc.MaxFailures,
						validation.Min(0),
					),
					validation.Field(&bc.ResetTimeout,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&bc.TimeUnit,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
					validation.Field(&lc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.Required,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
					validation.Field(&mc.Namespace,
						validation.Required,
						validation.Match(metricNamePattern),
					),
				)
			}),
		),
		validation.Field(&c.Peers,
			validation.Each(validation.By(validatePeerURL)),
		),
	)
}

// Options converts the breaker section into functional options for
// fusebox.New or fusebox.NewRegistry. Classifiers cannot be expressed in
// configuration; attach them with fusebox.WithErrorKinds at the call site.
func (c BreakerConfig) Options() ([]fusebox.Option, error) {
	resetTimeout, err := time.ParseDuration(c.ResetTimeout)
	if err != nil {
		return nil, fmt.Errorf("parsing breaker.reset_timeout: %w", err)
	}

	timeUnit, err := time.ParseDuration(c.TimeUnit)
	if err != nil {
		return nil, fmt.Errorf("parsing breaker.time_unit: %w", err)
	}

	return []fusebox.Option{
		fusebox.WithMaxFailures(c.MaxFailures),
		fusebox.WithResetTimeout(resetTimeout),
		fusebox.WithTimeUnit(timeUnit),
	}, nil
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 10s, 1m)")
	}

	if d <= 0 {
		return validation.NewError("validation_nonpositive_duration", "must be a positive duration")
	}

	return nil
}

func validatePeerURL(value interface{}) error {
	peerURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if peerURL == "" {
		return validation.NewError("validation_empty_url", "peer URL cannot be empty")
	}

	parsedURL, err := url.Parse(peerURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}
