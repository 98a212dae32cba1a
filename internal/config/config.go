// Package config resolves tracelens settings from flags, TRACELENS_*
// environment variables and an optional YAML file, then validates them.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/andrewh/tracelens/pkg/phoenix"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by tracelens.
const EnvPrefix = "TRACELENS"

// DefaultFile is the config file looked up in the home directory.
const DefaultFile = ".tracelens.yaml"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("mapstructure")
	})
	return v
}

// Defaults returns the settings used when nothing overrides them.
func Defaults() Config {
	return Config{
		Endpoint:     "http://localhost:6006",
		Project:      phoenix.DefaultProjectID,
		Timeout:      30 * time.Second,
		CacheSize:    10000,
		LogLevel:     "warn",
		Telemetry:    "none",
		OTLPProtocol: "http/protobuf",
	}
}

// New returns a viper instance with tracelens defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	d := Defaults()
	v.SetDefault("endpoint", d.Endpoint)
	v.SetDefault("api-key", d.APIKey)
	v.SetDefault("project", d.Project)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("rate", d.Rate)
	v.SetDefault("cache-size", d.CacheSize)
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("telemetry", d.Telemetry)
	v.SetDefault("otlp-endpoint", d.OTLPEndpoint)
	v.SetDefault("otlp-protocol", d.OTLPProtocol)
	v.SetDefault("slow-threshold", d.SlowThreshold)
	v.SetDefault("pprof", d.Pprof)
	v.SetDefault("pyroscope", d.Pyroscope)
	v.SetDefault("metrics-addr", d.MetricsAddr)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file, applies flags and environment variables and
// validates the result. An explicit path must exist; without one the home
// directory file is optional. Flags in fs are bound by name when fs is non-nil.
func Load(v *viper.Viper, path string, fs *pflag.FlagSet) (*Config, error) {
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		file := filepath.Join(home, DefaultFile)
		if _, statErr := os.Stat(file); statErr == nil {
			v.SetConfigFile(file)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s %s", e.Field(), validationMessage(e)))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "url":
		return fmt.Sprintf("must be a URL, got %q", e.Value())
	case "gte":
		return fmt.Sprintf("must be at least %s, got %v", e.Param(), e.Value())
	case "oneof":
		return fmt.Sprintf("must be one of %s, got %q", strings.ReplaceAll(e.Param(), " ", ", "), e.Value())
	default:
		return fmt.Sprintf("failed %s validation", e.Tag())
	}
}
