// Settings shared by every tracelens command
package config

import "time"

// Config holds the resolved tracelens settings.
type Config struct {
	Endpoint      string        `yaml:"endpoint" mapstructure:"endpoint" validate:"required,url"`
	APIKey        string        `yaml:"api-key" mapstructure:"api-key"`
	Project       string        `yaml:"project" mapstructure:"project" validate:"required"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	Rate          float64       `yaml:"rate" mapstructure:"rate" validate:"gte=0"` // Phoenix requests per second, 0 is unlimited
	CacheSize     int64         `yaml:"cache-size" mapstructure:"cache-size" validate:"gte=0"`
	LogLevel      string        `yaml:"log-level" mapstructure:"log-level" validate:"oneof=debug info warn error"`
	Telemetry     string        `yaml:"telemetry" mapstructure:"telemetry" validate:"oneof=none stdout otlp"`
	OTLPEndpoint  string        `yaml:"otlp-endpoint" mapstructure:"otlp-endpoint"`
	OTLPProtocol  string        `yaml:"otlp-protocol" mapstructure:"otlp-protocol" validate:"oneof=http/protobuf grpc"`
	SlowThreshold time.Duration `yaml:"slow-threshold" mapstructure:"slow-threshold" validate:"gte=0"`
	Pprof         string        `yaml:"pprof" mapstructure:"pprof"`
	Pyroscope     string        `yaml:"pyroscope" mapstructure:"pyroscope" validate:"omitempty,url"`
	MetricsAddr   string        `yaml:"metrics-addr" mapstructure:"metrics-addr"`
}
