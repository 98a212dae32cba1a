package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolateHome(t)

	cfg, err := Load(New(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
}

func TestLoad_ExplicitFile(t *testing.T) {
	isolateHome(t)
	path := writeFile(t, t.TempDir(), "tracelens.yaml", `
endpoint: https://phoenix.example.com
api-key: secret
rate: 2.5
timeout: 5s
telemetry: stdout
`)

	cfg, err := Load(New(), path, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://phoenix.example.com", cfg.Endpoint)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.InDelta(t, 2.5, cfg.Rate, 1e-9)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "stdout", cfg.Telemetry)
	assert.Equal(t, "warn", cfg.LogLevel, "unset keys keep their defaults")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolateHome(t)
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoad_HomeFile(t *testing.T) {
	home := isolateHome(t)
	writeFile(t, home, DefaultFile, "log-level: debug\n")

	cfg, err := Load(New(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	home := isolateHome(t)
	writeFile(t, home, DefaultFile, "rate: 1\napi-key: from-file\n")
	t.Setenv("TRACELENS_RATE", "7")
	t.Setenv("TRACELENS_API_KEY", "from-env")

	cfg, err := Load(New(), "", nil)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, cfg.Rate, 1e-9)
	assert.Equal(t, "from-env", cfg.APIKey)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	isolateHome(t)
	t.Setenv("TRACELENS_ENDPOINT", "http://env:6006")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("endpoint", "http://localhost:6006", "")
	fs.String("otlp-protocol", "http/protobuf", "")
	require.NoError(t, fs.Parse([]string{"--endpoint", "http://flag:6006"}))

	cfg, err := Load(New(), "", fs)
	require.NoError(t, err)
	assert.Equal(t, "http://flag:6006", cfg.Endpoint)
	assert.Equal(t, "http/protobuf", cfg.OTLPProtocol, "unchanged flags fall back to defaults")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		file string
		want string
	}{
		{"bad telemetry", "telemetry: loud\n", "telemetry must be one of none, stdout, otlp"},
		{"bad protocol", "otlp-protocol: udp\n", "otlp-protocol must be one of http/protobuf, grpc"},
		{"negative rate", "rate: -1\n", "rate must be at least 0"},
		{"endpoint not a url", "endpoint: phoenix\n", "endpoint must be a URL"},
		{"empty project", "project: \"\"\n", "project is required"},
		{"bad log level", "log-level: chatty\n", "log-level must be one of debug, info, warn, error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateHome(t)
			path := writeFile(t, t.TempDir(), "c.yaml", tt.file)
			_, err := Load(New(), path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_ReportsEveryField(t *testing.T) {
	t.Parallel()
	cfg := Defaults()
	cfg.Telemetry = "loud"
	cfg.Rate = -1

	err := Validate(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telemetry")
	assert.Contains(t, err.Error(), "rate")
}
