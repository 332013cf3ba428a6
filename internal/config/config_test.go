package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EnvDefaults(t *testing.T) {
	t.Setenv("OUTOFBOUND_CONFIG", "")
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("INGEST_MAX_SKEW_SECONDS", "60")
	t.Setenv("SHUTDOWN_TIMEOUT", "2m")
	t.Setenv("STREAM_BUFFER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "outofbound", cfg.DefaultInstance)
	assert.Equal(t, time.Minute, cfg.IngestSkew())
	assert.Equal(t, 2*time.Minute, cfg.ShutdownTimeout)
	assert.Equal(t, 16, cfg.StreamBuffer)
}

func TestLoad_YAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "outofbound.yaml")
	content := `
http_addr: ":9090"
log_level: debug
jwt_secret: from-file
rules_file: /etc/outofbound/rules.yaml
instances:
  pumps: /etc/outofbound/pumps.json
stream_buffer: 64
shutdown_timeout: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("OUTOFBOUND_CONFIG", path)
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 64, cfg.StreamBuffer)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, map[string]string{
		"outofbound": "/etc/outofbound/rules.yaml",
		"pumps":      "/etc/outofbound/pumps.json",
	}, cfg.RuleFiles())
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("OUTOFBOUND_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Config{HTTPAddr: ":8080", JWTSecret: "s"}
	assert.NoError(t, cfg.Validate())

	cfg.JWTSecret = ""
	cfg.IngestSkewSeconds = -1
	cfg.Instances = map[string]string{"": "x.json"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
	assert.Contains(t, err.Error(), "must not be negative")
	assert.Contains(t, err.Error(), "needs a name")
}
