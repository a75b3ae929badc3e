package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_ParsesAndDefaults(t *testing.T) {
	t.Setenv("API_ADDR", ":9090")
	t.Setenv("LOG_DIR", "./_testlogs")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("PROBE_TIMEOUT_MS", "1234")
	t.Setenv("PROBE_INSECURE_TLS", "true")
	t.Setenv("PROBE_USER_AGENT", "zabbix-agent")
	t.Setenv("API_KEYS", "key_a, key_b,")
	t.Setenv("RATE_RPM", "0")
	t.Setenv("RATE_BURST", "5")

	cfg := FromEnv()

	if cfg.Addr != ":9090" || cfg.LogDir != "./_testlogs" || cfg.LogLevel != "debug" {
		t.Fatalf("addr/logdir/level wrong: %+v", cfg)
	}
	if cfg.Probe.Timeout != 1234*time.Millisecond || !cfg.Probe.InsecureSkipVerify || cfg.Probe.UserAgent != "zabbix-agent" {
		t.Fatalf("probe config wrong: %+v", cfg.Probe)
	}
	if len(cfg.APIKeys) != 2 || cfg.APIKeys[1] != "key_b" {
		t.Fatalf("api keys wrong: %+v", cfg.APIKeys)
	}
	if cfg.RateRPM != 0 || cfg.RateBurst != 5 {
		t.Fatalf("rate wrong: %+v", cfg)
	}
}

func TestFromEnv_IgnoresGarbage(t *testing.T) {
	t.Setenv("PROBE_TIMEOUT_MS", "soon")
	t.Setenv("PROBE_INSECURE_TLS", "maybe")
	t.Setenv("RATE_RPM", "-4")

	cfg := FromEnv()
	def := Default()
	assert.Equal(t, def.Probe.Timeout, cfg.Probe.Timeout)
	assert.False(t, cfg.Probe.InsecureSkipVerify)
	assert.Equal(t, def.RateRPM, cfg.RateRPM)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_OverlaysYAML(t *testing.T) {
	t.Setenv("API_ADDR", ":7000")
	t.Setenv("LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "poolprobe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: warn
probe:
  timeout: 3s
  insecure_skip_verify: true
api_keys: [k1]
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr, "env value survives when the file omits it")
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.Probe.Timeout)
	assert.True(t, cfg.Probe.InsecureSkipVerify)
	assert.Equal(t, []string{"k1"}, cfg.APIKeys)
	assert.NotEmpty(t, cfg.Probe.UserAgent)
}

func TestLoad_DoesNotValidate(t *testing.T) {
	t.Setenv("LOG_LEVEL", "trace")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "trace", cfg.LogLevel)

	cfg.LogLevel = "debug"
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("probe: [unclosed"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestValidate_AggregatesProblems(t *testing.T) {
	cfg := Default()
	cfg.Addr = ""
	cfg.LogLevel = "loud"
	cfg.Probe.Timeout = 0
	cfg.RateBurst = 0

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"addr", "log_level", "probe.timeout", "rate_burst"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateProbe_IgnoresServeSettings(t *testing.T) {
	cfg := Default()
	cfg.Addr = ""
	cfg.APIKeys = []string{"a b"}
	cfg.RateRPM = -1
	assert.NoError(t, cfg.ValidateProbe())
	assert.Error(t, cfg.Validate())

	cfg.Probe.Timeout = 0
	cfg.LogLevel = "trace"
	err := cfg.ValidateProbe()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "probe.timeout")
	assert.Contains(t, err.Error(), "log_level")
}

func TestWarnings(t *testing.T) {
	cfg := Default()
	cfg.Probe.InsecureSkipVerify = true
	assert.Len(t, cfg.Warnings(), 2)

	cfg.APIKeys = []string{"k"}
	cfg.Probe.InsecureSkipVerify = false
	assert.Empty(t, cfg.Warnings())
}
