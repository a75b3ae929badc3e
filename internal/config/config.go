package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/poolprobe/internal/version"
)

type Config struct {
	Addr     string `yaml:"addr"`      // HTTP bind address for `serve`, e.g. "127.0.0.1:8080"
	LogDir   string `yaml:"log_dir"`   // empty means log to stderr
	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	Probe ProbeConfig `yaml:"probe"`

	APIKeys   []string `yaml:"api_keys"`   // empty disables auth (local dev)
	RateRPM   int      `yaml:"rate_rpm"`   // per-IP requests per minute, 0 disables
	RateBurst int      `yaml:"rate_burst"` // token bucket size
}

type ProbeConfig struct {
	Timeout            time.Duration `yaml:"timeout"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"` // accept self-signed management certificates
	UserAgent          string        `yaml:"user_agent"`
}

func Default() Config {
	return Config{
		Addr:     "127.0.0.1:8080",
		LogLevel: "info",
		Probe: ProbeConfig{
			Timeout:   10 * time.Second,
			UserAgent: version.UserAgent(),
		},
		RateRPM:   120,
		RateBurst: 30,
	}
}

func FromEnv() Config {
	cfg := Default()

	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.Addr = v
	}
	cfg.LogDir = os.Getenv("LOG_DIR")
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if v := os.Getenv("PROBE_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.Probe.Timeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("PROBE_INSECURE_TLS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Probe.InsecureSkipVerify = b
		}
	}
	if v := os.Getenv("PROBE_USER_AGENT"); v != "" {
		cfg.Probe.UserAgent = v
	}

	cfg.APIKeys = splitList(os.Getenv("API_KEYS"))

	if v := os.Getenv("RATE_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.RateRPM = n
		}
	}
	if v := os.Getenv("RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateBurst = n
		}
	}
	return cfg
}

// Load reads the environment and, when path is set, overlays the YAML file
// on top of it. Keys absent from the file keep their environment value.
// The result is not validated; callers apply their overrides first.
func Load(path string) (Config, error) {
	cfg := FromEnv()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ValidateProbe checks only what a single ping needs: logging and the
// probe settings.
func (c Config) ValidateProbe() error {
	var err error
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	if c.Probe.Timeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("probe.timeout must be positive, got %s", c.Probe.Timeout))
	}
	return err
}

// Validate reports every problem in one error, including the HTTP API
// settings only `serve` reads.
func (c Config) Validate() error {
	err := c.ValidateProbe()
	if c.Addr == "" {
		err = multierr.Append(err, errors.New("addr must not be empty"))
	}
	if c.RateRPM < 0 {
		err = multierr.Append(err, fmt.Errorf("rate_rpm must not be negative, got %d", c.RateRPM))
	}
	if c.RateRPM > 0 && c.RateBurst < 1 {
		err = multierr.Append(err, fmt.Errorf("rate_burst must be at least 1 when rate limiting is on, got %d", c.RateBurst))
	}
	for _, k := range c.APIKeys {
		if strings.ContainsAny(k, " \t") {
			err = multierr.Append(err, errors.New("api_keys must not contain whitespace"))
			break
		}
	}
	return err
}

// Warnings lists settings that are valid but worth flagging at startup.
func (c Config) Warnings() []string {
	var w []string
	if c.Probe.InsecureSkipVerify {
		w = append(w, "probe.insecure_skip_verify is on: management certificates are not verified")
	}
	if len(c.APIKeys) == 0 {
		w = append(w, "api_keys is empty: the HTTP API accepts unauthenticated requests")
	}
	if c.RateRPM == 0 {
		w = append(w, "rate_rpm is 0: rate limiting disabled")
	}
	return w
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
