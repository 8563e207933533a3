// Package config loads client settings from JSON, YAML or TOML files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/localrivet/gocdp/client"
	"github.com/localrivet/gocdp/logx"
)

// HostEnv overrides Config.Host when set.
const HostEnv = "CDP_HOST"

// Defaults.
const (
	DefaultHost        = "localhost:9222"
	DefaultDialTimeout = 10 * time.Second
)

// Duration is a time.Duration written as a string such as "1500ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config holds everything needed to open and run a client.
type Config struct {
	// Host is a ws:// endpoint or an HTTP host serving /json/version.
	Host           string            `json:"host" yaml:"host" toml:"host"`
	Headers        map[string]string `json:"headers" yaml:"headers" toml:"headers"`
	DialTimeout    Duration          `json:"dialTimeout" yaml:"dialTimeout" toml:"dial_timeout"`
	RequestTimeout Duration          `json:"requestTimeout" yaml:"requestTimeout" toml:"request_timeout"`
	EventBuffer    int               `json:"eventBuffer" yaml:"eventBuffer" toml:"event_buffer"`
	OutboundQueue  int               `json:"outboundQueue" yaml:"outboundQueue" toml:"outbound_queue"`
	// RateLimit is commands per second; zero disables limiting.
	RateLimit   float64     `json:"rateLimit" yaml:"rateLimit" toml:"rate_limit"`
	RateBurst   int         `json:"rateBurst" yaml:"rateBurst" toml:"rate_burst"`
	MetricsAddr string      `json:"metricsAddr" yaml:"metricsAddr" toml:"metrics_addr"`
	Log         logx.Config `json:"log" yaml:"log" toml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Host:          DefaultHost,
		DialTimeout:   Duration(DefaultDialTimeout),
		OutboundQueue: client.DefaultOutboundQueue,
	}
}

// Load reads path, choosing the format by extension, applies the
// environment override and validates the result. Fields absent from the file
// keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err = toml.Decode(string(data), cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv() {
	if host := strings.TrimSpace(os.Getenv(HostEnv)); host != "" {
		c.Host = host
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, errors.New("host is required"))
	}
	if c.DialTimeout < 0 || c.RequestTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.EventBuffer < 0 {
		errs = append(errs, errors.New("eventBuffer must not be negative"))
	}
	if c.OutboundQueue < 0 {
		errs = append(errs, errors.New("outboundQueue must not be negative"))
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("rateLimit must not be negative"))
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		errs = append(errs, errors.New("rateBurst must be at least 1 when rateLimit is set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ClientOptions converts the configuration into client options.
func (c *Config) ClientOptions() []client.Option {
	opts := []client.Option{
		client.WithEventBuffer(c.EventBuffer),
		client.WithOutboundQueue(c.OutboundQueue),
	}
	if c.DialTimeout > 0 {
		opts = append(opts, client.WithDialTimeout(time.Duration(c.DialTimeout)))
	}
	if c.RequestTimeout > 0 {
		opts = append(opts, client.WithRequestTimeout(time.Duration(c.RequestTimeout)))
	}
	if c.RateLimit > 0 {
		opts = append(opts, client.WithRateLimit(rate.Limit(c.RateLimit), c.RateBurst))
	}

	keys := make([]string, 0, len(c.Headers))
	for k := range c.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		opts = append(opts, client.WithHeader(k, c.Headers[k]))
	}
	return opts
}
