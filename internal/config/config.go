package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/tradefeed/internal/feed"
	"github.com/danmuck/tradefeed/internal/logging"
	"github.com/danmuck/tradefeed/internal/output"
)

// File is the on-disk feedctl configuration. Durations use time.ParseDuration syntax.
type File struct {
	Host           string `toml:"host" comment:"exchange host name or address"`
	Port           int    `toml:"port" comment:"exchange TCP port, 1..65535"`
	Output         string `toml:"output" comment:"JSON array written after the run"`
	ConnectTimeout string `toml:"connect_timeout" comment:"dial timeout per channel"`
	ReadTimeout    string `toml:"read_timeout" comment:"per-frame read deadline, 0s blocks until the server closes"`
	WriteTimeout   string `toml:"write_timeout" comment:"request write deadline, 0s disables it"`
	ResendInterval string `toml:"resend_interval" comment:"minimum spacing between resend connections"`
	MetricsFile    string `toml:"metrics_file" comment:"optional prometheus textfile written after the run"`
	LogLevel       string `toml:"log_level" comment:"trace|debug|info|warn|error|off"`
}

// Settings is the resolved configuration of one feedctl run.
type Settings struct {
	Feed        feed.Config
	Output      string
	MetricsFile string
	LogLevel    string
}

func Default() Settings {
	return Settings{
		Feed:     feed.DefaultConfig(),
		Output:   output.DefaultPath,
		LogLevel: "info",
	}
}

// Load overlays the keys defined in path onto Default().
func Load(path string) (Settings, error) {
	cfg := Default()

	var raw File
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Settings{}, fmt.Errorf("load feedctl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Settings{}, fmt.Errorf("load feedctl config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("host") {
		cfg.Feed.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Feed.Port = raw.Port
	}
	if meta.IsDefined("output") {
		cfg.Output = strings.TrimSpace(raw.Output)
	}
	if meta.IsDefined("connect_timeout") {
		d, err := parseDuration("connect_timeout", raw.ConnectTimeout)
		if err != nil {
			return Settings{}, err
		}
		cfg.Feed.Session.ConnectTimeout = d
	}
	if meta.IsDefined("read_timeout") {
		d, err := parseDuration("read_timeout", raw.ReadTimeout)
		if err != nil {
			return Settings{}, err
		}
		cfg.Feed.Session.ReadTimeout = d
	}
	if meta.IsDefined("write_timeout") {
		d, err := parseDuration("write_timeout", raw.WriteTimeout)
		if err != nil {
			return Settings{}, err
		}
		cfg.Feed.Session.WriteTimeout = d
	}
	if meta.IsDefined("resend_interval") {
		d, err := parseDuration("resend_interval", raw.ResendInterval)
		if err != nil {
			return Settings{}, err
		}
		cfg.Feed.ResendInterval = d
	}
	if meta.IsDefined("metrics_file") {
		cfg.MetricsFile = strings.TrimSpace(raw.MetricsFile)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	if err := Validate(cfg); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

func Validate(cfg Settings) error {
	if err := cfg.Feed.Validate(); err != nil {
		return fmt.Errorf("feedctl config: %w", err)
	}
	if strings.TrimSpace(cfg.Output) == "" {
		return fmt.Errorf("feedctl config missing output")
	}
	if cfg.Feed.ResendInterval < 0 {
		return fmt.Errorf("feedctl config: resend_interval must not be negative")
	}
	if cfg.LogLevel != "" {
		if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
			return fmt.Errorf("feedctl config: unknown log_level %q", cfg.LogLevel)
		}
	}
	return nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("parse %s: negative duration %s", key, raw)
	}
	return d, nil
}
