package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/tradefeed/internal/testutil/testlog"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feedctl.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverlaysDefinedKeys(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
host = "exchange.local"
port = 4100
read_timeout = "2s"
resend_interval = "50ms"
metrics_file = "feed.prom"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Feed.Host != "exchange.local" || cfg.Feed.Port != 4100 {
		t.Fatalf("unexpected endpoint: %+v", cfg.Feed)
	}
	if cfg.Feed.Session.ReadTimeout != 2*time.Second {
		t.Fatalf("read timeout got=%v", cfg.Feed.Session.ReadTimeout)
	}
	if cfg.Feed.ResendInterval != 50*time.Millisecond {
		t.Fatalf("resend interval got=%v", cfg.Feed.ResendInterval)
	}
	if cfg.MetricsFile != "feed.prom" {
		t.Fatalf("metrics file got=%q", cfg.MetricsFile)
	}
	def := Default()
	if cfg.Output != def.Output || cfg.Feed.Session.ConnectTimeout != def.Feed.Session.ConnectTimeout {
		t.Fatalf("undefined keys should keep defaults: %+v", cfg)
	}
}

func TestLoadBadDuration(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `connect_timeout = "abc"`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `port = 70000`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected port validation error")
	}
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `hots = "typo"`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "hots") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestTemplateRoundTripsThroughLoad(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "feedctl.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("forced write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	def := Default()
	if cfg.Feed != def.Feed || cfg.Output != def.Output || cfg.LogLevel != def.LogLevel {
		t.Fatalf("template does not match defaults: got=%+v want=%+v", cfg, def)
	}
}
