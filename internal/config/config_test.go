package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("defaults must be valid: %v", ValidationErrors(errs))
	}
	if cfg.Store.Driver != DriverMemory {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, DriverMemory)
	}
	if cfg.Server.Transport != TransportStdio {
		t.Errorf("Server.Transport = %q, want %q", cfg.Server.Transport, TransportStdio)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "formcollect.yaml")
	content := `forms:
  dir: /srv/forms
  tag: uag
store:
  driver: redis
  redis:
    addr: redis:6379
    ttl: 24h
server:
  transport: http
tools:
  get_forms: List the forms.
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	v := viper.New()
	defaults := Default()
	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.path", defaults.Server.Path)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("script.timeout", defaults.Script.Timeout)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig failed: %v", err)
	}
	cfg, err := LoadFrom(v)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Forms.Dir != "/srv/forms" || cfg.Forms.Tag != "uag" {
		t.Errorf("unexpected forms config %+v", cfg.Forms)
	}
	if cfg.Store.Redis.TTL != 24*time.Hour {
		t.Errorf("Store.Redis.TTL = %v, want 24h", cfg.Store.Redis.TTL)
	}
	if cfg.Tools["get_forms"] != "List the forms." {
		t.Errorf("unexpected tool overrides %v", cfg.Tools)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = "sqlite"
	cfg.Server.Transport = "http"
	cfg.Server.Path = "mcp"
	cfg.Logging.Level = "loud"
	errs := cfg.Validate()
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %v", errs)
	}
	msg := ValidationErrors(errs).Error()
	for _, field := range []string{"store.driver", "server.path", "logging.level"} {
		if !strings.Contains(msg, field) {
			t.Errorf("error message missing %s:\n%s", field, msg)
		}
	}
}
