package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"ORBS_HTTP_ADDR", "ORBS_DB_PATH", "ORBS_API_TOKEN", "ORBS_KEYRING_SERVICE", "ORBS_REQUEST_TIMEOUT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:17890" {
		t.Errorf("expected default addr, got %q", cfg.HTTPAddr)
	}
	if cfg.KeyringService != "moonrock-orbs" {
		t.Errorf("expected default keyring service, got %q", cfg.KeyringService)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", cfg.RequestTimeout)
	}
	if want := filepath.Join(AppDir(), "orbs.db"); cfg.DBPath != want {
		t.Errorf("expected db path %q, got %q", want, cfg.DBPath)
	}
	if cfg.APIToken != "" {
		t.Errorf("expected no token, got %q", cfg.APIToken)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ORBS_HTTP_ADDR", ":9000")
	t.Setenv("ORBS_DB_PATH", "/tmp/x.db")
	t.Setenv("ORBS_API_TOKEN", "secret")
	t.Setenv("ORBS_REQUEST_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":9000" || cfg.DBPath != "/tmp/x.db" || cfg.APIToken != "secret" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("expected 5s, got %s", cfg.RequestTimeout)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		value string
		want  string
	}{
		{"soon", "parse env:"},
		{"-1s", "must be positive"},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("ORBS_REQUEST_TIMEOUT", tt.value)
			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in error, got %v", tt.want, err)
			}
		})
	}
}
