package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sfzplayer/internal/logging"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sfzplayer.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.HTTPTimeout != 30*time.Second || cfg.PreloadWorkers != 4 {
			t.Errorf("Unexpected defaults: %+v", cfg)
		}
	})

	t.Run("File", func(t *testing.T) {
		path := writeConfig(t, "root: /srv/instruments\nmidi_port: Keystation\nhttp_timeout: 5s\npreload_workers: 8\n")
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Root != "/srv/instruments" || cfg.MIDIPort != "Keystation" {
			t.Errorf("Unexpected config: %+v", cfg)
		}
		if cfg.HTTPTimeout != 5*time.Second || cfg.PreloadWorkers != 8 {
			t.Errorf("Unexpected numeric fields: %v %d", cfg.HTTPTimeout, cfg.PreloadWorkers)
		}
		if cfg.StatePath != defaultStatePath {
			t.Errorf("Expected unset fields to keep defaults, got %q", cfg.StatePath)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Expected ErrNotExist, got %v", err)
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		if _, err := Load(writeConfig(t, "root: [unclosed\n")); err == nil {
			t.Error("Expected parse error")
		}
	})
}

func TestPrecedence(t *testing.T) {
	cfg, err := Load(writeConfig(t, "root: /from/file\nlog_level: warn\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	env := map[string]string{"SFZ_ROOT": "/from/env", "LOG_LEVEL": "debug"}
	cfg.ApplyEnv(func(k string) string { return env[k] })
	if cfg.Root != "/from/env" || cfg.Level() != logging.LevelDebug {
		t.Fatalf("Expected environment to override file, got %+v", cfg)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	if err := fs.Parse([]string{"-root", "/from/flag"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Root != "/from/flag" {
		t.Errorf("Expected flag to override environment, got %q", cfg.Root)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected unset flag to keep environment value, got %q", cfg.LogLevel)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "root", modify: func(c *Config) { c.Root = "/lib" }},
		{name: "repository", modify: func(c *Config) { c.Repository = "owner/name" }},
		{name: "no source", modify: func(c *Config) {}, wantErr: true},
		{name: "bad repository", modify: func(c *Config) { c.Repository = "owner" }, wantErr: true},
		{name: "bad level", modify: func(c *Config) { c.Root = "/lib"; c.LogLevel = "loud" }, wantErr: true},
		{name: "no workers", modify: func(c *Config) { c.Root = "/lib"; c.PreloadWorkers = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if err := Default().Validate(); !errors.Is(err, ErrNoSource) {
		t.Errorf("Expected ErrNoSource, got %v", err)
	}
}
