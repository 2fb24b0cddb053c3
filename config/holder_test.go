package config

import (
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestHolder_GetAndReload(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")

	h, err := NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder: %v", err)
	}
	defer h.Stop()

	if h.Get().Logging.Level != "info" {
		t.Fatalf("level = %q", h.Get().Logging.Level)
	}

	if err := os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if h.Get().Logging.Level != "debug" {
		t.Errorf("level after reload = %q", h.Get().Logging.Level)
	}
}

func TestHolder_ReloadKeepsOldConfigOnError(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")

	h, err := NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder: %v", err)
	}
	defer h.Stop()

	if err := os.WriteFile(path, []byte("logging:\n  level: bogus\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := h.Reload(); err == nil {
		t.Fatal("reload of invalid config succeeded")
	}
	if h.Get().Logging.Level != "info" {
		t.Errorf("level = %q, old config lost", h.Get().Logging.Level)
	}
}

func TestHolder_OnChange(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")

	h, err := NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder: %v", err)
	}
	defer h.Stop()

	var calls atomic.Int32
	h.OnChange(func(cfg *Config) {
		calls.Add(1)
		if cfg.Logging.Level != "warn" {
			t.Errorf("callback saw level %q", cfg.Logging.Level)
		}
	})

	if err := os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("callback ran %d times", calls.Load())
	}
}

func TestHolder_WatchFile(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")

	h, err := NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder: %v", err)
	}
	defer h.Stop()

	changed := make(chan struct{}, 1)
	h.OnChange(func(*Config) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile: %v", err)
	}

	if err := os.WriteFile(path, []byte("logging:\n  level: error\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("file change never triggered a reload")
	}
	if h.Get().Logging.Level != "error" {
		t.Errorf("level = %q", h.Get().Logging.Level)
	}
}
