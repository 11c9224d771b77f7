package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alnah/md2pdf-web/internal/config"
	"github.com/alnah/md2pdf-web/internal/session"
)

func TestDefaultEnv(t *testing.T) {
	t.Parallel()

	env := DefaultEnv()

	before := time.Now()
	got := env.Now()
	if got.Before(before) || got.Sub(before) > time.Minute {
		t.Errorf("Now() = %v, should be the wall clock", got)
	}
	if env.Stdin != os.Stdin || env.Stdout != os.Stdout || env.Stderr != os.Stderr {
		t.Error("standard streams should be the process streams")
	}
	if env.OpenStore == nil {
		t.Error("OpenStore should not be nil")
	}
	if env.Printer != nil {
		t.Error("Printer should default to headless Chrome (nil)")
	}
}

func TestOpenStore(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	t.Run("disabled uses memory", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		cfg.Session.Disabled = true

		store, err := openStore(cfg, logger)
		if err != nil {
			t.Fatalf("openStore() error = %v", err)
		}
		defer store.Close()
		if _, ok := store.(*session.MemoryStore); !ok {
			t.Errorf("store = %T, want *session.MemoryStore", store)
		}
	})

	t.Run("path opens SQLite and persists", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		cfg.Session.Path = filepath.Join(t.TempDir(), "nested", "state.db")
		ctx := context.Background()

		store, err := openStore(cfg, logger)
		if err != nil {
			t.Fatalf("openStore() error = %v", err)
		}
		if err := store.Set(ctx, session.KeyTheme, "githubDark"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		store.Close()

		reopened, err := openStore(cfg, logger)
		if err != nil {
			t.Fatalf("reopen error = %v", err)
		}
		defer reopened.Close()
		v, ok, err := reopened.Get(ctx, session.KeyTheme)
		if err != nil || !ok || v != "githubDark" {
			t.Errorf("Get() = %q, %v, %v; want githubDark", v, ok, err)
		}
	})
}

func TestEnvironmentInjection(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	te := newTestEnv(t)
	te.Now = func() time.Time { return fixed }
	te.Stdin = bytes.NewBufferString("# Injected\n")

	dir := t.TempDir()
	if code := te.run(t, "export", "-", "--local", "-o", dir); code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr: %s", code, te.stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "markdown-2025-06-15.pdf")); err != nil {
		t.Errorf("artifact should be named from the injected clock: %v", err)
	}
}
