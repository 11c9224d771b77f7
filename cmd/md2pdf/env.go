package main

import (
	"io"
	"log/slog"
	"os"
	"time"

	md2pdf "github.com/alnah/md2pdf-web"
	"github.com/alnah/md2pdf-web/internal/config"
	"github.com/alnah/md2pdf-web/internal/session"
)

// Environment holds injectable dependencies for testability.
// Includes I/O, time, session storage and the native printer.
type Environment struct {
	Now    func() time.Time
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// OpenStore opens the session store for cfg.
	OpenStore func(cfg *config.Config, logger *slog.Logger) (session.Store, error)

	// Printer overrides the headless Chrome printer when set.
	Printer md2pdf.Printer
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:       time.Now,
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		OpenStore: openStore,
	}
}

// openStore opens the SQLite session database, or an in-memory store when
// sessions are disabled.
func openStore(cfg *config.Config, logger *slog.Logger) (session.Store, error) {
	if cfg.Session.Disabled {
		return session.NewMemoryStore(), nil
	}
	path := cfg.Session.Path
	if path == "" {
		var err error
		if path, err = config.DefaultStatePath(); err != nil {
			return nil, err
		}
	}
	logger.Debug("opening session store", "path", path)
	return session.OpenSQLite(path)
}
