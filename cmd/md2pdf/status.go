package main

import (
	"context"
	"errors"
	"io"

	"github.com/fatih/color"

	md2pdf "github.com/alnah/md2pdf-web"
	"github.com/alnah/md2pdf-web/internal/assets"
	"github.com/alnah/md2pdf-web/internal/hints"
)

var (
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
)

// status prints user-facing status lines. Quiet suppresses everything but
// errors.
type status struct {
	w     io.Writer
	quiet bool
}

func newStatus(w io.Writer, quiet bool) *status {
	return &status{w: w, quiet: quiet}
}

func (s *status) Success(format string, a ...any) {
	if s.quiet {
		return
	}
	_, _ = successColor.Fprintf(s.w, "✓ "+format+"\n", a...)
}

func (s *status) Info(format string, a ...any) {
	if s.quiet {
		return
	}
	_, _ = infoColor.Fprintf(s.w, format+"\n", a...)
}

func (s *status) Warn(msg string) {
	if s.quiet {
		return
	}
	_, _ = warnColor.Fprintf(s.w, "warning: %s\n", msg)
}

// Error prints err with any actionable hint attached to it.
func (s *status) Error(err error) {
	_, _ = errorColor.Fprintf(s.w, "error: %v%s\n", err, hintFor(err))
}

// hintedError carries a hint that depends on command state, such as the
// configured endpoint.
type hintedError struct {
	err  error
	hint string
}

func (e *hintedError) Error() string { return e.err.Error() }
func (e *hintedError) Unwrap() error { return e.err }

func withHint(err error, hint string) error {
	if err == nil || hint == "" {
		return err
	}
	return &hintedError{err: err, hint: hint}
}

func hintFor(err error) string {
	var h *hintedError
	if errors.As(err, &h) {
		return h.hint
	}
	switch {
	case errors.Is(err, md2pdf.ErrBrowserConnect):
		return hints.ForBrowserConnect(hints.DetectHost())
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, md2pdf.ErrHTMLTooLarge):
		return hints.ForPayloadTooLarge()
	case errors.Is(err, assets.ErrUnknownTheme):
		names := make([]string, 0, len(assets.Themes()))
		for _, t := range assets.Themes() {
			names = append(names, string(t))
		}
		return hints.ForUnknownTheme(names)
	}
	return ""
}
