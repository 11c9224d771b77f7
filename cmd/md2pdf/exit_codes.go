package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	md2pdf "github.com/alnah/md2pdf-web"
	"github.com/alnah/md2pdf-web/internal/assets"
	"github.com/alnah/md2pdf-web/internal/config"
	"github.com/alnah/md2pdf-web/internal/dateutil"
)

// Exit codes for md2pdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful command
	ExitGeneral = 1 // General/unexpected error
	ExitUsage   = 2 // Invalid flags, config, or validation
	ExitIO      = 3 // File not found, permission denied
	ExitBrowser = 4 // Browser or render service errors
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// The render service refused the request itself: same class as a local
	// validation failure.
	var renderErr *md2pdf.RenderError
	if errors.As(err, &renderErr) &&
		renderErr.Status >= http.StatusBadRequest && renderErr.Status < http.StatusInternalServerError {
		return ExitUsage
	}

	// Browser/render errors (exit 4)
	if errors.Is(err, md2pdf.ErrBrowserConnect) ||
		errors.Is(err, md2pdf.ErrPageCreate) ||
		errors.Is(err, md2pdf.ErrPageLoad) ||
		errors.Is(err, md2pdf.ErrPDFGeneration) ||
		errors.Is(err, md2pdf.ErrRemoteRender) ||
		errors.Is(err, md2pdf.ErrInvalidPDF) ||
		errors.Is(err, context.DeadlineExceeded) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadMarkdown) ||
		errors.Is(err, ErrWriteOutput) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrTooManyArgs) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, md2pdf.ErrEmptyMarkdown) ||
		errors.Is(err, md2pdf.ErrEmptyDocument) ||
		errors.Is(err, md2pdf.ErrHTMLTooLarge) ||
		errors.Is(err, md2pdf.ErrEndpoint) ||
		errors.Is(err, assets.ErrUnknownTheme) ||
		errors.Is(err, assets.ErrInvalidBasePath) ||
		errors.Is(err, dateutil.ErrInvalidDateFormat) {
		return ExitUsage
	}

	return ExitGeneral
}
