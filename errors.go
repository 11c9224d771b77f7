package md2pdf

import (
	"errors"

	"github.com/alnah/md2pdf-web/internal/browser"
)

// Sentinel errors for library operations.
var (
	ErrEmptyMarkdown  = errors.New("markdown content cannot be empty")
	ErrEmptyDocument  = errors.New("html document cannot be empty")
	ErrHTMLTooLarge   = errors.New("html document exceeds the render limit")
	ErrHTMLConversion = errors.New("HTML conversion failed")
	ErrAssembly       = errors.New("local PDF assembly failed")
	ErrInvalidPDF     = errors.New("render service returned an invalid PDF")
	ErrRemoteRender   = errors.New("remote render failed")
	ErrEndpoint       = errors.New("invalid render endpoint")
	ErrNoPrinter      = errors.New("no render endpoint or native printer configured")
)

// Browser errors, re-exported so callers need not import internal packages.
var (
	ErrBrowserConnect = browser.ErrBrowserConnect
	ErrPageCreate     = browser.ErrPageCreate
	ErrPageLoad       = browser.ErrPageLoad
	ErrPDFGeneration  = browser.ErrPDFGeneration
)
