package md2pdf

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alnah/md2pdf-web/internal/assets"
	"github.com/alnah/md2pdf-web/internal/browser"
	"github.com/alnah/md2pdf-web/internal/fileutil"
	"github.com/alnah/md2pdf-web/internal/pipeline"
)

// Printer turns a complete HTML document into PDF bytes.
type Printer interface {
	PrintPDF(ctx context.Context, documentHTML string) ([]byte, error)
}

// Compile-time interface check.
var _ Printer = (*NativePrinter)(nil)

// NativePrinter prints with a local headless Chrome.
type NativePrinter struct {
	browser *browser.Manager
}

// NewNativePrinter creates a printer sharing m's browser.
func NewNativePrinter(m *browser.Manager) *NativePrinter {
	return &NativePrinter{browser: m}
}

// PrintPDF writes the document to a temporary file and prints it, so that
// file references resolve the same way they do when opened locally.
func (p *NativePrinter) PrintPDF(ctx context.Context, documentHTML string) ([]byte, error) {
	tmpPath, cleanup, err := fileutil.WriteTempFile(documentHTML, "html")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return p.browser.PrintFile(ctx, tmpPath)
}

// Exporter produces the themed PDF: through the render service when an
// endpoint is configured, otherwise through a Printer.
type Exporter struct {
	renderer   *pipeline.Renderer
	theme      assets.Theme
	styles     assets.AssetLoader
	sourceDir  string
	client     *RemoteClient
	printer    Printer
	dateFormat string
	timeout    time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithRemoteClient sends documents to a render service.
func WithRemoteClient(c *RemoteClient) ExporterOption {
	return func(e *Exporter) { e.client = c }
}

// WithPrinter sets the fallback used when no render service is configured.
func WithPrinter(p Printer) ExporterOption {
	return func(e *Exporter) { e.printer = p }
}

// WithTheme sets the document theme.
func WithTheme(t assets.Theme) ExporterOption {
	return func(e *Exporter) { e.theme = t }
}

// WithStyles reads theme stylesheets from loader instead of the embedded
// copies.
func WithStyles(loader assets.AssetLoader) ExporterOption {
	return func(e *Exporter) { e.styles = loader }
}

// WithSourceDir resolves relative images against dir when printing
// natively. The render service cannot read local files, so remote exports
// ignore it.
func WithSourceDir(dir string) ExporterOption {
	return func(e *Exporter) { e.sourceDir = dir }
}

// WithExportRenderer sets the Markdown renderer.
func WithExportRenderer(r *pipeline.Renderer) ExporterOption {
	return func(e *Exporter) { e.renderer = r }
}

// WithExportDateFormat sets the date format of the artifact name.
func WithExportDateFormat(format string) ExporterOption {
	return func(e *Exporter) { e.dateFormat = format }
}

// WithExportTimeout bounds one export. Defaults to DefaultTimeout.
func WithExportTimeout(d time.Duration) ExporterOption {
	return func(e *Exporter) { e.timeout = d }
}

// WithExportClock sets the time source for the artifact name.
func WithExportClock(now func() time.Time) ExporterOption {
	return func(e *Exporter) { e.now = now }
}

// WithExportLogger sets the logger.
func WithExportLogger(l *slog.Logger) ExporterOption {
	return func(e *Exporter) { e.logger = l }
}

// NewExporter creates an Exporter.
func NewExporter(opts ...ExporterOption) *Exporter {
	e := &Exporter{
		theme:   assets.DefaultTheme,
		timeout: DefaultTimeout,
		now:     time.Now,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.renderer == nil {
		e.renderer = pipeline.NewRenderer()
	}
	return e
}

// Remote reports whether exports go to a render service.
func (e *Exporter) Remote() bool {
	return e.client != nil
}

// Export renders markdown into a themed document and prints it.
// The render service is never contacted when no client is configured.
func (e *Exporter) Export(ctx context.Context, markdown string) (*Artifact, error) {
	if strings.TrimSpace(markdown) == "" {
		return nil, ErrEmptyMarkdown
	}

	name, err := ArtifactName(e.dateFormat, e.now())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	frag, err := e.renderer.Render(ctx, markdown)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTMLConversion, err)
	}
	doc, err := BuildDocumentWith(ctx, e.styles, frag.HTML, e.theme)
	if err != nil {
		return nil, err
	}

	if e.client != nil {
		e.logger.Debug("exporting via render service", "endpoint", e.client.Endpoint(), "bytes", len(doc))
		return e.client.RequestRender(ctx, RenderJob{HTML: doc, Filename: name})
	}

	if e.printer == nil {
		return nil, ErrNoPrinter
	}
	if doc, err = pipeline.ResolveLocalImages(doc, e.sourceDir); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTMLConversion, err)
	}
	e.logger.Debug("exporting via native print", "bytes", len(doc))
	data, err := e.printer.PrintPDF(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &Artifact{Filename: name, PDF: data}, nil
}
