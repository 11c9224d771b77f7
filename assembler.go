package md2pdf

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alnah/md2pdf-web/internal/inliner"
	"github.com/alnah/md2pdf-web/internal/pdfdoc"
	"github.com/alnah/md2pdf-web/internal/pipeline"
)

// Assembler builds a PDF locally, without a browser: the rendered fragment is
// translated to a page model and serialized with core PDF fonts.
type Assembler struct {
	renderer   *pipeline.Renderer
	inliner    *inliner.Inliner
	creator    string
	dateFormat string
	now        func() time.Time
	logger     *slog.Logger
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithRenderer sets the Markdown renderer.
func WithRenderer(r *pipeline.Renderer) AssemblerOption {
	return func(a *Assembler) { a.renderer = r }
}

// WithInliner sets how remote images are embedded before translation.
func WithInliner(in *inliner.Inliner) AssemblerOption {
	return func(a *Assembler) { a.inliner = in }
}

// WithCreator sets the PDF creator metadata.
func WithCreator(creator string) AssemblerOption {
	return func(a *Assembler) { a.creator = creator }
}

// WithDateFormat sets the date format of the artifact name.
func WithDateFormat(format string) AssemblerOption {
	return func(a *Assembler) { a.dateFormat = format }
}

// WithClock sets the time source for the artifact name and creation date.
func WithClock(now func() time.Time) AssemblerOption {
	return func(a *Assembler) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) AssemblerOption {
	return func(a *Assembler) { a.logger = l }
}

// NewAssembler creates an Assembler. By default images are fetched over HTTP.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.renderer == nil {
		a.renderer = pipeline.NewRenderer()
	}
	if a.inliner == nil {
		a.inliner = inliner.New(inliner.NewHTTPFetcher(), inliner.WithLogger(a.logger))
	}
	return a
}

// Assemble renders markdown, embeds its images and writes the PDF.
// Recovers from internal panics to prevent crashes from propagating to callers.
func (a *Assembler) Assemble(ctx context.Context, markdown string) (result *AssembleResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: internal error: %v", ErrAssembly, r)
		}
	}()

	if strings.TrimSpace(markdown) == "" {
		return nil, ErrEmptyMarkdown
	}

	now := a.now()
	name, err := ArtifactName(a.dateFormat, now)
	if err != nil {
		return nil, err
	}

	frag, err := a.renderer.Render(ctx, markdown)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHTMLConversion, err)
	}

	outcome, err := a.inliner.Inline(ctx, frag.HTML)
	if err != nil {
		return nil, fmt.Errorf("inlining images: %w", err)
	}

	doc, err := pdfdoc.Translate(outcome.HTML,
		pdfdoc.WithCreator(a.creator),
		pdfdoc.WithCreationDate(now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssembly, err)
	}

	var buf bytes.Buffer
	if err := pdfdoc.Write(doc, &buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssembly, err)
	}

	warnings := append(outcome.Warnings, doc.Warnings...)
	a.logger.Info("assembled pdf",
		"filename", name,
		"bytes", buf.Len(),
		"images", outcome.Images(),
		"warnings", len(warnings),
	)

	return &AssembleResult{
		Artifact: Artifact{Filename: name, PDF: buf.Bytes()},
		Warnings: warnings,
		Images:   outcome.Images(),
	}, nil
}
