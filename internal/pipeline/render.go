package pipeline

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/alnah/md2pdf-web/internal/htmlutil"
)

// EmptyStateHTML is the fragment shown when there is nothing to render.
const EmptyStateHTML = `<p class="empty-state">No content to preview. Start typing in the editor.</p>`

// ErrFragmentParse indicates the sanitized HTML could not be parsed for the
// math and link passes.
var ErrFragmentParse = errors.New("parsing rendered fragment")

// Fragment is sanitized, display-ready HTML for one version of the source.
type Fragment struct {
	HTML  string
	Empty bool
}

// ErrorStateHTML formats the fragment shown when rendering fails.
func ErrorStateHTML(err error) string {
	return `<p class="error-state">Error: ` + html.EscapeString(err.Error()) + `</p>`
}

// Renderer turns Markdown text into a sanitized HTML fragment with math
// typeset and links enhanced. A Renderer is safe for concurrent use.
type Renderer struct {
	preprocessor MarkdownPreprocessor
	converter    HTMLConverter
	sanitizer    Sanitizer
	math         MathTypesetter
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithMathTypesetter replaces the KaTeX typesetter.
func WithMathTypesetter(ts MathTypesetter) RendererOption {
	return func(r *Renderer) { r.math = ts }
}

// WithHTMLConverter replaces the goldmark converter.
func WithHTMLConverter(c HTMLConverter) RendererOption {
	return func(r *Renderer) { r.converter = c }
}

// WithSanitizer replaces the bluemonday policy.
func WithSanitizer(s Sanitizer) RendererOption {
	return func(r *Renderer) { r.sanitizer = s }
}

// NewRenderer creates a Renderer with goldmark, bluemonday and KaTeX.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{
		preprocessor: &MathPreprocessor{},
		converter:    NewGoldmarkConverter(),
		sanitizer:    NewSanitizer(),
		math:         NewKaTeXTypesetter(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render converts markdown to a fragment. Whitespace-only input yields the
// empty-state fragment. Malformed math never fails the render; it stays
// literal in the output.
func (r *Renderer) Render(ctx context.Context, markdown string) (*Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(markdown) == "" {
		return &Fragment{HTML: EmptyStateHTML, Empty: true}, nil
	}

	pre := r.preprocessor.PreprocessMarkdown(ctx, markdown)

	converted, err := r.converter.ToHTML(ctx, pre.Markdown)
	if err != nil {
		return nil, err
	}

	safe := r.sanitizer.Sanitize(converted)

	root, err := htmlutil.ParseFragment(safe)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFragmentParse, err)
	}
	typesetMath(root, pre.Math, r.math)
	enhanceLinks(root)

	out, err := htmlutil.Render(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFragmentParse, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Fragment{HTML: out}, nil
}

// Preview renders markdown for display and never fails: a render error is
// shown as an error-state fragment.
func (r *Renderer) Preview(ctx context.Context, markdown string) *Fragment {
	frag, err := r.Render(ctx, markdown)
	if err != nil {
		return &Fragment{HTML: ErrorStateHTML(err)}
	}
	return frag
}
