package inliner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"

	"github.com/alnah/md2pdf-web/internal/htmlutil"
)

// DefaultConcurrency bounds simultaneous retrievals.
const DefaultConcurrency = 4

// PlaceholderClass marks the element that replaces an image that could not
// be loaded. The element also carries the PlaceholderAttr attribute.
const (
	PlaceholderClass = "image-placeholder"
	PlaceholderAttr  = "data-image-placeholder"
)

// ImageRef is an image found in a fragment.
type ImageRef struct {
	Src      string
	Alt      string
	Embedded bool // src is already a data: URI
}

// Label returns the alt text, or the source when there is none.
func (r ImageRef) Label() string {
	if strings.TrimSpace(r.Alt) != "" {
		return r.Alt
	}
	return r.Src
}

// Outcome is the result of inlining one fragment.
type Outcome struct {
	HTML            string
	Warnings        []string // document order
	Inlined         int
	AlreadyEmbedded int
	Failed          int
}

// Images returns the number of image positions in the output.
func (o *Outcome) Images() int {
	return o.Inlined + o.AlreadyEmbedded + o.Failed
}

// Inliner replaces remote image references with embedded data URIs.
type Inliner struct {
	fetcher     Fetcher
	base        *url.URL
	concurrency int
	timeout     time.Duration
	limiter     *HostLimiter
	logger      *slog.Logger
}

// Option configures an Inliner.
type Option func(*Inliner)

// WithBaseURL sets the document location relative sources resolve against.
func WithBaseURL(u *url.URL) Option {
	return func(in *Inliner) { in.base = u }
}

// WithConcurrency bounds simultaneous retrievals. Values below 1 mean 1.
func WithConcurrency(n int) Option {
	return func(in *Inliner) { in.concurrency = max(n, 1) }
}

// WithTimeout bounds each retrieval. Zero disables the per-image timeout.
func WithTimeout(d time.Duration) Option {
	return func(in *Inliner) { in.timeout = d }
}

// WithRateLimit limits retrievals per host. Zero or less means unlimited.
func WithRateLimit(rps float64) Option {
	return func(in *Inliner) {
		in.limiter = nil
		if rps > 0 {
			in.limiter = NewHostLimiter(rps)
		}
	}
}

// WithLogger sets the logger used for per-image failures.
func WithLogger(l *slog.Logger) Option {
	return func(in *Inliner) { in.logger = l }
}

// New creates an Inliner retrieving images through fetcher.
func New(fetcher Fetcher, opts ...Option) *Inliner {
	in := &Inliner{
		fetcher:     fetcher,
		concurrency: DefaultConcurrency,
		timeout:     DefaultFetchTimeout,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

func newImageRef(s *goquery.Selection) ImageRef {
	src, _ := s.Attr("src")
	alt, _ := s.Attr("alt")
	src = strings.TrimSpace(src)
	return ImageRef{
		Src:      src,
		Alt:      alt,
		Embedded: strings.HasPrefix(strings.ToLower(src), "data:"),
	}
}

// fetchResult is owned by exactly one retrieval task.
type fetchResult struct {
	asset Asset
	err   error
}

// Inline embeds every remote image of fragmentHTML. Images that cannot be
// retrieved become placeholders with a warning; they never fail the call.
// An error is returned only when the fragment cannot be parsed or ctx is
// already done.
func (in *Inliner) Inline(ctx context.Context, fragmentHTML string) (*Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := htmlutil.ParseFragment(fragmentHTML)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	type task struct {
		sel *goquery.Selection
		ref ImageRef
	}

	out := &Outcome{}
	var tasks []task
	goquery.NewDocumentFromNode(root).Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		ref := newImageRef(s)
		if ref.Embedded {
			out.AlreadyEmbedded++
			return
		}
		tasks = append(tasks, task{sel: s, ref: ref})
	})

	results := make([]fetchResult, len(tasks))

	var g errgroup.Group
	g.SetLimit(in.concurrency)
	for i, t := range tasks {
		g.Go(func() error {
			results[i] = in.retrieve(ctx, t.ref.Src)
			return nil
		})
	}
	_ = g.Wait()

	for i, t := range tasks {
		r := results[i]
		if r.err == nil {
			t.sel.SetAttr("src", r.asset.DataURI())
			out.Inlined++
			continue
		}
		reason := failureReason(r.err, in.timeout)
		in.logger.Warn("image not inlined", "src", t.ref.Src, "err", r.err)
		t.sel.ReplaceWithNodes(placeholderNode(t.ref.Label()))
		out.Warnings = append(out.Warnings, fmt.Sprintf(`Image "%s" could not be loaded (%s)`, t.ref.Label(), reason))
		out.Failed++
	}

	rendered, err := htmlutil.Render(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	out.HTML = rendered
	return out, nil
}

// retrieve resolves src, waits for the host limiter, and fetches within the
// per-image timeout.
func (in *Inliner) retrieve(ctx context.Context, src string) fetchResult {
	target, err := in.resolve(src)
	if err != nil {
		return fetchResult{err: err}
	}

	fctx := ctx
	if in.timeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, in.timeout)
		defer cancel()
	}

	if in.limiter != nil {
		if err := in.limiter.Wait(fctx, target.Host); err != nil {
			return fetchResult{err: err}
		}
	}

	resp, err := in.fetcher.Fetch(fctx, target.String())
	if err != nil {
		return fetchResult{err: err}
	}

	return fetchResult{asset: Asset{
		MIMEType: DetectMIMEType(resp.ContentType, target.String(), resp.Data),
		Data:     resp.Data,
	}}
}

// resolve makes src absolute against the base location.
func (in *Inliner) resolve(src string) (*url.URL, error) {
	u, err := url.Parse(src)
	if err != nil {
		return nil, err
	}
	if in.base != nil {
		u = in.base.ResolveReference(u)
	}
	if !u.IsAbs() {
		return nil, ErrUnresolvable
	}
	return u, nil
}

// failureReason is the short cause shown in a warning.
func failureReason(err error, timeout time.Duration) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		if timeout > 0 {
			return "timed out after " + timeout.String()
		}
		return "timed out"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		if uerr.Timeout() {
			return "timed out"
		}
		return uerr.Err.Error()
	}
	return err.Error()
}

// placeholderNode builds <span class="image-placeholder" data-image-placeholder>[Image: label]</span>.
func placeholderNode(label string) *html.Node {
	span := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Span,
		Data:     "span",
		Attr: []html.Attribute{
			{Key: "class", Val: PlaceholderClass},
			{Key: PlaceholderAttr, Val: ""},
		},
	}
	span.AppendChild(&html.Node{Type: html.TextNode, Data: "[Image: " + label + "]"})
	return span
}
