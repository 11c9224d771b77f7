package inliner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultFetchTimeout bounds a single image retrieval.
const DefaultFetchTimeout = 10 * time.Second

// DefaultMaxImageBytes caps a single image payload (20 MiB).
const DefaultMaxImageBytes = 20 << 20

// Response is a retrieved image payload.
type Response struct {
	ContentType string // as declared by the source, may be empty
	Data        []byte
}

// Fetcher retrieves the bytes behind an absolute URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Response, error)
}

// ---------------------------------------------------------------------------
// HTTP
// ---------------------------------------------------------------------------

// HTTPFetcher retrieves images over http and https.
type HTTPFetcher struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPTimeout sets the client timeout. Defaults to DefaultFetchTimeout.
func WithHTTPTimeout(d time.Duration) HTTPOption {
	return func(f *HTTPFetcher) { f.timeout = d }
}

// WithHTTPMaxBytes sets the payload cap. Defaults to DefaultMaxImageBytes.
func WithHTTPMaxBytes(n int64) HTTPOption {
	return func(f *HTTPFetcher) { f.maxBytes = n }
}

// WithHTTPClient sets the client whose transport and redirect policy are
// used. The fetcher works on a copy, so c itself keeps its Timeout.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(f *HTTPFetcher) { f.client = c }
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		timeout:  DefaultFetchTimeout,
		maxBytes: DefaultMaxImageBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	client := http.Client{}
	if f.client != nil {
		client = *f.client
	}
	client.Timeout = f.timeout
	f.client = &client
	return f
}

// Fetch performs a GET and returns the body of a 2xx response.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrHTTPStatus, resp.StatusCode)
	}

	data, err := readCapped(resp.Body, f.maxBytes)
	if err != nil {
		return nil, err
	}

	return &Response{ContentType: resp.Header.Get("Content-Type"), Data: data}, nil
}

// readCapped reads r fully, failing once more than maxBytes arrive.
func readCapped(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxBytes)
	}
	return data, nil
}

// ---------------------------------------------------------------------------
// Local files
// ---------------------------------------------------------------------------

// FileFetcher reads file:// URLs confined to a root directory.
type FileFetcher struct {
	root     string
	maxBytes int64
}

// NewFileFetcher creates a FileFetcher serving files under root.
func NewFileFetcher(root string) (*FileFetcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	return &FileFetcher{root: abs, maxBytes: DefaultMaxImageBytes}, nil
}

// Fetch reads the file named by a file:// URL.
func (f *FileFetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "file" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	p := filepath.FromSlash(u.Path)
	if real, err := filepath.EvalSymlinks(p); err == nil {
		p = real
	}
	if !isPathUnderDir(p, f.root) {
		return nil, fmt.Errorf("%w: %s", ErrOutsideRoot, u.Path)
	}

	file, err := os.Open(p) // #nosec G304 -- confined to root above
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := readCapped(file, f.maxBytes)
	if err != nil {
		return nil, err
	}
	return &Response{Data: data}, nil
}

// isPathUnderDir checks if absPath is under dir (prevents path traversal).
func isPathUnderDir(absPath, dir string) bool {
	cleanPath := filepath.Clean(absPath)
	cleanDir := filepath.Clean(dir)
	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}
	return strings.HasPrefix(cleanPath+string(filepath.Separator), cleanDir)
}

// DirURL converts a directory path to a file:// URL with a trailing slash,
// suitable as the base location for relative image references.
func DirURL(dir string) (*url.URL, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	p := filepath.ToSlash(abs)
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	if !strings.HasPrefix(p, "/") {
		// Windows drive paths: file:///C:/...
		p = "/" + p
	}
	return &url.URL{Scheme: "file", Path: p}, nil
}

// ---------------------------------------------------------------------------
// Dispatch and decoration
// ---------------------------------------------------------------------------

// SchemeFetcher dispatches by URL scheme.
type SchemeFetcher map[string]Fetcher

// Fetch delegates to the fetcher registered for the URL's scheme.
func (s SchemeFetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	f, ok := s[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	return f.Fetch(ctx, rawURL)
}

// LoggingFetcher wraps a Fetcher with debug logging.
type LoggingFetcher struct {
	next   Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch logs the URL, payload size and duration, then returns the wrapped result.
func (f *LoggingFetcher) Fetch(ctx context.Context, rawURL string) (resp *Response, err error) {
	defer func(begin time.Time) {
		n := 0
		if resp != nil {
			n = len(resp.Data)
		}
		f.logger.Debug("fetch image",
			"url", rawURL,
			"bytes", n,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.Fetch(ctx, rawURL)
}

// Compile-time interface checks.
var (
	_ Fetcher = (*HTTPFetcher)(nil)
	_ Fetcher = (*FileFetcher)(nil)
	_ Fetcher = SchemeFetcher(nil)
	_ Fetcher = (*LoggingFetcher)(nil)
)
