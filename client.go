package md2pdf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/alnah/md2pdf-web/internal/pdfcheck"
)

// maxErrorBody caps how much of a failed response is read.
const maxErrorBody = 64 << 10

// maxPDFBytes caps a rendered artifact.
const maxPDFBytes = 200 << 20

// errorPreview is how much of a non-JSON error body is kept.
const errorPreview = 200

// RenderError is a non-2xx answer from the render service.
type RenderError struct {
	Status  int
	Message string
	Details string
}

func (e *RenderError) Error() string {
	msg := fmt.Sprintf("Worker returned HTTP %d: %s", e.Status, e.Message)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

// Unwrap lets errors.Is match ErrRemoteRender.
func (e *RenderError) Unwrap() error {
	return ErrRemoteRender
}

// RemoteClient sends documents to a render service.
type RemoteClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a RemoteClient.
type ClientOption func(*RemoteClient)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(rc *RemoteClient) { rc.httpClient = c }
}

// WithClientLogger sets the logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(rc *RemoteClient) { rc.logger = l }
}

// NewRemoteClient creates a client for endpoint, an absolute http(s) URL.
func NewRemoteClient(endpoint string, opts ...ClientOption) (*RemoteClient, error) {
	u, err := url.Parse(endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrEndpoint, endpoint)
	}

	c := &RemoteClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the render service URL.
func (c *RemoteClient) Endpoint() string {
	return c.endpoint
}

// RequestRender posts job and returns the PDF. Jobs over MaxHTMLBytes are
// refused without contacting the service.
func (c *RemoteClient) RequestRender(ctx context.Context, job RenderJob) (*Artifact, error) {
	if job.HTML == "" {
		return nil, ErrEmptyDocument
	}
	if job.Size() > MaxHTMLBytes {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrHTMLTooLarge, job.Size(), MaxHTMLBytes)
	}
	if job.Filename == "" {
		job.Filename = DefaultFilename
	}

	// HTML escaping would inflate the body against the service's size limit.
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(job); err != nil {
		return nil, fmt.Errorf("encoding render job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEndpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteRender, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		rerr := decodeRenderError(resp.StatusCode, data)
		c.logger.Warn("render service error", "status", rerr.Status, "error", rerr.Message)
		return nil, rerr
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrRemoteRender, err)
	}
	if len(data) > maxPDFBytes {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", ErrInvalidPDF, maxPDFBytes)
	}
	info, err := pdfcheck.Inspect(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	name := filenameFromDisposition(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = job.Filename
	}
	c.logger.Info("remote render", "filename", name, "bytes", len(data), "pages", info.PageCount)

	return &Artifact{Filename: name, PDF: data}, nil
}

// decodeRenderError reads the service's JSON error envelope, falling back to
// the start of the body text.
func decodeRenderError(status int, body []byte) *RenderError {
	var envelope struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return &RenderError{Status: status, Message: envelope.Error, Details: envelope.Details}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > errorPreview {
		text = text[:errorPreview]
		for !utf8.ValidString(text) {
			text = text[:len(text)-1]
		}
	}
	if text == "" {
		text = http.StatusText(status)
	}
	return &RenderError{Status: status, Message: text}
}

func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
