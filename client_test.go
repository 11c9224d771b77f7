package md2pdf

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func renderServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func mustClient(t *testing.T, endpoint string) *RemoteClient {
	t.Helper()

	c, err := NewRemoteClient(endpoint)
	if err != nil {
		t.Fatalf("NewRemoteClient() error = %v", err)
	}
	return c
}

// ---------------------------------------------------------------------------
// TestNewRemoteClient - Endpoint validation
// ---------------------------------------------------------------------------

func TestNewRemoteClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		endpoint string
		wantErr  bool
	}{
		{"https://render.example.com/render-pdf", false},
		{"http://localhost:8080", false},
		{"", true},
		{"render.example.com", true},
		{"ftp://example.com/render", true},
		{"https://", true},
	}

	for _, tt := range tests {
		_, err := NewRemoteClient(tt.endpoint)
		if tt.wantErr {
			if !errors.Is(err, ErrEndpoint) {
				t.Errorf("NewRemoteClient(%q) error = %v, want ErrEndpoint", tt.endpoint, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("NewRemoteClient(%q) error = %v", tt.endpoint, err)
		}
	}
}

// ---------------------------------------------------------------------------
// TestRemoteClient_RequestRender - Protocol with the render service
// ---------------------------------------------------------------------------

func TestRemoteClient_RequestRender(t *testing.T) {
	t.Parallel()

	t.Run("posts the job and returns the PDF", func(t *testing.T) {
		t.Parallel()

		pdf := makePDF(t)
		var got RenderJob
		srv, _ := renderServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
				t.Errorf("decoding job: %v", err)
			}
			w.Header().Set("Content-Type", "application/pdf")
			w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
			_, _ = w.Write(pdf)
		})

		art, err := mustClient(t, srv.URL).RequestRender(context.Background(), RenderJob{HTML: "<p>hi</p>", Filename: "report.pdf"})
		if err != nil {
			t.Fatalf("RequestRender() error = %v", err)
		}
		if got.HTML != "<p>hi</p>" || got.Filename != "report.pdf" {
			t.Errorf("server received %+v", got)
		}
		if art.Filename != "report.pdf" || len(art.PDF) != len(pdf) {
			t.Errorf("artifact = %q (%d bytes)", art.Filename, len(art.PDF))
		}
	})

	t.Run("missing filename defaults", func(t *testing.T) {
		t.Parallel()

		pdf := makePDF(t)
		var got RenderJob
		srv, _ := renderServer(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = w.Write(pdf)
		})

		art, err := mustClient(t, srv.URL).RequestRender(context.Background(), RenderJob{HTML: "<p>hi</p>"})
		if err != nil {
			t.Fatalf("RequestRender() error = %v", err)
		}
		if got.Filename != DefaultFilename || art.Filename != DefaultFilename {
			t.Errorf("filename sent %q, artifact %q, want %q", got.Filename, art.Filename, DefaultFilename)
		}
	})

	t.Run("oversized job is refused locally", func(t *testing.T) {
		t.Parallel()

		srv, calls := renderServer(t, func(w http.ResponseWriter, r *http.Request) {})
		job := RenderJob{HTML: strings.Repeat("a", MaxHTMLBytes+1)}

		_, err := mustClient(t, srv.URL).RequestRender(context.Background(), job)
		if !errors.Is(err, ErrHTMLTooLarge) {
			t.Errorf("error = %v, want ErrHTMLTooLarge", err)
		}
		if calls.Load() != 0 {
			t.Errorf("service contacted %d times, want 0", calls.Load())
		}
	})

	t.Run("job at the limit is sent", func(t *testing.T) {
		t.Parallel()

		pdf := makePDF(t)
		srv, calls := renderServer(t, func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write(pdf) })
		job := RenderJob{HTML: strings.Repeat("a", MaxHTMLBytes)}

		if _, err := mustClient(t, srv.URL).RequestRender(context.Background(), job); err != nil {
			t.Fatalf("RequestRender() error = %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("service contacted %d times, want 1", calls.Load())
		}
	})

	t.Run("empty html", func(t *testing.T) {
		t.Parallel()

		c := mustClient(t, "http://localhost:1")
		if _, err := c.RequestRender(context.Background(), RenderJob{}); !errors.Is(err, ErrEmptyDocument) {
			t.Errorf("error = %v, want ErrEmptyDocument", err)
		}
	})

	t.Run("non-PDF success body", func(t *testing.T) {
		t.Parallel()

		srv, _ := renderServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>oops</html>"))
		})
		_, err := mustClient(t, srv.URL).RequestRender(context.Background(), RenderJob{HTML: "<p>x</p>"})
		if !errors.Is(err, ErrInvalidPDF) {
			t.Errorf("error = %v, want ErrInvalidPDF", err)
		}
	})

	t.Run("unreachable service", func(t *testing.T) {
		t.Parallel()

		srv, _ := renderServer(t, func(w http.ResponseWriter, r *http.Request) {})
		url := srv.URL
		srv.Close()

		_, err := mustClient(t, url).RequestRender(context.Background(), RenderJob{HTML: "<p>x</p>"})
		if !errors.Is(err, ErrRemoteRender) {
			t.Errorf("error = %v, want ErrRemoteRender", err)
		}
	})
}

// ---------------------------------------------------------------------------
// TestRemoteClient_RenderError - Non-2xx answers
// ---------------------------------------------------------------------------

func TestRemoteClient_RenderError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantDetails string
		wantText    string
	}{
		{
			name:        "JSON envelope",
			status:      http.StatusInternalServerError,
			body:        `{"error":"Failed to render PDF"}`,
			wantMessage: "Failed to render PDF",
			wantText:    "Worker returned HTTP 500: Failed to render PDF",
		},
		{
			name:        "JSON envelope with details",
			status:      http.StatusRequestEntityTooLarge,
			body:        `{"error":"Payload Too Large","details":"HTML exceeds 2097152 bytes"}`,
			wantMessage: "Payload Too Large",
			wantDetails: "HTML exceeds 2097152 bytes",
			wantText:    "Worker returned HTTP 413: Payload Too Large (HTML exceeds 2097152 bytes)",
		},
		{
			name:        "plain text is truncated",
			status:      http.StatusBadGateway,
			body:        strings.Repeat("x", 300),
			wantMessage: strings.Repeat("x", 200),
		},
		{
			name:        "empty body uses status text",
			status:      http.StatusServiceUnavailable,
			body:        "",
			wantMessage: "Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv, _ := renderServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := mustClient(t, srv.URL).RequestRender(context.Background(), RenderJob{HTML: "<p>x</p>"})

			var rerr *RenderError
			if !errors.As(err, &rerr) {
				t.Fatalf("error = %v, want *RenderError", err)
			}
			if !errors.Is(err, ErrRemoteRender) {
				t.Error("RenderError should match ErrRemoteRender")
			}
			if rerr.Status != tt.status {
				t.Errorf("Status = %d, want %d", rerr.Status, tt.status)
			}
			if rerr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", rerr.Message, tt.wantMessage)
			}
			if rerr.Details != tt.wantDetails {
				t.Errorf("Details = %q, want %q", rerr.Details, tt.wantDetails)
			}
			if tt.wantText != "" && rerr.Error() != tt.wantText {
				t.Errorf("Error() = %q, want %q", rerr.Error(), tt.wantText)
			}
		})
	}
}
