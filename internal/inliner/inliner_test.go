package inliner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// Notes:
// - Retrieval goes through httptest servers or fetcherFunc doubles.
// - The image-count checks count <img and placeholder markers in the output
//   and compare them with the <img count of the input.

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

type fetcherFunc func(ctx context.Context, rawURL string) (*Response, error)

func (f fetcherFunc) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	return f(ctx, rawURL)
}

func countImagePositions(s string) int {
	return strings.Count(s, "<img") + strings.Count(s, PlaceholderAttr)
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png", "/img/rel.png":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(pngMagic)
		case "/slow.png":
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// ---------------------------------------------------------------------------
// Inline
// ---------------------------------------------------------------------------

func TestInline_PartialFailure(t *testing.T) {
	t.Parallel()

	srv := imageServer(t)
	fragment := `<p>A <img src="` + srv.URL + `/ok.png" alt="ok"/> B <img src="` + srv.URL + `/missing.png" alt="broken"/></p>`

	out, err := New(NewHTTPFetcher()).Inline(context.Background(), fragment)
	if err != nil {
		t.Fatalf("Inline() error = %v", err)
	}

	if out.Inlined != 1 || out.Failed != 1 || out.AlreadyEmbedded != 0 {
		t.Errorf("Inline() counts = inlined %d, failed %d, embedded %d; want 1, 1, 0", out.Inlined, out.Failed, out.AlreadyEmbedded)
	}
	if !strings.Contains(out.HTML, `src="data:image/png;base64,`) {
		t.Errorf("Inline() did not embed the reachable image:\n%s", out.HTML)
	}
	if !strings.Contains(out.HTML, `<span class="image-placeholder" data-image-placeholder="">[Image: broken]</span>`) {
		t.Errorf("Inline() did not place a placeholder:\n%s", out.HTML)
	}
	if strings.Contains(out.HTML, srv.URL) {
		t.Errorf("Inline() left a remote reference:\n%s", out.HTML)
	}

	want := []string{`Image "broken" could not be loaded (unexpected HTTP status: HTTP 404)`}
	if len(out.Warnings) != 1 || out.Warnings[0] != want[0] {
		t.Errorf("Inline() warnings = %q, want %q", out.Warnings, want)
	}

	if got, want := countImagePositions(out.HTML), strings.Count(fragment, "<img"); got != want {
		t.Errorf("image positions = %d, want %d", got, want)
	}
}

func TestInline_EmbeddedImagesUntouched(t *testing.T) {
	t.Parallel()

	called := false
	f := fetcherFunc(func(context.Context, string) (*Response, error) {
		called = true
		return nil, errors.New("unexpected fetch")
	})

	fragment := `<p><img src="data:image/gif;base64,R0lGODlhAQABAAAAACw=" alt="dot"/></p>`
	out, err := New(f).Inline(context.Background(), fragment)
	if err != nil {
		t.Fatalf("Inline() error = %v", err)
	}
	if called {
		t.Error("Inline() fetched an embedded image")
	}
	if out.AlreadyEmbedded != 1 || out.Images() != 1 || len(out.Warnings) != 0 {
		t.Errorf("Inline() = %+v", out)
	}
	if !strings.Contains(out.HTML, `src="data:image/gif;base64,R0lGODlhAQABAAAAACw="`) {
		t.Errorf("Inline() changed the embedded image:\n%s", out.HTML)
	}
}

func TestInline_NoImages(t *testing.T) {
	t.Parallel()

	out, err := New(NewHTTPFetcher()).Inline(context.Background(), "<h1>Title</h1><p>text</p>")
	if err != nil {
		t.Fatalf("Inline() error = %v", err)
	}
	if out.HTML != "<h1>Title</h1><p>text</p>" || out.Images() != 0 {
		t.Errorf("Inline() = %+v", out)
	}
}

func TestInline_RelativeSources(t *testing.T) {
	t.Parallel()

	srv := imageServer(t)
	base, _ := url.Parse(srv.URL + "/docs/")

	t.Run("resolved against base", func(t *testing.T) {
		t.Parallel()

		out, err := New(NewHTTPFetcher(), WithBaseURL(base)).Inline(context.Background(), `<img src="../img/rel.png"/>`)
		if err != nil {
			t.Fatalf("Inline() error = %v", err)
		}
		if out.Inlined != 1 {
			t.Errorf("Inline() = %+v, want one inlined image", out)
		}
	})

	t.Run("no base fails into placeholder", func(t *testing.T) {
		t.Parallel()

		out, err := New(NewHTTPFetcher()).Inline(context.Background(), `<img src="img/rel.png"/>`)
		if err != nil {
			t.Fatalf("Inline() error = %v", err)
		}
		if out.Failed != 1 || len(out.Warnings) != 1 {
			t.Fatalf("Inline() = %+v, want one failure", out)
		}
		if want := `Image "img/rel.png" could not be loaded (relative URL without a base location)`; out.Warnings[0] != want {
			t.Errorf("warning = %q, want %q", out.Warnings[0], want)
		}
	})
}

func TestInline_Timeout(t *testing.T) {
	t.Parallel()

	srv := imageServer(t)
	fragment := `<img src="` + srv.URL + `/slow.png" alt="slow"/><img src="` + srv.URL + `/ok.png" alt="fast"/>`

	start := time.Now()
	out, err := New(NewHTTPFetcher(), WithTimeout(100*time.Millisecond)).Inline(context.Background(), fragment)
	if err != nil {
		t.Fatalf("Inline() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Inline() took %v, per-image timeout not applied", elapsed)
	}
	if out.Inlined != 1 || out.Failed != 1 {
		t.Errorf("Inline() = %+v, want 1 inlined and 1 failed", out)
	}
	if len(out.Warnings) != 1 || !strings.Contains(out.Warnings[0], "timed out after 100ms") {
		t.Errorf("Inline() warnings = %q, want timeout reason", out.Warnings)
	}
}

func TestInline_CancelledMidFlight(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var started sync.WaitGroup
	started.Add(2)
	f := fetcherFunc(func(ctx context.Context, _ string) (*Response, error) {
		started.Done()
		<-ctx.Done()
		return nil, ctx.Err()
	})

	go func() {
		started.Wait()
		cancel()
	}()

	fragment := `<img src="https://a.example/1.png" alt="one"/><img src="https://b.example/2.png" alt="two"/>`
	out, err := New(f, WithConcurrency(2)).Inline(ctx, fragment)
	if err != nil {
		t.Fatalf("Inline() error = %v", err)
	}
	if out.Failed != 2 || countImagePositions(out.HTML) != 2 {
		t.Errorf("Inline() = %+v, want two placeholders", out)
	}
	want := []string{
		`Image "one" could not be loaded (canceled)`,
		`Image "two" could not be loaded (canceled)`,
	}
	for i, w := range want {
		if i >= len(out.Warnings) || out.Warnings[i] != w {
			t.Errorf("warnings = %q, want %q", out.Warnings, want)
			break
		}
	}
}

func TestInline_AlreadyCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(NewHTTPFetcher()).Inline(ctx, `<img src="https://example.com/a.png"/>`)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Inline() error = %v, want context.Canceled", err)
	}
}

func TestInline_ConcurrencyBound(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	f := fetcherFunc(func(context.Context, string) (*Response, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return &Response{ContentType: "image/png", Data: pngMagic}, nil
	})

	var b strings.Builder
	for i := 0; i < 8; i++ {
		b.WriteString(`<img src="https://example.com/` + string(rune('a'+i)) + `.png"/>`)
	}

	out, err := New(f, WithConcurrency(2)).Inline(context.Background(), b.String())
	if err != nil {
		t.Fatalf("Inline() error = %v", err)
	}
	if out.Inlined != 8 {
		t.Errorf("Inline() inlined %d, want 8", out.Inlined)
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrent fetches = %d, want <= 2", p)
	}
}

func TestInline_WarningsInDocumentOrder(t *testing.T) {
	t.Parallel()

	// Later images fail faster; warnings must still follow document order.
	f := fetcherFunc(func(_ context.Context, rawURL string) (*Response, error) {
		switch {
		case strings.HasSuffix(rawURL, "1.png"):
			time.Sleep(40 * time.Millisecond)
		case strings.HasSuffix(rawURL, "2.png"):
			time.Sleep(20 * time.Millisecond)
		}
		return nil, errors.New("down")
	})

	fragment := `<img src="https://x/1.png" alt="first"/><img src="https://x/2.png" alt="second"/><img src="https://x/3.png"/>`
	out, err := New(f, WithConcurrency(3)).Inline(context.Background(), fragment)
	if err != nil {
		t.Fatalf("Inline() error = %v", err)
	}

	want := []string{
		`Image "first" could not be loaded (down)`,
		`Image "second" could not be loaded (down)`,
		`Image "https://x/3.png" could not be loaded (down)`,
	}
	if strings.Join(out.Warnings, "\n") != strings.Join(want, "\n") {
		t.Errorf("warnings = %q, want %q", out.Warnings, want)
	}
}

func TestImageRef_Label(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ref  ImageRef
		want string
	}{
		{"alt text wins", ImageRef{Src: "https://x/a.png", Alt: "a"}, "a"},
		{"blank alt falls back to src", ImageRef{Src: "https://x/a.png", Alt: "  "}, "https://x/a.png"},
		{"no alt", ImageRef{Src: "data:image/png;base64,AA==", Embedded: true}, "data:image/png;base64,AA=="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.ref.Label(); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}
