package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	md2pdf "github.com/alnah/md2pdf-web"
	"github.com/alnah/md2pdf-web/internal/assets"
	"github.com/alnah/md2pdf-web/internal/config"
	"github.com/alnah/md2pdf-web/internal/pdfcheck"
	"github.com/alnah/md2pdf-web/internal/server"
	"github.com/alnah/md2pdf-web/internal/session"
)

// fakePrinter stands in for headless Chrome on both sides of the protocol.
type fakePrinter struct {
	pdf   []byte
	err   error
	calls atomic.Int32
	last  atomic.Value // string
}

func (p *fakePrinter) PrintPDF(_ context.Context, documentHTML string) ([]byte, error) {
	p.calls.Add(1)
	p.last.Store(documentHTML)
	return p.pdf, p.err
}

func (p *fakePrinter) PrintHTML(ctx context.Context, documentHTML string) ([]byte, error) {
	return p.PrintPDF(ctx, documentHTML)
}

func (p *fakePrinter) lastHTML() string {
	s, _ := p.last.Load().(string)
	return s
}

// renderService runs the real render service in front of a fake printer.
func renderService(t *testing.T, p *fakePrinter) string {
	t.Helper()
	srv := httptest.NewServer(server.New(p, server.Options{}).Handler())
	t.Cleanup(srv.Close)
	return srv.URL + "/render-pdf"
}

// ---------------------------------------------------------------------------
// TestPreview - Fragment and themed document output
// ---------------------------------------------------------------------------

func TestPreview(t *testing.T) {
	t.Parallel()

	t.Run("file renders fragment and becomes session content", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		path := writeFile(t, t.TempDir(), "doc.md", "# Title\n\nSee [intro](#title).\n")

		if code := te.run(t, "preview", path); code != ExitSuccess {
			t.Fatalf("exit code = %d, stderr: %s", code, te.stderr)
		}
		out := te.stdout.String()
		if !strings.Contains(out, "<h1") || !strings.Contains(out, `data-scroll-target="title"`) {
			t.Errorf("unexpected fragment:\n%s", out)
		}
		if strings.Contains(out, "<html") {
			t.Error("fragment should not be a full document")
		}

		saved, ok, _ := te.store.Get(context.Background(), session.KeyContent)
		if !ok || !strings.HasPrefix(saved, "# Title") {
			t.Errorf("session content = %q, %v", saved, ok)
		}
	})

	t.Run("stdin", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		te.Stdin = strings.NewReader("**bold**")

		if code := te.run(t, "preview", "-"); code != ExitSuccess {
			t.Fatalf("exit code = %d, stderr: %s", code, te.stderr)
		}
		if !strings.Contains(te.stdout.String(), "<strong>bold</strong>") {
			t.Errorf("stdout = %q", te.stdout)
		}
	})

	t.Run("whitespace shows empty state", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		te.Stdin = strings.NewReader("  \n\t")

		if code := te.run(t, "preview", "-"); code != ExitSuccess {
			t.Fatalf("exit code = %d", code)
		}
		if !strings.Contains(te.stdout.String(), "empty-state") {
			t.Errorf("stdout = %q", te.stdout)
		}
	})

	t.Run("no input uses the example document", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		example, err := assets.LoadDocument(assets.ExampleDocumentName)
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
		direct := newTestEnv(t)
		direct.Stdin = strings.NewReader(example)

		if code := te.run(t, "preview"); code != ExitSuccess {
			t.Fatalf("exit code = %d, stderr: %s", code, te.stderr)
		}
		if code := direct.run(t, "preview", "-"); code != ExitSuccess {
			t.Fatalf("exit code = %d", code)
		}
		if te.stdout.String() != direct.stdout.String() {
			t.Error("preview without input should render the example document")
		}
	})

	t.Run("document uses theme and writes file", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		dir := t.TempDir()
		in := writeFile(t, dir, "doc.md", "# Themed\n")
		out := filepath.Join(dir, "doc.html")

		code := te.run(t, "preview", in, "--document", "--theme", "githubLight", "-o", out)
		if code != ExitSuccess {
			t.Fatalf("exit code = %d, stderr: %s", code, te.stderr)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("reading output: %v", err)
		}
		html := string(data)
		if !strings.Contains(html, "<!doctype html>") || !strings.Contains(html, `class="markdown-body"`) {
			t.Errorf("not a themed document:\n%.300s", html)
		}
		if !strings.Contains(te.stderr.String(), "Wrote "+out) {
			t.Errorf("stderr = %q", te.stderr)
		}
	})

	t.Run("assets dir overrides styles", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		if err := os.MkdirAll(filepath.Join(dir, "house", "styles"), 0o750); err != nil {
			t.Fatalf("setup: %v", err)
		}
		writeFile(t, filepath.Join(dir, "house", "styles"), "base.css", "body { --house-style: 1; }")
		cfgPath := writeFile(t, dir, "web.yaml", "preview:\n  assetsDir: "+filepath.Join(dir, "house")+"\n")

		te := newTestEnv(t)
		te.Stdin = strings.NewReader("# x")
		if code := te.run(t, "preview", "-", "--document", "-c", cfgPath); code != ExitSuccess {
			t.Fatalf("exit code = %d, stderr: %s", code, te.stderr)
		}
		if !strings.Contains(te.stdout.String(), "--house-style") {
			t.Error("document should use the override stylesheet")
		}
	})

	t.Run("unknown theme is a usage error with hint", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		te.Stdin = strings.NewReader("# x")

		code := te.run(t, "preview", "-", "--document", "--theme", "solarized")
		if code != ExitUsage {
			t.Errorf("exit code = %d, want %d", code, ExitUsage)
		}
		if !strings.Contains(te.stderr.String(), "hint: available: laetus") {
			t.Errorf("stderr should list themes: %s", te.stderr)
		}
	})

	t.Run("missing file is an I/O error", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		code := te.run(t, "preview", filepath.Join(t.TempDir(), "missing.md"))
		if code != ExitIO {
			t.Errorf("exit code = %d, want %d", code, ExitIO)
		}
	})

	t.Run("two inputs", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		if code := te.run(t, "preview", "a.md", "b.md"); code != ExitUsage {
			t.Errorf("exit code = %d, want %d", code, ExitUsage)
		}
	})
}

// ---------------------------------------------------------------------------
// TestExport_Local - Assembly without a browser
// ---------------------------------------------------------------------------

func TestExport_Local(t *testing.T) {
	t.Parallel()

	t.Run("writes dated artifact", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		dir := t.TempDir()
		in := writeFile(t, dir, "doc.md", "# Report\n\nSome *text*.\n\n- one\n- two\n")
		outDir := filepath.Join(dir, "out")

		if code := te.run(t, "export", in, "--local", "-o", outDir); code != ExitSuccess {
			t.Fatalf("exit code = %d, stderr: %s", code, te.stderr)
		}

		data, err := os.ReadFile(filepath.Join(outDir, "markdown-2024-03-15.pdf"))
		if err != nil {
			t.Fatalf("artifact not written: %v", err)
		}
		info, err := pdfcheck.Inspect(data)
		if err != nil {
			t.Fatalf("Inspect() error = %v", err)
		}
		if info.Title != "Report" {
			t.Errorf("Title = %q, want Report", info.Title)
		}
		if !strings.Contains(te.stderr.String(), "Saved") {
			t.Errorf("stderr = %q", te.stderr)
		}
	})

	t.Run("missing local image becomes a warning", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		dir := t.TempDir()
		in := writeFile(t, dir, "doc.md", "# Pics\n\n![chart](missing.png)\n")

		code := te.run(t, "export", in, "--local", "-o", dir, "--date-format", "european")
		if code != ExitSuccess {
			t.Fatalf("exit code = %d, stderr: %s", code, te.stderr)
		}
		if _, err := os.Stat(filepath.Join(dir, "markdown-15-03-2024.pdf")); err != nil {
			t.Errorf("artifact not written: %v", err)
		}
		stderr := te.stderr.String()
		if !strings.Contains(stderr, `warning: Image "chart" could not be loaded`) {
			t.Errorf("stderr should carry the image warning:\n%s", stderr)
		}
		if strings.Index(stderr, "Saved") > strings.Index(stderr, "warning:") {
			t.Error("warnings should follow the saved notice")
		}
	})

	t.Run("empty document", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		te.Stdin = strings.NewReader("   \n")
		dir := t.TempDir()

		if code := te.run(t, "export", "-", "--local", "-o", dir); code != ExitUsage {
			t.Errorf("exit code = %d, want %d", code, ExitUsage)
		}
		entries, _ := os.ReadDir(dir)
		if len(entries) != 0 {
			t.Errorf("no artifact expected, found %d files", len(entries))
		}
	})

	t.Run("bad date format", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		te.Stdin = strings.NewReader("# x")
		if code := te.run(t, "export", "-", "--local", "--date-format", "[YYYY", "-o", t.TempDir()); code != ExitUsage {
			t.Errorf("exit code = %d, want %d", code, ExitUsage)
		}
	})
}

// ---------------------------------------------------------------------------
// TestExport_Remote - Render service round trip
// ---------------------------------------------------------------------------

func TestExport_Remote(t *testing.T) {
	t.Parallel()

	t.Run("themed document goes to the service", func(t *testing.T) {
		t.Parallel()

		printer := &fakePrinter{pdf: makePDF(t)}
		endpoint := renderService(t, printer)

		te := newTestEnv(t)
		te.Stdin = strings.NewReader("# Remote\n")
		dir := t.TempDir()

		code := te.run(t, "export", "-", "--endpoint", endpoint, "--theme", "githubDark", "-o", dir)
		if code != ExitSuccess {
			t.Fatalf("exit code = %d, stderr: %s", code, te.stderr)
		}
		if printer.calls.Load() != 1 {
			t.Errorf("printer calls = %d, want 1", printer.calls.Load())
		}
		if !strings.Contains(printer.lastHTML(), `class="markdown-body"`) {
			t.Error("service should receive the themed document")
		}
		if _, err := os.Stat(filepath.Join(dir, "markdown-2024-03-15.pdf")); err != nil {
			t.Errorf("artifact not written: %v", err)
		}
	})

	t.Run("render failure", func(t *testing.T) {
		t.Parallel()

		printer := &fakePrinter{err: errors.New("chrome crashed")}
		endpoint := renderService(t, printer)

		te := newTestEnv(t)
		te.Stdin = strings.NewReader("# Remote\n")

		code := te.run(t, "export", "-", "--endpoint", endpoint, "-o", t.TempDir())
		if code != ExitBrowser {
			t.Errorf("exit code = %d, want %d", code, ExitBrowser)
		}
		stderr := te.stderr.String()
		if !strings.Contains(stderr, "Worker returned HTTP 500: Failed to render PDF") {
			t.Errorf("stderr = %s", stderr)
		}
		if !strings.Contains(stderr, "hint: check the render service at "+endpoint) {
			t.Errorf("stderr should carry the endpoint hint: %s", stderr)
		}
	})

	t.Run("service refusal is a usage error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			_, _ = w.Write([]byte(`{"error":"HTML too large"}`))
		}))
		t.Cleanup(srv.Close)

		te := newTestEnv(t)
		te.Stdin = strings.NewReader("# Remote\n")

		if code := te.run(t, "export", "-", "--endpoint", srv.URL, "-o", t.TempDir()); code != ExitUsage {
			t.Errorf("exit code = %d, want %d", code, ExitUsage)
		}
	})

	t.Run("invalid endpoint", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		te.Stdin = strings.NewReader("# x")
		if code := te.run(t, "export", "-", "--endpoint", "ftp://example.com"); code != ExitUsage {
			t.Errorf("exit code = %d, want %d", code, ExitUsage)
		}
	})
}

// ---------------------------------------------------------------------------
// TestExport_Native - Local print fallback
// ---------------------------------------------------------------------------

func TestExport_Native(t *testing.T) {
	t.Parallel()

	t.Run("uses the session theme", func(t *testing.T) {
		t.Parallel()

		printer := &fakePrinter{pdf: makePDF(t)}
		te := newTestEnv(t)
		te.Printer = printer
		te.Stdin = strings.NewReader("# Native\n")
		dir := t.TempDir()

		if code := te.run(t, "session", "--theme", "githubLight"); code != ExitSuccess {
			t.Fatalf("session exit code = %d, stderr: %s", code, te.stderr)
		}
		if code := te.run(t, "export", "-", "-o", dir); code != ExitSuccess {
			t.Fatalf("exit code = %d, stderr: %s", code, te.stderr)
		}

		want, err := md2pdf.BuildDocument(context.Background(), "", assets.ThemeGitHubLight)
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
		// Both documents share the theme stylesheet.
		styleStart := strings.Index(want, "<style>")
		styleEnd := strings.Index(want, "</style>")
		if !strings.Contains(printer.lastHTML(), want[styleStart:styleEnd]) {
			t.Error("export should use the theme remembered by the session")
		}
	})

	t.Run("print failure", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		te.Printer = &fakePrinter{err: md2pdf.ErrPDFGeneration}
		te.Stdin = strings.NewReader("# Native\n")

		if code := te.run(t, "export", "-", "-o", t.TempDir()); code != ExitBrowser {
			t.Errorf("exit code = %d, want %d", code, ExitBrowser)
		}
	})
}

// ---------------------------------------------------------------------------
// TestSession - Remembered state
// ---------------------------------------------------------------------------

func TestSession(t *testing.T) {
	t.Parallel()

	t.Run("shows defaults", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		if code := te.run(t, "session"); code != ExitSuccess {
			t.Fatalf("exit code = %d", code)
		}
		out := te.stdout.String()
		for _, want := range []string{"content:     none", "theme:       laetus (config)", "scroll sync: off"} {
			if !strings.Contains(out, want) {
				t.Errorf("stdout should contain %q:\n%s", want, out)
			}
		}
	})

	t.Run("remembers theme and scroll sync", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		if code := te.run(t, "session", "--theme", "github", "--scroll-sync", "on"); code != ExitSuccess {
			t.Fatalf("exit code = %d, stderr: %s", code, te.stderr)
		}
		out := te.stdout.String()
		if !strings.Contains(out, "githubDark (session)") || !strings.Contains(out, "scroll sync: on") {
			t.Errorf("stdout:\n%s", out)
		}

		v, _, _ := te.store.Get(context.Background(), session.KeyScrollSync)
		if v != "true" {
			t.Errorf("stored scroll sync = %q, want true", v)
		}
	})

	t.Run("clear", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		_ = te.store.Set(context.Background(), session.KeyTheme, "githubLight")
		if code := te.run(t, "session", "--clear"); code != ExitSuccess {
			t.Fatalf("exit code = %d", code)
		}
		keys, _ := te.store.Keys(context.Background())
		if len(keys) != 0 {
			t.Errorf("keys after clear = %v", keys)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		if code := te.run(t, "session", "--scroll-sync", "maybe"); code != ExitUsage {
			t.Errorf("scroll-sync exit code = %d, want %d", code, ExitUsage)
		}
		if code := te.run(t, "session", "--theme", "neon"); code != ExitUsage {
			t.Errorf("theme exit code = %d, want %d", code, ExitUsage)
		}
	})

	t.Run("store failure falls back to memory", func(t *testing.T) {
		t.Parallel()

		te := newTestEnv(t)
		te.OpenStore = func(*config.Config, *slog.Logger) (session.Store, error) {
			return nil, errors.New("disk full")
		}
		if code := te.run(t, "session", "--scroll-sync", "on"); code != ExitSuccess {
			t.Fatalf("exit code = %d, stderr: %s", code, te.stderr)
		}
		if !strings.Contains(te.stderr.String(), "session store unavailable") {
			t.Errorf("stderr should warn: %s", te.stderr)
		}
	})
}

func TestReset(t *testing.T) {
	t.Parallel()

	te := newTestEnv(t)
	_ = te.store.Set(context.Background(), session.KeyContent, "# mine")

	if code := te.run(t, "reset"); code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr: %s", code, te.stderr)
	}
	if te.stdout.String() != assets.DefaultInput() {
		t.Errorf("stdout = %q, want default input", te.stdout)
	}
	v, _, _ := te.store.Get(context.Background(), session.KeyContent)
	if v != assets.DefaultInput() {
		t.Errorf("stored content = %q, want default input", v)
	}
}

// ---------------------------------------------------------------------------
// TestConfigCmd - Effective configuration
// ---------------------------------------------------------------------------

func TestConfigCmd(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "md2pdf.yaml", "preview:\n  theme: githubLight\nserver:\n  addr: \":9000\"\n")
	t.Setenv("MD2PDF_ADDR", ":7000")
	t.Setenv("MD2PDF_WORKER_URL", "https://render.example.com")

	te := newTestEnv(t)
	if code := te.run(t, "config", "-c", path); code != ExitSuccess {
		t.Fatalf("exit code = %d, stderr: %s", code, te.stderr)
	}
	out := te.stdout.String()
	for _, want := range []string{"theme: githubLight", ":7000", "https://render.example.com"} {
		if !strings.Contains(out, want) {
			t.Errorf("config output should contain %q:\n%s", want, out)
		}
	}

	if code := te.run(t, "config", "-c", filepath.Join(dir, "missing.yaml")); code != ExitUsage {
		t.Errorf("missing config exit code = %d, want %d", code, ExitUsage)
	}
}
