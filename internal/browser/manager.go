// Package browser shares one headless Chrome between concurrent print jobs.
//
// A Manager launches the browser on first use, hands out isolated incognito
// sessions bounded by a semaphore, and relaunches the browser after a number
// of pages to keep its memory in check.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"

	"github.com/alnah/md2pdf-web/internal/process"
)

// DefaultTimeout bounds one print when the caller's context has no deadline.
const DefaultTimeout = 60 * time.Second

// Options configures a Manager.
type Options struct {
	Workers      int           // concurrent sessions, 0 = ResolvePoolSize
	RecycleAfter int           // pages per browser before relaunch, 0 = never
	Timeout      time.Duration // per print, 0 = DefaultTimeout
	Logger       *slog.Logger
}

// Manager owns the browser process. It is safe for concurrent use.
type Manager struct {
	opts   Options
	sem    chan struct{}
	engine engine

	mu      sync.Mutex
	browser *rod.Browser
	stop    func() // tears down browser and its process tree
	pages   int    // sessions opened on the current browser
	active  int
	closed  bool
}

// engine starts browsers and opens isolated contexts in them.
type engine interface {
	launch() (*rod.Browser, func(), error)
	incognito(b *rod.Browser) (*rod.Browser, error)
}

// NewManager creates a Manager. The browser is launched on the first Acquire.
func NewManager(opts Options) *Manager {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		opts:   opts,
		sem:    make(chan struct{}, ResolvePoolSize(opts.Workers)),
		engine: chrome{logger: opts.Logger},
	}
}

// Size returns the number of sessions that may be open at once.
func (m *Manager) Size() int {
	return cap(m.sem)
}

// Acquire blocks until a session slot is free, then opens an incognito
// session. The caller must Close the session. A browser that can no longer
// open contexts is dropped and the session is retried once on a new one.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	for attempt := 1; ; attempt++ {
		b, err := m.checkout()
		if err != nil {
			<-m.sem
			return nil, err
		}

		incognito, err := m.engine.incognito(b)
		if err == nil {
			return &Session{
				incognito: incognito,
				timeout:   m.opts.Timeout,
				release:   func(broken bool) { m.checkin(b, broken) },
			}, nil
		}

		m.mu.Lock()
		m.active--
		m.discard(b, err)
		m.mu.Unlock()

		if attempt == 2 {
			<-m.sem
			return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
		}
	}
}

// PrintHTML renders a complete HTML document to PDF in a fresh session.
func (m *Manager) PrintHTML(ctx context.Context, documentHTML string) ([]byte, error) {
	s, err := m.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	return s.PrintHTML(ctx, documentHTML)
}

// PrintFile renders a local HTML file to PDF in a fresh session. Relative
// references in the file resolve against its directory.
func (m *Manager) PrintFile(ctx context.Context, path string) ([]byte, error) {
	s, err := m.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	return s.PrintFile(ctx, path)
}

// checkout returns the running browser, launching or recycling it first when
// needed, and counts one more active session.
func (m *Manager) checkout() (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	if m.browser != nil && m.opts.RecycleAfter > 0 && m.pages >= m.opts.RecycleAfter && m.active == 0 {
		m.opts.Logger.Info("recycling browser", "pages", m.pages)
		m.shutdown()
	}

	if m.browser == nil {
		b, stop, err := m.engine.launch()
		if err != nil {
			return nil, err
		}
		m.browser, m.stop, m.pages = b, stop, 0
	}

	m.pages++
	m.active++
	return m.browser, nil
}

// checkin frees a session slot. A broken session means b failed to create
// a page, so b is dropped.
func (m *Manager) checkin(b *rod.Browser, broken bool) {
	m.mu.Lock()
	m.active--
	if broken {
		m.discard(b, ErrPageCreate)
	}
	m.mu.Unlock()
	<-m.sem
}

// discard shuts b down if it is still the current browser, so the next
// checkout relaunches. Must be called with mu held.
func (m *Manager) discard(b *rod.Browser, cause error) {
	if m.browser != b || m.closed {
		return
	}
	m.opts.Logger.Warn("dropping unresponsive browser", "pages", m.pages, "error", cause)
	m.shutdown()
}

// shutdown closes the current browser. Must be called with mu held.
func (m *Manager) shutdown() {
	if m.stop != nil {
		m.stop()
	}
	m.browser, m.stop = nil, nil
}

// chrome launches a local headless Chrome through the rod launcher.
type chrome struct {
	logger *slog.Logger
}

func (c chrome) launch() (*rod.Browser, func(), error) {
	l := launcher.New().Headless(true)

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		c.kill(l)
		return nil, nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	c.logger.Debug("browser launched", "pid", l.PID())
	stop := func() {
		if err := b.Close(); err != nil {
			c.logger.Debug("closing browser", "error", err)
		}
		c.kill(l)
	}
	return b, stop, nil
}

func (chrome) incognito(b *rod.Browser) (*rod.Browser, error) {
	return b.Incognito()
}

func (c chrome) kill(l *launcher.Launcher) {
	pid := l.PID()
	l.Kill()
	if pid > 0 {
		if err := process.KillProcessGroup(pid); err != nil {
			c.logger.Debug("killing browser process group", "pid", pid, "error", err)
		}
	}
	l.Cleanup()
}

// Close shuts the browser down. Sessions still open fail on their next call.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.shutdown()
	return nil
}
