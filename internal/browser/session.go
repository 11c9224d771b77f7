package browser

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// requestIdle is how long the network must stay quiet before printing.
const requestIdle = 500 * time.Millisecond

// Session is one isolated browser context holding at most one page.
type Session struct {
	incognito *rod.Browser
	page      *rod.Page
	timeout   time.Duration
	release   func(broken bool)
	broken    bool // page creation failed
	once      sync.Once
}

// PrintHTML loads documentHTML as the page content, waits for its
// stylesheets and images, and prints it.
func (s *Session) PrintHTML(ctx context.Context, documentHTML string) ([]byte, error) {
	page, err := s.open(ctx)
	if err != nil {
		return nil, err
	}

	wait := page.WaitRequestIdle(requestIdle, nil, nil, nil)
	if err := page.SetDocumentContent(documentHTML); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	wait()

	return s.print(ctx, page)
}

// PrintFile navigates to a local HTML file and prints it.
func (s *Session) PrintFile(ctx context.Context, path string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	page, err := s.open(ctx)
	if err != nil {
		return nil, err
	}

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	wait := page.WaitRequestIdle(requestIdle, nil, nil, nil)
	if err := page.Navigate(u.String()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	wait()

	return s.print(ctx, page)
}

// open creates the session page bound to ctx, or to the session timeout
// when ctx has no deadline.
func (s *Session) open(ctx context.Context) (*rod.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.page == nil {
		page, err := s.incognito.Page(proto.TargetCreateTarget{})
		if err != nil {
			s.broken = true
			return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
		}
		s.page = page
	}

	page := s.page.Context(ctx)
	if _, ok := ctx.Deadline(); !ok {
		page = page.Timeout(s.timeout)
	}
	return page, nil
}

func (s *Session) print(ctx context.Context, page *rod.Page) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return data, nil
}

// Close closes the page and the incognito context and frees the session
// slot. Only the first call has an effect. A session that could not create
// its page takes the browser down with it.
func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		if s.page != nil {
			err = s.page.Close()
		}
		if s.incognito != nil {
			if cerr := s.incognito.Close(); err == nil {
				err = cerr
			}
		}
		if s.release != nil {
			s.release(s.broken)
		}
	})
	return err
}
