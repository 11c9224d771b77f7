package session

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alnah/md2pdf-web/internal/assets"
)

// Source tells where initial content came from.
type Source string

const (
	SourceSaved   Source = "saved"
	SourceExample Source = "example"
	SourceDefault Source = "default"
)

// State is everything a session remembers.
type State struct {
	Content    string
	HasContent bool
	ScrollSync bool
	Theme      assets.Theme
	HasTheme   bool
}

// BestEffort reads and writes session state, treating storage failures as
// absent values. A broken store never stops the editor from working; the
// failure is only logged.
type BestEffort struct {
	store  Store
	logger *slog.Logger
}

// NewBestEffort wraps store. A nil logger discards failures.
func NewBestEffort(store Store, logger *slog.Logger) *BestEffort {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BestEffort{store: store, logger: logger}
}

func (b *BestEffort) get(ctx context.Context, key string) (string, bool) {
	v, ok, err := b.store.Get(ctx, key)
	if err != nil {
		b.logger.Debug("session read ignored", "key", key, "error", err)
		return "", false
	}
	return v, ok
}

func (b *BestEffort) set(ctx context.Context, key, value string) {
	if err := b.store.Set(ctx, key, value); err != nil {
		b.logger.Debug("session write ignored", "key", key, "error", err)
	}
}

// Load reads the whole state.
func (b *BestEffort) Load(ctx context.Context) State {
	var s State
	s.Content, s.HasContent = b.get(ctx, KeyContent)
	s.ScrollSync = b.ScrollSync(ctx)
	s.Theme, s.HasTheme = b.Theme(ctx)
	return s
}

// SaveContent remembers the editor content.
func (b *BestEffort) SaveContent(ctx context.Context, content string) {
	b.set(ctx, KeyContent, content)
}

// InitialContent returns the saved content when there is some, otherwise
// the bundled example document, otherwise the default input.
func (b *BestEffort) InitialContent(ctx context.Context) (string, Source) {
	if v, ok := b.get(ctx, KeyContent); ok && v != "" {
		return v, SourceSaved
	}
	if example, err := assets.LoadDocument(assets.ExampleDocumentName); err == nil && example != "" {
		return example, SourceExample
	}
	return assets.DefaultInput(), SourceDefault
}

// Reset replaces the saved content with the default input and returns it.
func (b *BestEffort) Reset(ctx context.Context) string {
	content := assets.DefaultInput()
	b.SaveContent(ctx, content)
	return content
}

// ScrollSync reports the saved scroll-sync preference, false when unset or
// unreadable. Values are stored as JSON booleans.
func (b *BestEffort) ScrollSync(ctx context.Context) bool {
	v, ok := b.get(ctx, KeyScrollSync)
	if !ok {
		return false
	}
	on, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && on
}

// SaveScrollSync remembers the scroll-sync preference.
func (b *BestEffort) SaveScrollSync(ctx context.Context, on bool) {
	b.set(ctx, KeyScrollSync, strconv.FormatBool(on))
}

// Theme returns the saved theme. Unknown values count as unset; the legacy
// value "github" is GitHub Dark.
func (b *BestEffort) Theme(ctx context.Context) (assets.Theme, bool) {
	v, ok := b.get(ctx, KeyTheme)
	if !ok {
		return "", false
	}
	t, err := assets.ParseTheme(v)
	if err != nil {
		return "", false
	}
	return t, true
}

// SaveTheme remembers the theme.
func (b *BestEffort) SaveTheme(ctx context.Context, t assets.Theme) {
	b.set(ctx, KeyTheme, string(t))
}

// Clear forgets every key of the namespace.
func (b *BestEffort) Clear(ctx context.Context) {
	for _, key := range []string{KeyContent, KeyScrollSync, KeyTheme} {
		if err := b.store.Delete(ctx, key); err != nil {
			b.logger.Debug("session delete ignored", "key", key, "error", err)
		}
	}
}
