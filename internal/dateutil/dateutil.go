// Package dateutil turns token date formats (YYYY-MM-DD, "MMMM D, YYYY")
// into Go layouts. Exported artifact names are dated through it.
package dateutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDateFormat indicates an invalid date format string.
var ErrInvalidDateFormat = errors.New("invalid date format")

// MaxDateFormatLength bounds a user-supplied format.
const MaxDateFormatLength = 50

// DefaultDateFormat names exported artifacts: markdown-2024-03-15.pdf.
const DefaultDateFormat = "YYYY-MM-DD"

// tokens is ordered longest first so "MMMM" wins over "MM".
var tokens = [...]struct{ token, layout string }{
	{"dddd", "Monday"},
	{"YYYY", "2006"},
	{"MMMM", "January"},
	{"ddd", "Mon"},
	{"MMM", "Jan"},
	{"YY", "06"},
	{"MM", "01"},
	{"DD", "02"},
	{"M", "1"},
	{"D", "2"},
}

// presets are named shortcuts accepted wherever a format is.
var presets = map[string]string{
	"iso":      "YYYY-MM-DD",
	"european": "DD/MM/YYYY",
	"us":       "MM/DD/YYYY",
	"long":     "MMMM D, YYYY",
}

// segment is either literal text or a Go layout fragment.
type segment struct {
	text    string
	literal bool
}

// Layout is a compiled date format. Literal text is kept apart from layout
// fragments so words like "Monday" in brackets are never reinterpreted.
type Layout struct {
	segments []segment
}

// Compile resolves a preset name (case-insensitive) or parses a token
// format. Text in brackets is kept literally: "[week of] D MMM". Other
// characters outside tokens pass through as literals.
func Compile(format string) (Layout, error) {
	if p, ok := presets[strings.ToLower(format)]; ok {
		format = p
	}
	switch {
	case format == "":
		return Layout{}, fmt.Errorf("%w: format cannot be empty", ErrInvalidDateFormat)
	case len(format) > MaxDateFormatLength:
		return Layout{}, fmt.Errorf("%w: format exceeds %d characters", ErrInvalidDateFormat, MaxDateFormatLength)
	}

	var l Layout
	for rest := format; rest != ""; {
		if lit, ok := strings.CutPrefix(rest, "["); ok {
			inner, after, found := strings.Cut(lit, "]")
			if !found {
				return Layout{}, fmt.Errorf("%w: unclosed bracket at position %d", ErrInvalidDateFormat, len(format)-len(rest))
			}
			l.add(inner, true)
			rest = after
			continue
		}
		if layout, n := matchToken(rest); n > 0 {
			l.add(layout, false)
			rest = rest[n:]
			continue
		}
		l.add(rest[:1], true)
		rest = rest[1:]
	}
	return l, nil
}

// add appends text. Adjacent literals merge; layout fragments never do, since
// "1" followed by "5" would read as the hour.
func (l *Layout) add(text string, literal bool) {
	if text == "" {
		return
	}
	if n := len(l.segments); literal && n > 0 && l.segments[n-1].literal {
		l.segments[n-1].text += text
		return
	}
	l.segments = append(l.segments, segment{text: text, literal: literal})
}

// matchToken returns the Go layout of the token prefixing s and its length.
func matchToken(s string) (string, int) {
	for _, t := range tokens {
		if strings.HasPrefix(s, t.token) {
			return t.layout, len(t.token)
		}
	}
	return "", 0
}

// Format renders t.
func (l Layout) Format(t time.Time) string {
	var b strings.Builder
	for _, seg := range l.segments {
		if seg.literal {
			b.WriteString(seg.text)
		} else {
			b.WriteString(t.Format(seg.text))
		}
	}
	return b.String()
}

// Format compiles format and renders t with it.
func Format(format string, t time.Time) (string, error) {
	l, err := Compile(format)
	if err != nil {
		return "", err
	}
	return l.Format(t), nil
}

// Presets returns the preset names in a stable order, for help text.
func Presets() []string {
	return []string{"iso", "european", "us", "long"}
}
