package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yuin/goldmark/ast"
)

// ---------------------------------------------------------------------------
// TestGoldmarkConverter_ToHTML - Extensions and fragment output
// ---------------------------------------------------------------------------

func TestGoldmarkConverter_ToHTML(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		input        string
		wantContains []string
		wantNot      []string
	}{
		{
			name:         "fragment without document shell",
			input:        "# Hello World",
			wantContains: []string{`<h1 id="hello-world">Hello World</h1>`},
			wantNot:      []string{"<!DOCTYPE", "<body>"},
		},
		{
			name:         "hard breaks",
			input:        "Line one\nLine two",
			wantContains: []string{"Line one<br />", "Line two"},
		},
		{
			name:         "GFM table",
			input:        "| A | B |\n|---|---|\n| 1 | 2 |",
			wantContains: []string{"<table>", "<th>A</th>", "<td>2</td>"},
		},
		{
			name:         "footnote",
			input:        "Text[^1]\n\n[^1]: Note",
			wantContains: []string{`class="footnotes"`, "Note"},
		},
		{
			name:         "highlighting uses classes",
			input:        "```go\nfunc main() {}\n```",
			wantContains: []string{`class="chroma"`},
			wantNot:      []string{"style="},
		},
		{
			name:         "raw HTML is dropped",
			input:        "<script>alert(1)</script>\n\nok",
			wantContains: []string{"<p>ok</p>"},
			wantNot:      []string{"<script>"},
		},
		{
			name:         "non-ASCII heading keeps its letters",
			input:        "## Café au lait",
			wantContains: []string{`<h2 id="café-au-lait">`},
		},
		{
			name:         "repeated headings get suffixes",
			input:        "# Setup\n\n# Setup\n\n# Setup",
			wantContains: []string{`id="setup"`, `id="setup-1"`, `id="setup-2"`},
		},
	}

	c := NewGoldmarkConverter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := c.ToHTML(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("ToHTML() error = %v", err)
			}
			for _, want := range tt.wantContains {
				if !strings.Contains(got, want) {
					t.Errorf("ToHTML() missing %q in:\n%s", want, got)
				}
			}
			for _, not := range tt.wantNot {
				if strings.Contains(got, not) {
					t.Errorf("ToHTML() should not contain %q:\n%s", not, got)
				}
			}
		})
	}
}

func TestGoldmarkConverter_ToHTML_IDsPerCall(t *testing.T) {
	t.Parallel()

	c := NewGoldmarkConverter()
	for i := 0; i < 2; i++ {
		got, err := c.ToHTML(context.Background(), "# Intro")
		if err != nil {
			t.Fatalf("ToHTML() error = %v", err)
		}
		if !strings.Contains(got, `id="intro"`) {
			t.Errorf("call %d: ToHTML() = %s, want id=\"intro\"", i+1, got)
		}
	}
}

func TestGoldmarkConverter_ToHTML_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewGoldmarkConverter().ToHTML(ctx, "# x"); !errors.Is(err, context.Canceled) {
		t.Errorf("ToHTML() error = %v, want context.Canceled", err)
	}
}

// ---------------------------------------------------------------------------
// TestHeadingIDs - Slug rules
// ---------------------------------------------------------------------------

func TestHeadingIDs_Generate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		kind  ast.NodeKind
		want  string
	}{
		{"ascii", "Getting Started", ast.KindHeading, "getting-started"},
		{"punctuation dropped", "What's new? (v2.0)", ast.KindHeading, "whats-new-v20"},
		{"underscores and hyphens kept", "snake_case - kebab", ast.KindHeading, "snake_case---kebab"},
		{"other scripts", "Überblick 日本語", ast.KindHeading, "überblick-日本語"},
		{"math placeholder skipped", "Area " + MathStartPlaceholder + "0" + MathEndPlaceholder + " formula", ast.KindHeading, "area--formula"},
		{"empty heading", "?!", ast.KindHeading, "heading"},
		{"empty other node", "", ast.KindParagraph, "id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := string(newHeadingIDs().Generate([]byte(tt.input), tt.kind)); got != tt.want {
				t.Errorf("Generate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHeadingIDs_PutReservesSlug(t *testing.T) {
	t.Parallel()

	ids := newHeadingIDs()
	ids.Put([]byte("intro"))

	if got := string(ids.Generate([]byte("Intro"), ast.KindHeading)); got != "intro-1" {
		t.Errorf("Generate() = %q, want intro-1", got)
	}
}
