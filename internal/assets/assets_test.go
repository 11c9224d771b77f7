package assets

import (
	"errors"
	"strings"
	"testing"
)

func TestParseTheme(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Theme
		wantErr error
	}{
		{"laetus", "laetus", ThemeLaetus, nil},
		{"github dark", "githubDark", ThemeGitHubDark, nil},
		{"github light", "githubLight", ThemeGitHubLight, nil},
		{"case insensitive", "GITHUBLIGHT", ThemeGitHubLight, nil},
		{"surrounding whitespace", "  laetus\n", ThemeLaetus, nil},
		{"legacy github means dark", "github", ThemeGitHubDark, nil},
		{"unknown", "solarized", "", ErrUnknownTheme},
		{"empty", "", "", ErrUnknownTheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseTheme(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseTheme(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTheme(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseTheme(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStylesheet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		theme     Theme
		wantColor string
	}{
		{ThemeLaetus, "#ff5252"},
		{ThemeGitHubDark, "#0d1117"},
		{ThemeGitHubLight, "#0969da"},
	}

	for _, tt := range tests {
		t.Run(string(tt.theme), func(t *testing.T) {
			t.Parallel()

			css, err := Stylesheet(nil, tt.theme)
			if err != nil {
				t.Fatalf("Stylesheet(%q) unexpected error: %v", tt.theme, err)
			}

			base := strings.Index(css, ".markdown-body { box-sizing: border-box; max-width: 800px; margin: 0 auto; }")
			theme := strings.Index(css, tt.wantColor)
			highlight := strings.Index(css, ".chroma")
			if base < 0 || theme < 0 || highlight < 0 {
				t.Fatalf("Stylesheet(%q) missing a section: base=%d theme=%d highlight=%d", tt.theme, base, theme, highlight)
			}
			if !(base < theme && theme < highlight) {
				t.Errorf("Stylesheet(%q) sections out of order: base=%d theme=%d highlight=%d", tt.theme, base, theme, highlight)
			}
		})
	}
}

func TestDefaultInput(t *testing.T) {
	t.Parallel()

	got := DefaultInput()
	for _, want := range []string{"# Start typing your Markdown here...", "## Features", "| Header 1 | Header 2 |", "> Blockquotes work too!"} {
		if !strings.Contains(got, want) {
			t.Errorf("DefaultInput() missing %q", want)
		}
	}
}

func TestLoadDocument_Example(t *testing.T) {
	t.Parallel()

	got, err := LoadDocument(ExampleDocumentName)
	if err != nil {
		t.Fatalf("LoadDocument(example) unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, "# ") {
		t.Errorf("example document should start with a heading, got %q", got[:min(len(got), 20)])
	}
}
