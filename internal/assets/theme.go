package assets

import (
	"fmt"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	chromastyles "github.com/alecthomas/chroma/v2/styles"
)

// Theme identifies one of the fixed preview and print themes.
type Theme string

// Available themes. Values match the persisted preference strings.
const (
	ThemeLaetus      Theme = "laetus"
	ThemeGitHubDark  Theme = "githubDark"
	ThemeGitHubLight Theme = "githubLight"
)

// DefaultTheme is used when no preference is stored.
const DefaultTheme = ThemeLaetus

// legacyGitHubTheme is the value stored before the light variant existed.
const legacyGitHubTheme = "github"

// Themes lists the theme set in display order.
func Themes() []Theme {
	return []Theme{ThemeLaetus, ThemeGitHubDark, ThemeGitHubLight}
}

// ParseTheme maps a stored or user-supplied value to a Theme.
// The legacy value "github" means GitHub Dark.
func ParseTheme(s string) (Theme, error) {
	v := strings.TrimSpace(s)
	if v == legacyGitHubTheme {
		return ThemeGitHubDark, nil
	}
	for _, t := range Themes() {
		if strings.EqualFold(v, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q (available: laetus, githubDark, githubLight)", ErrUnknownTheme, s)
}

// StyleName returns the stylesheet holding the theme's overrides.
func (t Theme) StyleName() string {
	switch t {
	case ThemeGitHubDark:
		return "github-dark"
	case ThemeGitHubLight:
		return "github-light"
	default:
		return "laetus"
	}
}

// highlightStyle returns the chroma style paired with the theme.
func (t Theme) highlightStyle() string {
	switch t {
	case ThemeGitHubDark:
		return "native"
	case ThemeGitHubLight:
		return "github"
	default:
		return "monokai"
	}
}

// HighlightCSS returns chroma class rules for the theme's code highlighting.
func HighlightCSS(t Theme) (string, error) {
	var b strings.Builder
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&b, chromastyles.Get(t.highlightStyle())); err != nil {
		return "", fmt.Errorf("%w: highlight css: %v", ErrAssetRead, err)
	}
	return b.String(), nil
}
