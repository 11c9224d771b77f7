package pipeline

import (
	"context"
	"strings"
)

// Stylesheets the render service fetches while printing.
const (
	GitHubMarkdownCSSURL = "https://cdn.jsdelivr.net/npm/github-markdown-css@5.8.1/github-markdown.min.css"
	KaTeXCSSURL          = "https://cdn.jsdelivr.net/npm/katex@0.16.9/dist/katex.min.css"
)

// documentShell wraps a fragment in the print document. Theme styles are
// injected before </head> by CSSInjection.
const documentShell = `<!doctype html>` +
	`<html lang="en">` +
	`<head>` +
	`<meta charset="utf-8" />` +
	`<title>Markdown to PDF</title>` +
	`<link rel="stylesheet" href="` + GitHubMarkdownCSSURL + `" />` +
	`<link rel="stylesheet" href="` + KaTeXCSSURL + `" />` +
	`</head>` +
	`<body>` +
	`<article class="markdown-body">`

const documentTail = `</article></body></html>`

// BuildDocument embeds fragmentHTML in a self-contained print document with
// css as its only inline stylesheet.
func BuildDocument(ctx context.Context, fragmentHTML, css string) string {
	doc := documentShell + fragmentHTML + documentTail
	return (&CSSInjection{}).InjectCSS(ctx, doc, css)
}

// CSSInjector defines the contract for CSS injection into HTML.
type CSSInjector interface {
	InjectCSS(ctx context.Context, htmlContent, cssContent string) string
}

// CSSInjection injects CSS as a <style> block into HTML content.
type CSSInjection struct{}

// InjectCSS inserts a <style> block into HTML content.
// Tries </head> first, then <body>, then prepends to the HTML.
// CSS content is escaped so it cannot close the style element.
func (s *CSSInjection) InjectCSS(ctx context.Context, htmlContent, cssContent string) string {
	if cssContent == "" {
		return htmlContent
	}

	if ctx.Err() != nil {
		return htmlContent
	}

	styleBlock := "<style>" + sanitizeCSS(cssContent) + "</style>"
	lowerHTML := strings.ToLower(htmlContent)

	if idx := strings.Index(lowerHTML, "</head>"); idx != -1 {
		return htmlContent[:idx] + styleBlock + htmlContent[idx:]
	}

	if idx := strings.Index(lowerHTML, "<body"); idx != -1 {
		closeIdx := strings.Index(htmlContent[idx:], ">")
		if closeIdx != -1 {
			insertPos := idx + closeIdx + 1
			return htmlContent[:insertPos] + styleBlock + htmlContent[insertPos:]
		}
	}

	return styleBlock + htmlContent
}

// sanitizeCSS escapes </ so the stylesheet cannot close the <style> element.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}
