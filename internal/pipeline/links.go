package pipeline

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/alnah/md2pdf-web/internal/htmlutil"
)

// heading is a resolved scroll target.
type heading struct {
	id   string
	text string // normalized
}

// enhanceLinks points in-document anchors at their heading and opens
// external links in a new browsing context.
func enhanceLinks(root *html.Node) {
	doc := goquery.NewDocumentFromNode(root)
	headings := collectHeadings(doc, true)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		switch {
		case strings.HasPrefix(href, "#"):
			if id, ok := matchHeading(headings, href); ok {
				a.SetAttr("href", "#"+id)
				a.SetAttr("data-scroll-target", id)
			}
		case strings.HasPrefix(href, "http"):
			a.SetAttr("target", "_blank")
			a.SetAttr("rel", "noopener noreferrer")
		}
	})
}

// collectHeadings lists h1-h6 in document order. With assignIDs set, headings
// the sanitizer left without an id get a positional one.
func collectHeadings(doc *goquery.Document, assignIDs bool) []heading {
	var out []heading
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(i int, h *goquery.Selection) {
		id, ok := h.Attr("id")
		if !ok || id == "" {
			if !assignIDs {
				return
			}
			id = "section-" + strconv.Itoa(i+1)
			h.SetAttr("id", id)
		}
		out = append(out, heading{id: id, text: normalizeHeadingText(h.Text())})
	})
	return out
}

// matchHeading returns the id of the first heading whose normalized text
// equals or starts with the normalized fragment of href.
func matchHeading(headings []heading, href string) (string, bool) {
	needle := normalizeFragment(href)
	if needle == "" {
		return "", false
	}
	for _, h := range headings {
		if h.text == needle || strings.HasPrefix(h.text, needle) {
			return h.id, true
		}
	}
	return "", false
}

// normalizeFragment lowercases the fragment and turns dashes into spaces.
func normalizeFragment(href string) string {
	frag := strings.TrimPrefix(href, "#")
	if unescaped, err := url.PathUnescape(frag); err == nil {
		frag = unescaped
	}
	return strings.TrimSpace(strings.ReplaceAll(strings.ToLower(frag), "-", " "))
}

// normalizeHeadingText lowercases and collapses whitespace.
func normalizeHeadingText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// FindHeading resolves an in-document link against a rendered fragment and
// returns the id of the heading to scroll to. It reports false when the
// fragment cannot be parsed or no heading matches.
func FindHeading(fragmentHTML, href string) (string, bool) {
	root, err := htmlutil.ParseFragment(fragmentHTML)
	if err != nil {
		return "", false
	}
	headings := collectHeadings(goquery.NewDocumentFromNode(root), false)
	return matchHeading(headings, href)
}
