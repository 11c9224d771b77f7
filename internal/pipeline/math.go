package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	katex "github.com/FurqanSoftware/goldmark-katex"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/alnah/md2pdf-web/internal/htmlutil"
)

// ErrMathTypeset indicates a math expression could not be typeset.
var ErrMathTypeset = errors.New("math typesetting failed")

// MathTypesetter turns a TeX expression into HTML.
type MathTypesetter interface {
	Typeset(expr string, display bool) (string, error)
}

// KaTeXTypesetter typesets with the KaTeX engine bundled in goldmark-katex.
// Output is cached per expression since every call boots a JS runtime.
type KaTeXTypesetter struct {
	mu    sync.Mutex
	cache map[mathKey]string
}

type mathKey struct {
	expr    string
	display bool
}

// maxMathCache bounds the typeset cache; it is cleared when full.
const maxMathCache = 512

// NewKaTeXTypesetter creates a KaTeX typesetter with an empty cache.
func NewKaTeXTypesetter() *KaTeXTypesetter {
	return &KaTeXTypesetter{cache: make(map[mathKey]string)}
}

// Typeset renders expr with KaTeX in inline or display mode.
func (k *KaTeXTypesetter) Typeset(expr string, display bool) (string, error) {
	key := mathKey{expr: expr, display: display}

	k.mu.Lock()
	if out, ok := k.cache[key]; ok {
		k.mu.Unlock()
		return out, nil
	}
	k.mu.Unlock()

	var buf bytes.Buffer
	if err := katex.Render(&buf, []byte(expr), display); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMathTypeset, err)
	}
	out := buf.String()

	k.mu.Lock()
	if len(k.cache) >= maxMathCache {
		clear(k.cache)
	}
	k.cache[key] = out
	k.mu.Unlock()

	return out, nil
}

// skipMathElements never receive typeset output.
var skipMathElements = map[atom.Atom]bool{
	atom.Pre:      true,
	atom.Code:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Textarea: true,
}

// typesetMath replaces math placeholders under root. Placeholders in text
// outside skipped elements are typeset; every other placeholder (skipped
// elements, attribute values, typesetter failures) gets its literal source back.
func typesetMath(root *html.Node, spans []MathSpan, ts MathTypesetter) {
	if len(spans) == 0 {
		return
	}

	var walk func(n *html.Node, skip bool)
	walk = func(n *html.Node, skip bool) {
		if n.Type == html.ElementNode {
			for i, a := range n.Attr {
				if strings.Contains(a.Val, MathStartPlaceholder) {
					n.Attr[i].Val = restoreMath(a.Val, spans)
				}
			}
			if skipMathElements[n.DataAtom] || htmlutil.HasClass(n, "math") {
				skip = true
			}
		}
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			if c.Type == html.TextNode && strings.Contains(c.Data, MathStartPlaceholder) {
				if skip {
					c.Data = restoreMath(c.Data, spans)
				} else {
					expandMath(c, spans, ts)
				}
			} else {
				walk(c, skip)
			}
			c = next
		}
	}
	walk(root, false)
}

// expandMath splits text node t around its placeholders, inserting typeset
// nodes before t and removing t.
func expandMath(t *html.Node, spans []MathSpan, ts MathTypesetter) {
	parent := t.Parent
	forEachPlaceholder(t.Data, spans,
		func(text string) {
			parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text}, t)
		},
		func(span MathSpan) {
			parent.InsertBefore(mathNode(span, ts), t)
		},
	)
	parent.RemoveChild(t)
}

// mathNode typesets span, falling back to its literal source text.
func mathNode(span MathSpan, ts MathTypesetter) *html.Node {
	out, err := safeTypeset(ts, span.Expr, span.Display)
	if err != nil {
		return &html.Node{Type: html.TextNode, Data: span.Source}
	}

	class := "math math-inline"
	if span.Display {
		class = "math math-display"
	}
	wrapper := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Span,
		Data:     "span",
		Attr:     []html.Attribute{{Key: "class", Val: class}},
	}
	wrapper.AppendChild(&html.Node{Type: html.RawNode, Data: out})
	return wrapper
}

// safeTypeset converts a typesetter panic into an error.
func safeTypeset(ts MathTypesetter, expr string, display bool) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrMathTypeset, r)
		}
	}()
	return ts.Typeset(expr, display)
}

// restoreMath replaces every placeholder in s with its literal source.
func restoreMath(s string, spans []MathSpan) string {
	var b strings.Builder
	forEachPlaceholder(s, spans,
		func(text string) { b.WriteString(text) },
		func(span MathSpan) { b.WriteString(span.Source) },
	)
	return b.String()
}

// forEachPlaceholder scans s, calling onText for literal runs and onMath for
// each placeholder that names a known span. Malformed tokens are literal text.
func forEachPlaceholder(s string, spans []MathSpan, onText func(string), onMath func(MathSpan)) {
	for s != "" {
		start := strings.Index(s, MathStartPlaceholder)
		if start < 0 {
			onText(s)
			return
		}
		rest := s[start+len(MathStartPlaceholder):]
		end := strings.Index(rest, MathEndPlaceholder)
		idx, err := strconv.Atoi(rest[:max(end, 0)])
		if end < 0 || err != nil || idx < 0 || idx >= len(spans) {
			onText(s[:start+len(MathStartPlaceholder)])
			s = rest
			continue
		}
		if start > 0 {
			onText(s[:start])
		}
		onMath(spans[idx])
		s = rest[end+len(MathEndPlaceholder):]
	}
}
