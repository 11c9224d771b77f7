package pipeline

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// Math placeholders use Unicode Private Use Area characters. They pass
// through goldmark and the sanitizer unchanged, so backslash escapes and
// emphasis rules never touch the TeX source. The math pass swaps them for
// typeset output (or the literal source) after sanitization.
const (
	MathStartPlaceholder = "\uE002" // U+E002: Private Use Area
	MathEndPlaceholder   = "\uE003" // U+E003: Private Use Area
)

var crlfOrCR = regexp.MustCompile(`\r\n?`)

// fenceOpen matches a fenced code block opening line (up to 3 spaces indent).
var fenceOpen = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})")

// MathSpan is one delimited math expression found in the source.
type MathSpan struct {
	Source  string // delimiters included, restored on failure
	Expr    string
	Display bool
}

// mathDelimiter is one opening/closing pair, listed in matching priority.
type mathDelimiter struct {
	open, close string
	display     bool
}

var mathDelimiters = []mathDelimiter{
	{"$$", "$$", true},
	{`\[`, `\]`, true},
	{`\(`, `\)`, false},
	{"$", "$", false},
}

// Preprocessed is Markdown ready for conversion plus the math spans that were
// lifted out of it.
type Preprocessed struct {
	Markdown string
	Math     []MathSpan
}

// MarkdownPreprocessor defines the contract for markdown preprocessing.
type MarkdownPreprocessor interface {
	PreprocessMarkdown(ctx context.Context, content string) Preprocessed
}

// MathPreprocessor normalizes line endings and replaces math spans outside
// code with placeholders.
type MathPreprocessor struct{}

// PreprocessMarkdown applies all transformations to prepare Markdown for conversion.
func (p *MathPreprocessor) PreprocessMarkdown(ctx context.Context, content string) Preprocessed {
	if ctx.Err() != nil {
		return Preprocessed{Markdown: content}
	}

	content = normalizeLineEndings(content)
	md, spans := protectMath(content)
	return Preprocessed{Markdown: md, Math: spans}
}

// normalizeLineEndings converts \r\n and \r to \n.
func normalizeLineEndings(content string) string {
	return crlfOrCR.ReplaceAllString(content, "\n")
}

// mathPlaceholder returns the placeholder token for span index i.
func mathPlaceholder(i int) string {
	return MathStartPlaceholder + strconv.Itoa(i) + MathEndPlaceholder
}

// protectMath walks the source line by line, leaving fenced code blocks
// untouched, and replaces math spans in prose with placeholders.
func protectMath(content string) (string, []MathSpan) {
	var (
		out   strings.Builder
		prose strings.Builder
		spans []MathSpan
		fence string
	)

	flush := func() {
		if prose.Len() > 0 {
			out.WriteString(replaceMath(prose.String(), &spans))
			prose.Reset()
		}
	}

	for _, line := range strings.SplitAfter(content, "\n") {
		trimmed := strings.TrimRight(line, "\n")
		if fence != "" {
			out.WriteString(line)
			if isFenceClose(trimmed, fence) {
				fence = ""
			}
			continue
		}
		if m := fenceOpen.FindStringSubmatch(trimmed); m != nil {
			flush()
			fence = m[1]
			out.WriteString(line)
			continue
		}
		prose.WriteString(line)
	}
	flush()

	return out.String(), spans
}

// isFenceClose reports whether line closes a fence opened with open.
func isFenceClose(line, open string) bool {
	t := strings.TrimLeft(line, " ")
	if len(line)-len(t) > 3 {
		return false
	}
	t = strings.TrimRight(t, " \t")
	if len(t) < len(open) || t[0] != open[0] {
		return false
	}
	return strings.Trim(t, string(open[0])) == ""
}

// replaceMath substitutes placeholders for math spans in a prose segment.
// Inline code spans are copied verbatim. A span may not cross a blank line,
// and an opening delimiter without a partner stays literal.
func replaceMath(s string, spans *[]MathSpan) string {
	var b strings.Builder
	i := 0
	for i < len(s) {
		switch {
		case s[i] == '`':
			end := codeSpanEnd(s, i)
			b.WriteString(s[i:end])
			i = end
			continue
		case s[i] == '\\' && i+1 < len(s) && s[i+1] == '$':
			b.WriteString(`\$`)
			i += 2
			continue
		}

		matched := false
		for _, d := range mathDelimiters {
			if !strings.HasPrefix(s[i:], d.open) {
				continue
			}
			start := i + len(d.open)
			end := findClose(s, start, d.close)
			if end < 0 || strings.TrimSpace(s[start:end]) == "" {
				// Unmatched: emit the delimiter literally and move past it.
				b.WriteString(d.open)
				i = start
				matched = true
				break
			}
			*spans = append(*spans, MathSpan{
				Source:  s[i : end+len(d.close)],
				Expr:    s[start:end],
				Display: d.display,
			})
			b.WriteString(mathPlaceholder(len(*spans) - 1))
			i = end + len(d.close)
			matched = true
			break
		}
		if !matched {
			b.WriteByte(s[i])
			i++
		}
	}
	return b.String()
}

// findClose returns the index of the closing delimiter at or after start,
// or -1 when a blank line or the end of input comes first.
func findClose(s string, start int, closing string) int {
	for j := start; j < len(s); j++ {
		if s[j] == '\n' && isBlankLineAt(s, j+1) {
			return -1
		}
		if closing[0] == '$' && s[j] == '\\' {
			j++
			continue
		}
		if strings.HasPrefix(s[j:], closing) {
			return j
		}
	}
	return -1
}

// isBlankLineAt reports whether the line starting at i holds only whitespace.
func isBlankLineAt(s string, i int) bool {
	for ; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t':
			continue
		case '\n':
			return true
		default:
			return false
		}
	}
	return true
}

// codeSpanEnd returns the index just past the inline code span opening at i.
// A backtick run without a matching run is literal text.
func codeSpanEnd(s string, i int) int {
	n := 0
	for i+n < len(s) && s[i+n] == '`' {
		n++
	}
	run := s[i : i+n]
	for j := i + n; j < len(s); {
		k := strings.Index(s[j:], run)
		if k < 0 {
			break
		}
		k += j
		m := 0
		for k+m < len(s) && s[k+m] == '`' {
			m++
		}
		if m == n {
			return k + n
		}
		j = k + m
	}
	return i + n
}
