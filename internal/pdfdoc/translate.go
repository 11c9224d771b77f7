package pdfdoc

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"  // register GIF decoder for DecodeConfig
	_ "image/jpeg" // register JPEG decoder for DecodeConfig
	"image/png"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/alnah/md2pdf-web/internal/htmlutil"
	"github.com/alnah/md2pdf-web/internal/inliner"
)

// imageFormats maps supported MIME types to fpdf image types.
var imageFormats = map[string]string{
	"image/png":  "PNG",
	"image/jpeg": "JPG",
	"image/gif":  "GIF",
}

// TranslateOption configures Translate.
type TranslateOption func(*Info)

// WithCreator sets the creator metadata.
func WithCreator(creator string) TranslateOption {
	return func(i *Info) { i.Creator = creator }
}

// WithCreationDate sets the creation date metadata.
func WithCreationDate(t time.Time) TranslateOption {
	return func(i *Info) { i.Created = t }
}

// Translate converts an HTML fragment into a page model.
// Images must already be inlined as data URIs; anything else is replaced by
// a text placeholder and reported in Document.Warnings.
func Translate(fragmentHTML string, opts ...TranslateOption) (*Document, error) {
	root, err := htmlutil.ParseFragment(fragmentHTML)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	t := &translator{}
	content := t.blocks(root)

	info := Info{
		Title:    titleOf(root),
		Producer: Producer,
		Created:  time.Now(),
	}
	for _, opt := range opts {
		opt(&info)
	}

	return &Document{
		Info:        info,
		PageMargins: Margins{PageMargin, PageMargin, PageMargin, PageMargin},
		Content:     content,
		Warnings:    t.warnings,
	}, nil
}

// titleOf returns the text of the first h1, or DefaultTitle.
func titleOf(root *html.Node) string {
	title := ""
	htmlutil.Walk(root, func(n *html.Node) bool {
		if title != "" {
			return false
		}
		if n.Type == html.ElementNode && n.Data == "h1" {
			title = strings.TrimSpace(collapseSpace(plainText(n)))
			return false
		}
		return true
	})
	if title == "" {
		return DefaultTitle
	}
	return title
}

// plainText is the text of n with typeset math reduced to its TeX source.
func plainText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch {
		case c.Type == html.TextNode:
			b.WriteString(c.Data)
			return
		case c.Type == html.ElementNode && c.Data == "span" && htmlutil.HasClass(c, "math"):
			b.WriteString(mathSource(c))
			return
		}
		for k := c.FirstChild; k != nil; k = k.NextSibling {
			walk(k)
		}
	}
	walk(n)
	return b.String()
}

// ---------------------------------------------------------------------------
// Block level

type translator struct {
	warnings []string
}

// blocks translates the children of n. Stray inline content between block
// elements is gathered into paragraphs.
func (t *translator) blocks(n *html.Node) []Block {
	var out []Block
	var pending []Run

	flush := func() {
		out = append(out, splitImages(Block{Kind: Paragraph}, pending)...)
		pending = nil
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			pending = append(pending, t.runs(c, Run{})...)
			continue
		}

		switch c.Data {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			flush()
			level := int(c.Data[1] - '0')
			out = append(out, splitImages(Block{Kind: Heading, Level: level}, t.runs(c, Run{}))...)
		case "p":
			flush()
			out = append(out, t.paragraph(c)...)
		case "ul", "ol":
			flush()
			out = append(out, t.list(c))
		case "table":
			flush()
			out = append(out, t.table(c))
		case "pre":
			flush()
			code := strings.TrimRight(htmlutil.TextContent(c), "\n")
			out = append(out, Block{Kind: CodeBlock, Text: code})
		case "blockquote":
			flush()
			out = append(out, Block{Kind: Blockquote, Children: t.blocks(c)})
		case "hr":
			flush()
			out = append(out, Block{Kind: Rule})
		case "img":
			flush()
			out = append(out, t.image(c))
		case "div", "section", "article", "header", "footer", "main", "nav",
			"figure", "figcaption", "details", "summary", "dl", "dd", "dt":
			flush()
			out = append(out, t.blocks(c)...)
		case "script", "style", "head", "title", "meta", "link":
		case "html", "body":
			flush()
			out = append(out, t.blocks(c)...)
		default:
			pending = append(pending, t.runs(c, Run{})...)
		}
	}
	flush()
	return out
}

// paragraph splits a <p> around its images, however deeply they are nested.
func (t *translator) paragraph(p *html.Node) []Block {
	var runs []Run
	for c := p.FirstChild; c != nil; c = c.NextSibling {
		runs = append(runs, t.runs(c, Run{})...)
	}
	return splitImages(Block{Kind: Paragraph}, runs)
}

// splitImages cuts runs at image runs. Text between images becomes blocks
// shaped like tmpl; each image becomes an Image block.
func splitImages(tmpl Block, runs []Run) []Block {
	var out []Block
	var text []Run
	flush := func() {
		if r := trimRuns(text); len(r) > 0 {
			b := tmpl
			b.Runs = r
			out = append(out, b)
		}
		text = nil
	}
	for _, r := range runs {
		if r.Image == nil {
			text = append(text, r)
			continue
		}
		flush()
		out = append(out, Block{Kind: Image, Image: r.Image})
	}
	flush()
	return out
}

func (t *translator) list(n *html.Node) Block {
	b := Block{Kind: List, Ordered: n.Data == "ol", Start: 1}
	if v, ok := htmlutil.Attr(n, "start"); ok {
		if start, err := strconv.Atoi(v); err == nil {
			b.Start = start
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "li" {
			b.Items = append(b.Items, ListItem{Blocks: t.blocks(c)})
		}
	}
	return b
}

func (t *translator) table(n *html.Node) Block {
	b := Block{Kind: Table}
	htmlutil.Walk(n, func(c *html.Node) bool {
		if c.Type != html.ElementNode || c.Data != "tr" {
			return true
		}
		var row []Cell
		for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
			if cell.Type != html.ElementNode || (cell.Data != "td" && cell.Data != "th") {
				continue
			}
			row = append(row, Cell{
				Runs:   t.cellRuns(cell),
				Header: cell.Data == "th",
			})
		}
		if len(row) > 0 {
			b.Rows = append(b.Rows, row)
		}
		return false
	})
	return b
}

// cellRuns flattens a table cell. Cells hold text only, so images inside
// them are reported and replaced by their label.
func (t *translator) cellRuns(cell *html.Node) []Run {
	runs := t.runs(cell, Run{})
	for i, r := range runs {
		if r.Image == nil {
			continue
		}
		label := imageLabel("data:", r.Image.Alt)
		t.warnings = append(t.warnings, fmt.Sprintf("Image %q could not be embedded (inside a table cell)", label))
		runs[i] = Run{Text: "[Image: " + label + "]", Italic: true, Link: r.Link}
	}
	return trimRuns(runs)
}

// image translates a block-level <img>. Unsupported or undecodable data
// becomes a placeholder paragraph.
func (t *translator) image(n *html.Node) Block {
	img, label := t.decodeNode(n)
	if img == nil {
		return Block{Kind: Paragraph, Runs: []Run{{Text: "[Image: " + label + "]", Italic: true}}}
	}
	return Block{Kind: Image, Image: img}
}

// decodeNode decodes the data URI of an <img>. On failure it records a
// warning and returns a nil image with the label to show instead.
func (t *translator) decodeNode(n *html.Node) (*ImageData, string) {
	src, _ := htmlutil.Attr(n, "src")
	alt, _ := htmlutil.Attr(n, "alt")
	label := imageLabel(src, alt)

	img, err := decodeImage(src)
	if err != nil {
		t.warnings = append(t.warnings, fmt.Sprintf("Image %q could not be embedded (%v)", label, err))
		return nil, label
	}
	img.Alt = alt
	return img, label
}

// imageLabel never returns a data URI.
func imageLabel(src, alt string) string {
	ref := inliner.ImageRef{Src: src, Alt: alt, Embedded: strings.HasPrefix(src, "data:")}
	if ref.Embedded && strings.TrimSpace(alt) == "" {
		return "embedded image"
	}
	return ref.Label()
}

func decodeImage(src string) (*ImageData, error) {
	mime, payload, ok := parseDataURI(src)
	if !ok {
		return nil, fmt.Errorf("%w: not inlined", ErrImage)
	}
	format, ok := imageFormats[mime]
	if !ok {
		return nil, fmt.Errorf("%w: format %s", ErrImage, mime)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImage, err)
	}
	if format == "PNG" && !plainPNG(payload) {
		if payload, err = reencodePNG(payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrImage, err)
		}
	}
	return &ImageData{Format: format, Data: payload, Width: cfg.Width, Height: cfg.Height}, nil
}

// plainPNG reports whether the IHDR chunk describes a non-interlaced image
// with at most 8 bits per channel, the only kind fpdf can embed directly.
func plainPNG(data []byte) bool {
	const depth, interlace = 24, 28
	if len(data) <= interlace {
		return false
	}
	return data[depth] <= 8 && data[interlace] == 0
}

func reencodePNG(data []byte) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	dst := image.NewNRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// parseDataURI handles data:<mime>[;params][;base64],<payload>.
func parseDataURI(src string) (string, []byte, bool) {
	rest, ok := strings.CutPrefix(src, "data:")
	if !ok {
		return "", nil, false
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, false
	}
	params := strings.Split(meta, ";")
	mime := strings.ToLower(strings.TrimSpace(params[0]))
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, false
		}
		return mime, data, true
	}
	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, false
	}
	return mime, []byte(unescaped), true
}

// ---------------------------------------------------------------------------
// Inline level

// runs flattens n into styled runs; style carries the inherited flags.
func (t *translator) runs(n *html.Node, style Run) []Run {
	switch n.Type {
	case html.TextNode:
		text := n.Data
		if !style.Code {
			text = collapseSpace(text)
		}
		if text == "" {
			return nil
		}
		r := style
		r.Text = text
		return []Run{r}
	case html.ElementNode:
	default:
		return nil
	}

	switch n.Data {
	case "br":
		return []Run{{Break: true}}
	case "script", "style":
		return nil
	case "strong", "b":
		style.Bold = true
	case "em", "i":
		style.Italic = true
	case "code", "kbd", "samp":
		style.Code = true
	case "a":
		if href, ok := htmlutil.Attr(n, "href"); ok {
			style.Link = href
		}
	case "img":
		r := style
		img, label := t.decodeNode(n)
		if img == nil {
			r.Text = "[Image: " + label + "]"
			r.Italic = true
			return []Run{r}
		}
		img.Link = style.Link
		r.Image = img
		return []Run{r}
	case "input":
		if v, _ := htmlutil.Attr(n, "type"); v == "checkbox" {
			mark := "[ ] "
			if _, checked := htmlutil.Attr(n, "checked"); checked {
				mark = "[x] "
			}
			r := style
			r.Text = mark
			return []Run{r}
		}
		return nil
	case "span":
		if htmlutil.HasClass(n, "math") {
			r := style
			r.Text = mathSource(n)
			r.Code = true
			if htmlutil.HasClass(n, "math-display") {
				return []Run{{Break: true}, r, {Break: true}}
			}
			return []Run{r}
		}
		if htmlutil.HasClass(n, inliner.PlaceholderClass) {
			style.Italic = true
		}
	}

	var out []Run
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, t.runs(c, style)...)
	}
	return out
}

// mathSource prefers the TeX annotation KaTeX embeds in its MathML output.
func mathSource(n *html.Node) string {
	src := ""
	htmlutil.Walk(n, func(c *html.Node) bool {
		if src != "" {
			return false
		}
		if c.Type == html.ElementNode && c.Data == "annotation" {
			if enc, _ := htmlutil.Attr(c, "encoding"); enc == "application/x-tex" {
				src = htmlutil.TextContent(c)
				return false
			}
		}
		return true
	})
	if src == "" {
		src = htmlutil.TextContent(n)
	}
	return strings.TrimSpace(src)
}

func collapseSpace(s string) string {
	var b strings.Builder
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			if !space {
				b.WriteByte(' ')
			}
			space = true
		default:
			b.WriteRune(r)
			space = false
		}
	}
	return b.String()
}

// trimRuns drops whitespace at the start and end of a block and after line
// breaks, and merges adjacent spaces across run boundaries.
func trimRuns(runs []Run) []Run {
	var out []Run
	lineStart := true
	for _, r := range runs {
		if r.Break {
			if len(out) > 0 {
				last := &out[len(out)-1]
				if !last.Break && !last.Code {
					last.Text = strings.TrimRight(last.Text, " ")
				}
			}
			out = append(out, r)
			lineStart = true
			continue
		}
		if !r.Code {
			if lineStart || endsWithSpace(out) {
				r.Text = strings.TrimLeft(r.Text, " ")
			}
		}
		if r.Text == "" {
			continue
		}
		out = append(out, r)
		lineStart = false
	}

	for len(out) > 0 {
		last := &out[len(out)-1]
		if last.Break {
			out = out[:len(out)-1]
			continue
		}
		if !last.Code {
			last.Text = strings.TrimRight(last.Text, " ")
		}
		if last.Text == "" {
			out = out[:len(out)-1]
			continue
		}
		break
	}
	for len(out) > 0 && out[0].Break {
		out = out[1:]
	}
	return out
}

func endsWithSpace(runs []Run) bool {
	if len(runs) == 0 {
		return false
	}
	last := runs[len(runs)-1]
	return !last.Break && strings.HasSuffix(last.Text, " ")
}
