package pdfdoc

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"codeberg.org/go-pdf/fpdf"
)

// pxToPt converts CSS pixels to points.
const pxToPt = 0.75

var (
	textColor  = [3]int{0x24, 0x29, 0x2f}
	linkColor  = [3]int{0x09, 0x69, 0xda}
	ruleColor  = [3]int{0xd0, 0xd7, 0xde}
	headerFill = [3]int{0xf6, 0xf8, 0xfa}
)

const cellPadding = 4.0

// Write serializes doc as an A4 PDF.
func Write(doc *Document, out io.Writer) error {
	pdf := fpdf.New("P", "pt", "A4", "")
	m := doc.PageMargins
	pdf.SetMargins(m.Left(), m.Top(), m.Right())
	pdf.SetAutoPageBreak(true, m.Bottom())

	pdf.SetTitle(doc.Info.Title, true)
	pdf.SetProducer(doc.Info.Producer, true)
	if doc.Info.Creator != "" {
		pdf.SetCreator(doc.Info.Creator, true)
	}
	if !doc.Info.Created.IsZero() {
		pdf.SetCreationDate(doc.Info.Created)
	}

	pdf.AddPage()
	pdf.SetTextColor(textColor[0], textColor[1], textColor[2])

	w := &writer{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}
	for _, b := range doc.Content {
		w.block(b)
	}

	if err := pdf.Output(out); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

type writer struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	italic bool // inside a blockquote
	images int
}

// block draws one block framed by its style's vertical margins.
func (w *writer) block(b Block) {
	st := StyleFor(b)
	w.pdf.Ln(st.Margin.Top())

	switch b.Kind {
	case Heading:
		h := lineHeight(st.Size)
		w.runs(b.Runs, st, h)
		w.pdf.Ln(h)
	case Paragraph:
		h := lineHeight(st.Size)
		w.runs(b.Runs, st, h)
		w.pdf.Ln(h)
	case List:
		w.list(b)
	case Table:
		w.table(b)
	case CodeBlock:
		w.code(b.Text, st)
	case Blockquote:
		w.blockquote(b, st)
	case Image:
		w.image(b.Image)
	case Rule:
		w.rule()
	}

	w.pdf.Ln(st.Margin.Bottom())
}

func (w *writer) runs(runs []Run, st Style, h float64) {
	for _, r := range runs {
		if r.Break {
			w.pdf.Ln(h)
			continue
		}
		w.setFont(st, r.Bold, r.Italic, r.Code)
		text := w.tr(r.Text)
		if r.Link != "" && !strings.HasPrefix(r.Link, "#") {
			w.pdf.SetTextColor(linkColor[0], linkColor[1], linkColor[2])
			w.pdf.WriteLinkString(h, text, r.Link)
			w.pdf.SetTextColor(textColor[0], textColor[1], textColor[2])
			continue
		}
		w.pdf.Write(h, text)
	}
}

func (w *writer) setFont(st Style, bold, italic, code bool) {
	family, size := st.Font, st.Size
	if code && family != CodeFont {
		family, size = CodeFont, st.Size-1
	}
	style := ""
	if st.Bold || bold {
		style += "B"
	}
	if st.Italic || italic || w.italic {
		style += "I"
	}
	w.pdf.SetFont(family, style, size)
}

func (w *writer) list(b Block) {
	st := StyleFor(b)
	h := lineHeight(st.Size)
	left, _, _, _ := w.pdf.GetMargins()

	for i, item := range b.Items {
		marker := "•"
		if b.Ordered {
			marker = strconv.Itoa(b.Start+i) + "."
		}
		w.setFont(st, false, false, false)
		w.pdf.SetX(left)
		w.pdf.CellFormat(ListIndent, h, w.tr(marker), "", 0, "L", false, 0, "")

		w.pdf.SetLeftMargin(left + ListIndent)
		w.item(item, st, h)
		w.pdf.SetLeftMargin(left)
		w.pdf.SetX(left)
	}
}

// item draws list item content. A leading paragraph shares the marker line.
func (w *writer) item(item ListItem, st Style, h float64) {
	if len(item.Blocks) == 0 {
		w.pdf.Ln(h)
		return
	}
	for _, b := range item.Blocks {
		switch b.Kind {
		case Paragraph:
			w.runs(b.Runs, st, h)
			w.pdf.Ln(h)
		case List:
			w.list(b)
		default:
			w.block(b)
		}
	}
}

func (w *writer) table(b Block) {
	cols := 0
	for _, row := range b.Rows {
		cols = max(cols, len(row))
	}
	if cols == 0 {
		return
	}

	st := StyleFor(b)
	h := lineHeight(st.Size)
	left, _, right, bottom := w.pdf.GetMargins()
	pageW, pageH := w.pdf.GetPageSize()
	colW := (pageW - left - right) / float64(cols)
	textW := colW - 2*cellPadding

	w.pdf.SetDrawColor(ruleColor[0], ruleColor[1], ruleColor[2])
	w.pdf.SetFillColor(headerFill[0], headerFill[1], headerFill[2])

	for _, row := range b.Rows {
		texts := make([]string, len(row))
		lines := 1
		for i, cell := range row {
			texts[i] = w.tr(cellText(cell.Runs))
			w.setFont(st, cell.Header, false, false)
			lines = max(lines, w.wrappedLines(texts[i], textW))
		}
		rowH := float64(lines)*h + 2*cellPadding

		if w.pdf.GetY()+rowH > pageH-bottom {
			w.pdf.AddPage()
		}
		x, y := left, w.pdf.GetY()
		for i := 0; i < cols; i++ {
			header := i < len(row) && row[i].Header
			if header {
				w.pdf.Rect(x, y, colW, rowH, "FD")
			} else {
				w.pdf.Rect(x, y, colW, rowH, "D")
			}
			if i < len(row) {
				w.setFont(st, header, false, false)
				w.pdf.SetXY(x+cellPadding, y+cellPadding)
				w.pdf.MultiCell(textW, h, texts[i], "", "L", false)
			}
			x += colW
		}
		w.pdf.SetXY(left, y+rowH)
	}
}

// wrappedLines estimates how many lines MultiCell needs for text at the
// current font. Text must already be translated to the core font encoding.
func (w *writer) wrappedLines(text string, width float64) int {
	// MultiCell keeps a cell margin on each side.
	width -= 2 * w.pdf.GetCellMargin()
	space := w.pdf.GetStringWidth(" ")

	lines := 0
	for _, para := range strings.Split(text, "\n") {
		lines++
		lineW := 0.0
		for i, word := range strings.Fields(para) {
			ww := w.pdf.GetStringWidth(word)
			if i > 0 && lineW+space+ww > width {
				lines++
				lineW = ww
				continue
			}
			if i > 0 {
				lineW += space
			}
			lineW += ww
		}
	}
	return lines
}

func cellText(runs []Run) string {
	var b strings.Builder
	for _, r := range runs {
		if r.Break {
			b.WriteByte('\n')
			continue
		}
		b.WriteString(r.Text)
	}
	return b.String()
}

func (w *writer) code(text string, st Style) {
	h := lineHeight(st.Size)
	left, _, right, _ := w.pdf.GetMargins()
	pageW, _ := w.pdf.GetPageSize()

	w.pdf.SetFont(st.Font, "", st.Size)
	w.pdf.SetFillColor(st.Background[0], st.Background[1], st.Background[2])
	w.pdf.SetX(left)
	text = strings.ReplaceAll(text, "\t", "    ")
	w.pdf.MultiCell(pageW-left-right, h, w.tr(text), "", "L", true)
}

func (w *writer) blockquote(b Block, st Style) {
	left, _, _, _ := w.pdf.GetMargins()
	indent := left + st.Margin.Left()

	w.pdf.SetLeftMargin(indent)
	w.pdf.SetX(indent)
	italic := w.italic
	w.italic = true
	for _, c := range b.Children {
		w.block(c)
	}
	w.italic = italic
	w.pdf.SetLeftMargin(left)
	w.pdf.SetX(left)
}

func (w *writer) image(img *ImageData) {
	if img == nil {
		return
	}
	w.images++
	name := "image-" + strconv.Itoa(w.images)
	opts := fpdf.ImageOptions{ImageType: img.Format, ReadDpi: false}
	w.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))

	left, top, right, bottom := w.pdf.GetMargins()
	pageW, pageH := w.pdf.GetPageSize()
	maxW := pageW - left - right
	maxH := pageH - top - bottom

	width := float64(img.Width) * pxToPt
	height := float64(img.Height) * pxToPt
	if width > maxW {
		height *= maxW / width
		width = maxW
	}
	if height > maxH {
		width *= maxH / height
		height = maxH
	}

	link := img.Link
	if strings.HasPrefix(link, "#") {
		link = ""
	}
	w.pdf.ImageOptions(name, left, -1, width, height, true, opts, 0, link)
}

func (w *writer) rule() {
	left, _, right, _ := w.pdf.GetMargins()
	pageW, _ := w.pdf.GetPageSize()
	y := w.pdf.GetY()

	w.pdf.SetDrawColor(ruleColor[0], ruleColor[1], ruleColor[2])
	w.pdf.SetLineWidth(1)
	w.pdf.Line(left, y, pageW-right, y)
	w.pdf.SetLineWidth(0.5)
}
