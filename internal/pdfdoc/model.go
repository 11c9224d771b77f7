package pdfdoc

import "time"

// Page geometry in points.
const (
	A4Width  = 595.28
	A4Height = 841.89

	PageMargin = 50.0
)

// Default metadata.
const (
	DefaultTitle = "Markdown Document"
	Producer     = "md2pdf-web"
)

// Margins are [left, top, right, bottom] in points.
type Margins [4]float64

// Left, Top, Right and Bottom name the Margins components.
func (m Margins) Left() float64   { return m[0] }
func (m Margins) Top() float64    { return m[1] }
func (m Margins) Right() float64  { return m[2] }
func (m Margins) Bottom() float64 { return m[3] }

// Info is the document metadata.
type Info struct {
	Title    string
	Producer string
	Creator  string
	Created  time.Time
}

// BlockKind identifies a block-level element.
type BlockKind int

// Block kinds.
const (
	Heading BlockKind = iota + 1
	Paragraph
	List
	Table
	CodeBlock
	Blockquote
	Image
	Rule
)

// Run is a span of inline text with uniform styling. A Break run ends the
// current line. An Image run carries a decoded image met inside inline
// content; translation lifts it into its own block before layout.
type Run struct {
	Text   string
	Bold   bool
	Italic bool
	Code   bool
	Link   string
	Break  bool
	Image  *ImageData
}

// ListItem is one entry of a list; nested lists appear among its blocks.
type ListItem struct {
	Blocks []Block
}

// Cell is one table cell.
type Cell struct {
	Runs   []Run
	Header bool
}

// ImageData is a decoded-and-verified raster image.
type ImageData struct {
	Format string // fpdf image type: PNG, JPG or GIF
	Data   []byte
	Alt    string
	Link   string // target when the image sat inside a link
	Width  int    // pixels
	Height int // pixels
}

// Block is a layout block. Which fields are set depends on Kind.
type Block struct {
	Kind     BlockKind
	Level    int        // Heading: 1-6
	Runs     []Run      // Heading, Paragraph
	Ordered  bool       // List
	Start    int        // List: first number when ordered
	Items    []ListItem // List
	Rows     [][]Cell   // Table
	Text     string     // CodeBlock
	Children []Block    // Blockquote
	Image    *ImageData // Image
}

// Document is the page model handed to the serializer.
type Document struct {
	Info        Info
	PageMargins Margins
	Content     []Block
	Warnings    []string // images that could not be placed
}
