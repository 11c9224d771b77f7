package pdfdoc

// Style is the fixed look of one block kind.
type Style struct {
	Font       string
	Size       float64
	Bold       bool
	Italic     bool
	Margin     Margins
	Background [3]int // RGB; zero value means none
}

// Font families (fpdf core fonts).
const (
	BodyFont = "Helvetica"
	CodeFont = "Courier"
	BodySize = 11.0
)

// ListIndent is the left offset of list item content.
const ListIndent = 18.0

var headingMargin = Margins{0, 10, 0, 5}

// styles is the style table. It is not configurable.
var styles = map[string]Style{
	"h1":         {Font: BodyFont, Size: 24, Bold: true, Margin: headingMargin},
	"h2":         {Font: BodyFont, Size: 20, Bold: true, Margin: headingMargin},
	"h3":         {Font: BodyFont, Size: 18, Bold: true, Margin: headingMargin},
	"h4":         {Font: BodyFont, Size: 16, Bold: true, Margin: headingMargin},
	"h5":         {Font: BodyFont, Size: 14, Bold: true, Margin: headingMargin},
	"h6":         {Font: BodyFont, Size: 12, Bold: true, Margin: headingMargin},
	"paragraph":  {Font: BodyFont, Size: BodySize, Margin: Margins{0, 5, 0, 5}},
	"list":       {Font: BodyFont, Size: BodySize, Margin: Margins{0, 5, 0, 5}},
	"table":      {Font: BodyFont, Size: BodySize, Margin: Margins{0, 5, 0, 15}},
	"code":       {Font: CodeFont, Size: 10, Margin: Margins{0, 5, 0, 5}, Background: [3]int{0xf4, 0xf4, 0xf4}},
	"blockquote": {Font: BodyFont, Size: BodySize, Italic: true, Margin: Margins{10, 5, 0, 5}},
	"image":      {Font: BodyFont, Size: BodySize, Margin: Margins{0, 5, 0, 5}},
	"rule":       {Font: BodyFont, Size: BodySize, Margin: Margins{0, 5, 0, 5}},
}

// StyleFor returns the style of a block.
func StyleFor(b Block) Style {
	switch b.Kind {
	case Heading:
		return styles[headingKey(b.Level)]
	case Paragraph:
		return styles["paragraph"]
	case List:
		return styles["list"]
	case Table:
		return styles["table"]
	case CodeBlock:
		return styles["code"]
	case Blockquote:
		return styles["blockquote"]
	case Image:
		return styles["image"]
	default:
		return styles["rule"]
	}
}

func headingKey(level int) string {
	level = min(max(level, 1), 6)
	return "h" + string(rune('0'+level))
}

// lineHeight is the leading used for a font size.
func lineHeight(size float64) float64 {
	return size * 1.3
}
