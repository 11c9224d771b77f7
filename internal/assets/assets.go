package assets

// Bundled style and document names.
const (
	BaseStyleName       = "base"
	DefaultDocumentName = "default"
	ExampleDocumentName = "example"
)

// defaultLoader is the package-level embedded loader.
var defaultLoader = NewEmbeddedLoader()

// Stylesheet composes the print stylesheet for a theme: shared layout rules,
// the theme's overrides, then code highlighting rules.
func Stylesheet(loader AssetLoader, t Theme) (string, error) {
	if loader == nil {
		loader = defaultLoader
	}

	base, err := loader.LoadStyle(BaseStyleName)
	if err != nil {
		return "", err
	}
	theme, err := loader.LoadStyle(t.StyleName())
	if err != nil {
		return "", err
	}
	highlight, err := HighlightCSS(t)
	if err != nil {
		return "", err
	}

	return base + "\n" + theme + "\n" + highlight, nil
}

// DefaultInput returns the placeholder document shown in a fresh session.
func DefaultInput() string {
	content, err := defaultLoader.LoadDocument(DefaultDocumentName)
	if err != nil {
		// Embedded at compile time.
		panic(err)
	}
	return content
}

// LoadDocument loads a bundled document by name using the embedded loader.
func LoadDocument(name string) (string, error) {
	return defaultLoader.LoadDocument(name)
}
