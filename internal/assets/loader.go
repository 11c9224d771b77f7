package assets

import "fmt"

// AssetLoader loads theme stylesheets and bundled Markdown documents by bare
// name ("laetus", not "styles/laetus.css"). Loaders return ErrInvalidAssetName
// for names ValidateAssetName rejects, and an error matching IsNotFound for
// names they do not hold.
type AssetLoader interface {
	LoadStyle(name string) (string, error)
	LoadDocument(name string) (string, error)
}

// kind is a family of assets sharing a directory and an extension.
type kind struct {
	dir      string
	ext      string
	notFound error
}

var (
	styleKind    = kind{dir: "styles", ext: ".css", notFound: ErrStyleNotFound}
	documentKind = kind{dir: "documents", ext: ".md", notFound: ErrDocumentNotFound}
)

// path validates name and returns its slash-separated location below a
// loader root.
func (k kind) path(name string) (string, error) {
	if err := ValidateAssetName(name); err != nil {
		return "", err
	}
	return k.dir + "/" + name + k.ext, nil
}

func (k kind) missing(name string) error {
	return fmt.Errorf("%w: %q", k.notFound, name)
}
