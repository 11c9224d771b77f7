package assets

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
)

//go:embed styles documents
var bundle embed.FS

// EmbeddedLoader reads assets laid out as styles/*.css and documents/*.md
// from a file system, by default the copy compiled into the binary.
type EmbeddedLoader struct {
	fsys fs.FS
}

// NewEmbeddedLoader creates an EmbeddedLoader over the compiled-in assets.
func NewEmbeddedLoader() *EmbeddedLoader {
	return &EmbeddedLoader{fsys: bundle}
}

// LoadStyle loads styles/{name}.css.
func (e *EmbeddedLoader) LoadStyle(name string) (string, error) {
	return e.load(styleKind, name)
}

// LoadDocument loads documents/{name}.md.
func (e *EmbeddedLoader) LoadDocument(name string) (string, error) {
	return e.load(documentKind, name)
}

func (e *EmbeddedLoader) load(k kind, name string) (string, error) {
	p, err := k.path(name)
	if err != nil {
		return "", err
	}

	content, err := fs.ReadFile(e.fsys, p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", k.missing(name)
	case err != nil:
		return "", fmt.Errorf("%w: %v", ErrAssetRead, err)
	}
	return string(content), nil
}

var _ AssetLoader = (*EmbeddedLoader)(nil)
