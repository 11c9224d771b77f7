package md2pdf

import (
	"context"
	"fmt"

	"github.com/alnah/md2pdf-web/internal/assets"
	"github.com/alnah/md2pdf-web/internal/pipeline"
)

// BuildDocument wraps a rendered fragment into the self-contained HTML
// document sent for printing, styled with theme.
func BuildDocument(ctx context.Context, fragmentHTML string, theme assets.Theme) (string, error) {
	return BuildDocumentWith(ctx, nil, fragmentHTML, theme)
}

// BuildDocumentWith is BuildDocument with stylesheets read from loader,
// typically an assets.AssetResolver over an override directory. A nil
// loader uses the embedded styles.
func BuildDocumentWith(ctx context.Context, loader assets.AssetLoader, fragmentHTML string, theme assets.Theme) (string, error) {
	if loader == nil {
		loader = assets.NewEmbeddedLoader()
	}
	css, err := assets.Stylesheet(loader, theme)
	if err != nil {
		return "", fmt.Errorf("loading %s stylesheet: %w", theme, err)
	}
	return pipeline.BuildDocument(ctx, fragmentHTML, css), nil
}
