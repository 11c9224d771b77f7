package pipeline

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/alnah/md2pdf-web/internal/htmlutil"
)

// ResolveLocalImages points relative image sources at files under dir, so a
// document printed from a temporary file still finds the images that sit
// next to its Markdown source. URLs, absolute paths and sources escaping dir
// are left as they are. An empty dir returns the document unchanged.
func ResolveLocalImages(documentHTML, dir string) (string, error) {
	if dir == "" {
		return documentHTML, nil
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	root, err := htmlutil.ParseFragment(documentHTML)
	if err != nil {
		return "", err
	}

	changed := false
	goquery.NewDocumentFromNode(root).Find("img[src]").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if fileURL, ok := localImageURL(absDir, src); ok {
			img.SetAttr("src", fileURL)
			changed = true
		}
	})
	if !changed {
		return documentHTML, nil
	}
	return htmlutil.Render(root)
}

// localImageURL returns the file:// URL of a relative src under dir.
func localImageURL(dir, src string) (string, bool) {
	src = strings.TrimSpace(src)
	if src == "" || strings.HasPrefix(src, "#") || strings.HasPrefix(src, "//") {
		return "", false
	}
	u, err := url.Parse(src)
	if err != nil || u.Scheme != "" || u.Path == "" || filepath.IsAbs(u.Path) || strings.HasPrefix(u.Path, "/") {
		return "", false
	}

	p := filepath.Join(dir, filepath.FromSlash(u.Path))
	rel, err := filepath.Rel(dir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}

	slashed := filepath.ToSlash(p)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed // C:/docs -> /C:/docs
	}
	return (&url.URL{Scheme: "file", Path: slashed}).String(), true
}
