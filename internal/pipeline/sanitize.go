package pipeline

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer removes unsafe markup from converted HTML.
type Sanitizer interface {
	Sanitize(html string) string
}

var (
	classNames   = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)
	checkboxType = regexp.MustCompile(`^checkbox$`)
	flagValue    = regexp.MustCompile(`^(|checked|disabled)$`)
	headingID    = regexp.MustCompile(`^[\p{L}\p{N}\p{Mn}_-]+$`)
)

// NewSanitizer returns the policy applied to goldmark output: bluemonday's
// user-generated-content policy plus highlighting classes, data URI images,
// GFM task list checkboxes and heading ids in any script.
func NewSanitizer() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(classNames).Globally()
	p.AllowDataURIImages()
	p.AllowAttrs("type").Matching(checkboxType).OnElements("input")
	p.AllowAttrs("checked", "disabled").Matching(flagValue).OnElements("input")
	p.AllowAttrs("id").Matching(headingID).OnElements("h1", "h2", "h3", "h4", "h5", "h6")
	return p
}

// Compile-time interface check.
var _ Sanitizer = (*bluemonday.Policy)(nil)
