package assets

import "errors"

// Lookup errors.
var (
	ErrStyleNotFound    = errors.New("style not found")
	ErrDocumentNotFound = errors.New("document not found")

	// ErrUnknownTheme is a theme identifier outside laetus, githubDark and
	// githubLight.
	ErrUnknownTheme = errors.New("unknown theme")

	// ErrInvalidAssetName is a name with characters that could leave the
	// asset directory or change the extension.
	ErrInvalidAssetName = errors.New("invalid asset name")
)

// Override directory errors.
var (
	ErrInvalidBasePath = errors.New("invalid base path")
	ErrPathTraversal   = errors.New("path traversal detected")
	ErrAssetRead       = errors.New("failed to read asset")
)

// IsNotFound reports whether err means the asset does not exist. Invalid
// names and read failures are not "not found": the resolver reports them
// instead of falling back to the embedded copy.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStyleNotFound) || errors.Is(err, ErrDocumentNotFound)
}
