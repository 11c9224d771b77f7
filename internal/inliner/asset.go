package inliner

import (
	"encoding/base64"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// FallbackMIMEType is used when neither the response, the URL nor the bytes
// identify the image format.
const FallbackMIMEType = "application/octet-stream"

// extensionTypes maps URL path extensions to image types.
var extensionTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
}

// Asset is an image payload with its content type.
type Asset struct {
	MIMEType string
	Data     []byte
}

// DataURI returns the asset as data:<mime>;base64,<payload>.
// Its length depends only on len(Data) and the MIME type.
func (a Asset) DataURI() string {
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(a.MIMEType) + base64.StdEncoding.EncodedLen(len(a.Data)))
	b.WriteString("data:")
	b.WriteString(a.MIMEType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(a.Data))
	return b.String()
}

// DetectMIMEType picks the content type for an image: the declared type
// (parameters stripped), then the URL extension, then content sniffing when it
// yields an image type, then FallbackMIMEType. A declared
// application/octet-stream carries no information and is skipped.
func DetectMIMEType(declared, rawURL string, data []byte) string {
	if declared != "" {
		mt, _, err := mime.ParseMediaType(declared)
		if err == nil && mt != FallbackMIMEType {
			return mt
		}
	}

	if t, ok := extensionTypes[urlExtension(rawURL)]; ok {
		return t
	}

	if len(data) > 0 {
		sniffed := mimetype.Detect(data).String()
		if mt, _, _ := strings.Cut(sniffed, ";"); strings.HasPrefix(mt, "image/") {
			return mt
		}
	}

	return FallbackMIMEType
}

// urlExtension returns the lowercased extension of the URL path.
func urlExtension(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	return strings.ToLower(path.Ext(p))
}
