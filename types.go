package md2pdf

import "time"

// MaxHTMLBytes is the largest HTML document the render service accepts.
const MaxHTMLBytes = 2 << 20

// DefaultFilename names a rendered PDF when the job does not.
const DefaultFilename = "document.pdf"

// DefaultTimeout bounds one export when the caller sets none.
const DefaultTimeout = 60 * time.Second

// RenderJob is one document sent to the render service.
type RenderJob struct {
	HTML     string `json:"html"`
	Filename string `json:"filename,omitempty"`
}

// Size returns the HTML length in bytes, the unit of the render limit.
func (j RenderJob) Size() int {
	return len(j.HTML)
}

// Artifact is a produced PDF.
type Artifact struct {
	Filename string
	PDF      []byte
}

// AssembleResult is the outcome of local assembly. Warnings describe images
// that were replaced by placeholders; they never fail the assembly.
type AssembleResult struct {
	Artifact Artifact
	Warnings []string
	Images   int
}
