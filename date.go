package md2pdf

import (
	"strings"
	"time"

	"github.com/alnah/md2pdf-web/internal/dateutil"
)

// artifactPrefix starts every exported filename.
const artifactPrefix = "markdown-"

// ArtifactName returns the export filename for t, e.g. markdown-2024-03-15.pdf.
// format uses dateutil tokens or a preset; empty means dateutil.DefaultDateFormat.
// Characters that cannot appear in a filename become dashes.
func ArtifactName(format string, t time.Time) (string, error) {
	if format == "" {
		format = dateutil.DefaultDateFormat
	}
	date, err := dateutil.Format(format, t)
	if err != nil {
		return "", err
	}
	return artifactPrefix + sanitizeFilename(date) + ".pdf", nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "-", "\\", "-", ":", "-", " ", "-", ",", "",
)

func sanitizeFilename(s string) string {
	return filenameReplacer.Replace(s)
}
