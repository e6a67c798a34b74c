package index

import (
	"path/filepath"
	"strings"

	"github.com/starford/laguz/internal/notebook"
)

// Extracted holds the indexable fields derived from a notebook document.
type Extracted struct {
	Title     string
	Kernel    string
	CellCount int
	Body      string
}

// Extract derives index fields from raw document bytes. The title is
// the first Markdown heading; the path stem is the fallback. The body
// is every cell source joined, which is what search matches against.
func Extract(path string, data []byte) (*Extracted, error) {
	snap, err := notebook.Decode(data)
	if err != nil {
		return nil, err
	}

	ex := &Extracted{CellCount: len(snap.Cells)}

	if k, ok := snap.Metadata["kernel"].(string); ok {
		ex.Kernel = k
	}

	var body strings.Builder
	for _, c := range snap.Cells {
		if ex.Title == "" && c.Kind == "markdown" {
			ex.Title = firstHeading(c.Source)
		}
		if body.Len() > 0 {
			body.WriteString("\n")
		}
		body.WriteString(c.Source)
	}
	ex.Body = body.String()

	if ex.Title == "" {
		base := filepath.Base(path)
		ex.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return ex, nil
}

// firstHeading returns the text of the first "#"-style heading line.
func firstHeading(source string) string {
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, "#"); ok {
			return strings.TrimSpace(strings.TrimLeft(rest, "#"))
		}
	}
	return ""
}
