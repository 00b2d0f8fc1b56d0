// Package output renders run reports, catalog listings and probe results.
package output

import (
	"fmt"
	"io"

	"github.com/bgricker/suitegate/internal/catalog"
	"github.com/bgricker/suitegate/internal/feature"
	"github.com/bgricker/suitegate/internal/report"
)

const (
	FormatPretty = "pretty"
	FormatTable  = "table"
	FormatJSON   = "json"
)

// Renderer is implemented by every output format.
type Renderer interface {
	RenderResults(rep *report.RunReport) error
	RenderList(entries []ListEntry) error
	RenderProbes(results []feature.Result) error
}

// ListEntry is one suite as shown by `list`.
type ListEntry struct {
	Suite            catalog.Suite `json:"suite"`
	Command          []string      `json:"command"`
	WorkingDirectory string        `json:"working_directory"`
	// Problem notes a catalog entry that cannot run as declared.
	Problem string `json:"problem,omitempty"`
}

// New returns the renderer for format.
func New(format string, out io.Writer) (Renderer, error) {
	switch format {
	case "", FormatPretty:
		return NewPretty(out), nil
	case FormatTable:
		return NewTable(out), nil
	case FormatJSON:
		return NewJSON(out), nil
	default:
		return nil, fmt.Errorf("unsupported format %q (want %s, %s or %s)", format, FormatPretty, FormatTable, FormatJSON)
	}
}
