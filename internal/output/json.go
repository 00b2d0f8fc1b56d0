package output

import (
	"encoding/json"
	"io"

	"github.com/bgricker/suitegate/internal/feature"
	"github.com/bgricker/suitegate/internal/report"
)

// JSONRenderer emits structured data.
type JSONRenderer struct {
	out io.Writer
}

// NewJSON creates a JSON renderer writing to out.
func NewJSON(out io.Writer) *JSONRenderer {
	return &JSONRenderer{out: out}
}

// ProbeEntry is the JSON form of a feature.Result.
type ProbeEntry struct {
	Feature      string `json:"feature"`
	Availability string `json:"availability"`
	Source       string `json:"source,omitempty"`
	Error        string `json:"error,omitempty"`
	DurationMS   int64  `json:"duration_ms"`
}

// RenderResults encodes the run report.
func (j *JSONRenderer) RenderResults(rep *report.RunReport) error {
	return j.encode(rep)
}

// RenderList encodes the catalog listing.
func (j *JSONRenderer) RenderList(entries []ListEntry) error {
	if entries == nil {
		entries = []ListEntry{}
	}
	return j.encode(struct {
		Suites []ListEntry `json:"suites"`
	}{entries})
}

// RenderProbes encodes probe results.
func (j *JSONRenderer) RenderProbes(results []feature.Result) error {
	entries := make([]ProbeEntry, 0, len(results))
	for _, res := range results {
		e := ProbeEntry{
			Feature:      res.Tag,
			Availability: res.Availability.String(),
			Source:       res.Source,
			DurationMS:   res.Duration.Milliseconds(),
		}
		if res.Err != nil {
			e.Error = res.Err.Error()
		}
		entries = append(entries, e)
	}
	return j.encode(struct {
		Features []ProbeEntry `json:"features"`
	}{entries})
}

func (j *JSONRenderer) encode(v interface{}) error {
	enc := json.NewEncoder(j.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
