package output

import (
	"fmt"
	"io"

	"github.com/bgricker/suitegate/internal/catalog"
	"github.com/bgricker/suitegate/internal/report"
)

// Progress prints one line as each suite starts and finishes. Its methods
// match the orchestrator's OnSuiteStart and OnSuiteDone hooks.
type Progress struct {
	out io.Writer
}

// NewProgress creates a Progress writing to out.
func NewProgress(out io.Writer) *Progress {
	return &Progress{out: out}
}

// SuiteStarted announces the suite about to run.
func (p *Progress) SuiteStarted(index, total int, s catalog.Suite) {
	fmt.Fprintf(p.out, "[%d/%d] ⏳ %s\n", index+1, total, s.Name)
}

// SuiteDone reports the suite's outcome.
func (p *Progress) SuiteDone(index, total int, res report.SuiteResult) {
	line := fmt.Sprintf("[%d/%d] %s %s (%s)", index+1, total, statusGlyph(res.Status), res.Suite, formatDuration(res.Duration))
	switch {
	case res.Skipped:
		line += " skipped: " + res.SkipReason
	case res.Failed():
		line += fmt.Sprintf(" exit %d", res.ExitCode)
	}
	fmt.Fprintln(p.out, line)
}
