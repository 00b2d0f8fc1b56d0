package output

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bgricker/suitegate/internal/feature"
	"github.com/bgricker/suitegate/internal/report"
)

// PrettyRenderer renders results in a human-friendly format.
type PrettyRenderer struct {
	out io.Writer
}

// NewPretty creates a PrettyRenderer writing to the provided writer.
func NewPretty(out io.Writer) *PrettyRenderer {
	return &PrettyRenderer{out: out}
}

// RenderList renders the catalog, one suite per line.
func (p *PrettyRenderer) RenderList(entries []ListEntry) error {
	var buf bytes.Buffer
	for _, e := range entries {
		marker := "•"
		if !e.Suite.Enabled {
			marker = "○"
		}
		fmt.Fprintf(&buf, "%s %s", marker, e.Suite.Name)
		if e.Suite.Description != "" {
			fmt.Fprintf(&buf, " - %s", e.Suite.Description)
		}
		buf.WriteString("\n")
		fmt.Fprintf(&buf, "    command: %s\n", strings.Join(e.Command, " "))
		if e.WorkingDirectory != "" {
			fmt.Fprintf(&buf, "    dir: %s\n", e.WorkingDirectory)
		}
		if len(e.Suite.Requires) > 0 {
			fmt.Fprintf(&buf, "    requires: %s\n", strings.Join(e.Suite.Requires, ", "))
		}
		if !e.Suite.Enabled {
			buf.WriteString("    disabled by default; run it by name\n")
		}
		if e.Problem != "" {
			fmt.Fprintf(&buf, "    warning: %s\n", e.Problem)
		}
	}
	_, err := buf.WriteTo(p.out)
	return err
}

// RenderProbes shows one line per probed feature.
func (p *PrettyRenderer) RenderProbes(results []feature.Result) error {
	var buf bytes.Buffer
	for _, res := range results {
		fmt.Fprintf(&buf, "%s %s: %s", availabilityGlyph(res.Availability), res.Tag, res.Availability)
		if res.Source != "" {
			fmt.Fprintf(&buf, " (%s)", res.Source)
		}
		buf.WriteString("\n")
		if res.Err != nil {
			fmt.Fprintf(&buf, "    error: %v\n", res.Err)
		}
	}
	_, err := buf.WriteTo(p.out)
	return err
}

// RenderResults shows every executed and skipped suite with a summary.
func (p *PrettyRenderer) RenderResults(rep *report.RunReport) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Run %s\n", rep.RunID)
	for _, res := range rep.Results() {
		fmt.Fprintf(&buf, "  %s %s (%s)\n", statusGlyph(res.Status), res.Suite, formatDuration(res.Duration))
		if res.Failed() {
			fmt.Fprintf(&buf, "      exit code: %d", res.ExitCode)
			if res.Signal != "" {
				fmt.Fprintf(&buf, " (%s)", res.Signal)
			}
			buf.WriteString("\n")
			if res.Stderr != "" {
				fmt.Fprintf(&buf, "      stderr:\n%s\n", indent(res.Stderr, "        "))
			}
		}
		if res.Skipped && res.SkipReason != "" {
			fmt.Fprintf(&buf, "      note: %s\n", res.SkipReason)
		}
		if res.DryRun {
			fmt.Fprintf(&buf, "      command: %s\n", strings.Join(res.Command, " "))
		}
	}
	for _, name := range rep.NotRun() {
		fmt.Fprintf(&buf, "  %s %s (not run)\n", statusGlyph(""), name)
	}

	s := rep.Summary()
	fmt.Fprintf(&buf, "SUMMARY: %d passed, %d failed, %d skipped", s.Passed, s.Failed, s.Skipped)
	if s.NotRun > 0 {
		fmt.Fprintf(&buf, ", %d not run", s.NotRun)
	}
	fmt.Fprintf(&buf, " (%s)\n", formatDuration(s.Duration))
	if rep.Incomplete() {
		buf.WriteString("run interrupted; results are incomplete\n")
	}
	_, err := buf.WriteTo(p.out)
	return err
}

func statusGlyph(status report.Status) string {
	switch status {
	case report.StatusPassed:
		return "✓"
	case report.StatusFailed:
		return "✗"
	case report.StatusSkipped:
		return "-"
	default:
		return "?"
	}
}

func availabilityGlyph(a feature.Availability) string {
	switch a {
	case feature.Available:
		return "✓"
	case feature.Unavailable:
		return "✗"
	default:
		return "?"
	}
}

func indent(s, pad string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = pad + lines[i]
	}
	return strings.Join(lines, "\n")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Truncate(time.Millisecond).String()
}
