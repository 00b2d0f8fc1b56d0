package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/bgricker/suitegate/internal/feature"
	"github.com/bgricker/suitegate/internal/report"
)

// TableRenderer renders go-pretty tables.
type TableRenderer struct {
	out io.Writer
}

// NewTable creates a TableRenderer writing to out.
func NewTable(out io.Writer) *TableRenderer {
	return &TableRenderer{out: out}
}

func (r *TableRenderer) newWriter() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	style := table.StyleLight
	style.Format.Footer = text.FormatDefault
	t.SetStyle(style)
	return t
}

// RenderResults renders one row per suite and a totals footer.
func (r *TableRenderer) RenderResults(rep *report.RunReport) error {
	s := rep.Summary()
	t := r.newWriter()
	t.SetTitle(fmt.Sprintf("Suite Results (%s, run %s)", formatDuration(s.Duration), rep.RunID))
	t.AppendHeader(table.Row{"Suite", "Status", "Exit", "Duration", "Note"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Suite", WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Exit", Align: text.AlignRight},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Note", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, res := range rep.Results() {
		note := res.SkipReason
		if res.Signal != "" {
			note = "terminated by " + res.Signal
		}
		exit := fmt.Sprint(res.ExitCode)
		if res.Skipped {
			exit = "-"
		}
		t.AppendRow(table.Row{res.Suite, statusText(res.Status), exit, formatDuration(res.Duration), note})
	}
	for _, name := range rep.NotRun() {
		t.AppendRow(table.Row{name, "not run", "-", "-", "run interrupted"})
	}

	t.AppendFooter(table.Row{
		"Total",
		fmt.Sprintf("%d passed, %d failed, %d skipped, %d not run", s.Passed, s.Failed, s.Skipped, s.NotRun),
		s.ExitCode,
		formatDuration(s.Duration),
		"",
	})
	t.Render()
	return nil
}

// RenderList renders the catalog as a table.
func (r *TableRenderer) RenderList(entries []ListEntry) error {
	t := r.newWriter()
	t.AppendHeader(table.Row{"Suite", "Enabled", "Requires", "Targets", "Command"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Command", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})
	for _, e := range entries {
		command := strings.Join(e.Command, " ")
		if e.Problem != "" {
			command += " (" + e.Problem + ")"
		}
		t.AppendRow(table.Row{
			e.Suite.Name,
			yesNo(e.Suite.Enabled),
			strings.Join(e.Suite.Requires, ","),
			strings.Join(e.Suite.Targets, ","),
			command,
		})
	}
	t.Render()
	return nil
}

// RenderProbes renders probe results as a table.
func (r *TableRenderer) RenderProbes(results []feature.Result) error {
	t := r.newWriter()
	t.AppendHeader(table.Row{"Feature", "Availability", "Source", "Error"})
	for _, res := range results {
		errText := ""
		if res.Err != nil {
			errText = res.Err.Error()
		}
		t.AppendRow(table.Row{res.Tag, res.Availability.String(), res.Source, errText})
	}
	t.Render()
	return nil
}

func statusText(s report.Status) string {
	if s == "" {
		return "unknown"
	}
	return string(s)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
