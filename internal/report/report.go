// Package report holds per-suite outcomes and the run report they aggregate
// into.
package report

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/bgricker/suitegate/internal/exitcodes"
)

// Status is the rendered outcome of one suite.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// SuiteResult captures the outcome of a single suite.
type SuiteResult struct {
	Suite            string        `json:"suite"`
	Status           Status        `json:"status"`
	ExitCode         int           `json:"exit_code"`
	Skipped          bool          `json:"skipped"`
	SkipReason       string        `json:"skip_reason,omitempty"`
	Signal           string        `json:"signal,omitempty"`
	Command          []string      `json:"command,omitempty"`
	WorkingDirectory string        `json:"working_directory,omitempty"`
	ResultsFile      string        `json:"results_file,omitempty"`
	Duration         time.Duration `json:"-"`
	DurationMS       int64         `json:"duration_ms"`
	Stdout           string        `json:"stdout,omitempty"`
	Stderr           string        `json:"stderr,omitempty"`
	DryRun           bool          `json:"dry_run,omitempty"`
}

// Skip builds the result of a suite that was not executed.
func Skip(suite, reason string) SuiteResult {
	return SuiteResult{Suite: suite, Status: StatusSkipped, Skipped: true, SkipReason: reason}
}

// Failed reports whether the suite ran and did not exit cleanly.
func (r SuiteResult) Failed() bool {
	return !r.Skipped && r.ExitCode != 0
}

// Finish sets Status and DurationMS from ExitCode, Skipped and Duration.
func (r *SuiteResult) Finish() {
	r.DurationMS = r.Duration.Milliseconds()
	switch {
	case r.Skipped:
		r.Status = StatusSkipped
	case r.ExitCode != 0:
		r.Status = StatusFailed
	default:
		r.Status = StatusPassed
	}
}

// Summary aggregates a run's results.
type Summary struct {
	Total      int           `json:"total"`
	Passed     int           `json:"passed"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	NotRun     int           `json:"not_run"`
	Duration   time.Duration `json:"-"`
	DurationMS int64         `json:"duration_ms"`
	ExitCode   int           `json:"exit_code"`
}

// ErrSealed is returned when appending to a report that was already closed.
var ErrSealed = errors.New("run report is sealed")

// RunReport is the ordered, append-only record of one run. It is written by a
// single goroutine.
type RunReport struct {
	RunID    string
	Started  time.Time
	Finished time.Time

	results    []SuiteResult
	notRun     []string
	incomplete bool
	sealed     bool
}

// New starts an empty report.
func New(runID string, started time.Time) *RunReport {
	return &RunReport{RunID: runID, Started: started}
}

// Append records the next result in execution order.
func (r *RunReport) Append(res SuiteResult) error {
	if r.sealed {
		return ErrSealed
	}
	r.results = append(r.results, res)
	return nil
}

// Complete closes the report after every resolved suite has a result.
func (r *RunReport) Complete(finished time.Time) {
	if r.sealed {
		return
	}
	r.Finished = finished
	r.sealed = true
}

// Abort closes the report early. notRun lists the suites that were resolved
// but never started.
func (r *RunReport) Abort(finished time.Time, notRun []string) {
	if r.sealed {
		return
	}
	r.notRun = append([]string(nil), notRun...)
	r.incomplete = true
	r.Finished = finished
	r.sealed = true
}

// Sealed reports whether Complete or Abort has been called.
func (r *RunReport) Sealed() bool { return r.sealed }

// Incomplete reports whether the run was cut short.
func (r *RunReport) Incomplete() bool { return r.incomplete }

// Results returns a copy of the recorded results in execution order.
func (r *RunReport) Results() []SuiteResult {
	out := make([]SuiteResult, len(r.results))
	copy(out, r.results)
	return out
}

// NotRun lists suites an aborted run never started.
func (r *RunReport) NotRun() []string { return append([]string(nil), r.notRun...) }

// Failed lists the names of failed suites in execution order.
func (r *RunReport) Failed() []string {
	var out []string
	for _, res := range r.results {
		if res.Failed() {
			out = append(out, res.Suite)
		}
	}
	return out
}

// ExitCode is Success iff every executed suite exited 0. Skipped suites never
// count as failures.
func (r *RunReport) ExitCode() int {
	for _, res := range r.results {
		if res.Failed() {
			return exitcodes.TestFailure
		}
	}
	return exitcodes.Success
}

// Duration is the wall time of the run, or the time elapsed so far.
func (r *RunReport) Duration() time.Duration {
	if r.Finished.IsZero() || r.Started.IsZero() {
		var d time.Duration
		for _, res := range r.results {
			d += res.Duration
		}
		return d
	}
	return r.Finished.Sub(r.Started)
}

// Summary tallies the results.
func (r *RunReport) Summary() Summary {
	s := Summary{
		Total:    len(r.results) + len(r.notRun),
		NotRun:   len(r.notRun),
		Duration: r.Duration(),
		ExitCode: r.ExitCode(),
	}
	for _, res := range r.results {
		switch {
		case res.Skipped:
			s.Skipped++
		case res.Failed():
			s.Failed++
		default:
			s.Passed++
		}
	}
	s.DurationMS = s.Duration.Milliseconds()
	return s
}

type jsonReport struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Incomplete bool          `json:"incomplete"`
	Results    []SuiteResult `json:"results"`
	NotRun     []string      `json:"not_run,omitempty"`
	Summary    Summary       `json:"summary"`
}

// MarshalJSON emits the stable report schema.
func (r *RunReport) MarshalJSON() ([]byte, error) {
	doc := jsonReport{
		RunID:      r.RunID,
		StartedAt:  r.Started,
		Incomplete: r.incomplete,
		Results:    r.Results(),
		NotRun:     r.NotRun(),
		Summary:    r.Summary(),
	}
	if !r.Finished.IsZero() {
		finished := r.Finished
		doc.FinishedAt = &finished
	}
	return json.Marshal(doc)
}
