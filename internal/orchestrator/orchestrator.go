// Package orchestrator drives a run: it resolves the selection, provisions
// the child environment once, and executes suites strictly one at a time in
// resolved order.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bgricker/suitegate/internal/catalog"
	"github.com/bgricker/suitegate/internal/config"
	"github.com/bgricker/suitegate/internal/environment"
	"github.com/bgricker/suitegate/internal/exitcodes"
	"github.com/bgricker/suitegate/internal/metrics"
	"github.com/bgricker/suitegate/internal/report"
)

// EnvRunID carries the run identifier into every suite's environment.
const EnvRunID = "SUITE_RUN_ID"

// State is the orchestrator's position in a run.
type State int

const (
	Initializing State = iota
	Provisioning
	Executing
	Aggregating
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Provisioning:
		return "provisioning"
	case Executing:
		return "executing"
	case Aggregating:
		return "aggregating"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Resolver turns a selection into the ordered suites to run.
type Resolver interface {
	Resolve(sel catalog.Selection) ([]catalog.Suite, error)
	WorkingDirectory(s catalog.Suite) string
}

// SuiteRunner executes one suite.
type SuiteRunner interface {
	Run(ctx context.Context, s catalog.Suite, dir string, env map[string]string) (report.SuiteResult, error)
}

// Options configure an Orchestrator.
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Recorder
	// BaseEnv is the environment provisioning starts from. It is never mutated.
	BaseEnv map[string]string
	// RunID defaults to a random UUID.
	RunID string
	Now   func() time.Time

	OnSuiteStart func(index, total int, s catalog.Suite)
	OnSuiteDone  func(index, total int, res report.SuiteResult)
}

// ErrIncomplete is returned when a run is cancelled before every resolved
// suite has a result.
var ErrIncomplete = errors.New("run incomplete")

// FailureError lists the suites of a run that did not pass.
type FailureError struct {
	FirstFailed string
	Failed      []string
}

func (e *FailureError) Error() string {
	if len(e.Failed) <= 1 {
		return fmt.Sprintf("suite %q failed", e.FirstFailed)
	}
	return fmt.Sprintf("%d suites failed, first %q", len(e.Failed), e.FirstFailed)
}

// IsFailureError checks if the error is or wraps a FailureError.
func IsFailureError(err error) bool {
	var failErr *FailureError
	return err != nil && errors.As(err, &failErr)
}

// Failure returns a *FailureError when rep has failed suites, nil otherwise.
func Failure(rep *report.RunReport) error {
	if rep == nil {
		return nil
	}
	failed := rep.Failed()
	if len(failed) == 0 {
		return nil
	}
	return &FailureError{FirstFailed: failed[0], Failed: failed}
}

// FinalExitCode is Success only when every executed suite exited 0. Skipped
// suites never count; an interrupted run reports Interrupted.
func FinalExitCode(rep *report.RunReport) int {
	switch {
	case rep == nil:
		return exitcodes.RuntimeErr
	case rep.Incomplete():
		return exitcodes.Interrupted
	default:
		return rep.ExitCode()
	}
}

// Orchestrator runs suites sequentially. A single Orchestrator drives one run
// at a time.
type Orchestrator struct {
	resolver Resolver
	runner   SuiteRunner
	opts     Options
	log      *zap.Logger

	state   State
	current string
}

// New creates an orchestrator.
func New(resolver Resolver, runner SuiteRunner, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	return &Orchestrator{
		resolver: resolver,
		runner:   runner,
		opts:     opts,
		log:      opts.Logger.With(zap.String("run_id", opts.RunID)),
		state:    Initializing,
	}
}

// RunID identifies the run in reports, logs, metrics and child environments.
func (o *Orchestrator) RunID() string { return o.opts.RunID }

// State returns the current state.
func (o *Orchestrator) State() State { return o.state }

// Current names the suite being executed, empty outside Executing.
func (o *Orchestrator) Current() string { return o.current }

func (o *Orchestrator) transition(to State, fields ...zap.Field) {
	o.log.Debug("state transition", append([]zap.Field{
		zap.Stringer("from", o.state),
		zap.Stringer("to", to),
	}, fields...)...)
	o.state = to
}

// RunAll executes the selected suites. Fatal errors (an invalid environment,
// unknown suite names) return no report and run nothing. Cancellation returns
// the partial report, marked incomplete, with ErrIncomplete.
func (o *Orchestrator) RunAll(ctx context.Context, sel catalog.Selection, env config.Environment) (*report.RunReport, error) {
	o.state = Initializing
	if !env.Valid() {
		o.transition(Aborted)
		return nil, &config.ConfigError{Field: "environment", Reason: "not built with config.NewEnvironment"}
	}

	suites, err := o.resolver.Resolve(sel)
	if err != nil {
		o.transition(Aborted)
		o.log.Error("suite resolution failed", zap.Stringer("selection", sel), zap.Error(err))
		return nil, err
	}

	rep := report.New(o.opts.RunID, o.opts.Now())
	o.log.Info("run started", zap.Stringer("selection", sel), zap.Int("suites", len(suites)))

	o.transition(Provisioning)
	childEnv := environment.Provision(o.opts.BaseEnv, env)
	childEnv[EnvRunID] = o.opts.RunID
	threading := env.Threading()
	o.log.Debug("environment provisioned",
		zap.Strings("module_paths", env.ModulePaths()),
		zap.Strings("library_paths", env.LibraryPaths()),
		zap.Bool("bind_threads", threading.BindThreads),
		zap.Int("num_threads", threading.NumThreads))

	for i, s := range suites {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return o.abort(rep, suites[i:], ctxErr)
		}

		o.transition(Executing, zap.String("suite", s.Name), zap.Int("index", i))
		o.current = s.Name
		if o.opts.OnSuiteStart != nil {
			o.opts.OnSuiteStart(i, len(suites), s)
		}

		res, err := o.runner.Run(ctx, s, o.resolver.WorkingDirectory(s), childEnv)
		if res.Suite == "" {
			res.Suite = s.Name
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				remaining := suites[i:]
				if res.Status != "" {
					o.record(rep, i, len(suites), res)
					remaining = suites[i+1:]
				}
				return o.abort(rep, remaining, ctxErr)
			}
			o.log.Error("suite runner error", zap.String("suite", s.Name), zap.Error(err))
			if res.ExitCode == 0 {
				res.ExitCode = exitcodes.TestFailure
			}
			if res.Stderr == "" {
				res.Stderr = err.Error()
			}
			res.Skipped = false
			res.Finish()
		}
		o.record(rep, i, len(suites), res)
	}
	o.current = ""
	if ctxErr := ctx.Err(); ctxErr != nil {
		return o.abort(rep, nil, ctxErr)
	}

	o.transition(Aggregating)
	rep.Complete(o.opts.Now())
	o.opts.Metrics.RecordRun(rep)
	summary := rep.Summary()
	o.log.Info("run finished",
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("duration", summary.Duration),
		zap.Int("exit_code", summary.ExitCode))
	o.transition(Done)
	return rep, nil
}

func (o *Orchestrator) record(rep *report.RunReport, i, total int, res report.SuiteResult) {
	if err := rep.Append(res); err != nil {
		o.log.Error("dropping result", zap.String("suite", res.Suite), zap.Error(err))
		return
	}
	o.opts.Metrics.RecordSuite(res)
	if o.opts.OnSuiteDone != nil {
		o.opts.OnSuiteDone(i, total, res)
	}
}

func (o *Orchestrator) abort(rep *report.RunReport, remaining []catalog.Suite, cause error) (*report.RunReport, error) {
	names := make([]string, 0, len(remaining))
	for _, s := range remaining {
		names = append(names, s.Name)
	}
	o.current = ""
	rep.Abort(o.opts.Now(), names)
	o.opts.Metrics.RecordRun(rep)
	o.log.Warn("run interrupted",
		zap.Int("completed", len(rep.Results())),
		zap.Strings("not_run", names),
		zap.Error(cause))
	o.transition(Aborted)
	return rep, fmt.Errorf("%w: %w", ErrIncomplete, cause)
}
