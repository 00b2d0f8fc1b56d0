// Package runner executes one suite in its own child process.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bgricker/suitegate/internal/catalog"
	"github.com/bgricker/suitegate/internal/environment"
	"github.com/bgricker/suitegate/internal/feature"
	"github.com/bgricker/suitegate/internal/report"
)

// Variables the runner adds to every child environment.
const (
	EnvSuiteName   = "SUITE_NAME"
	EnvTargets     = "TEST_TARGETS"
	EnvResultsFile = "SUITE_RESULTS_FILE"
)

const (
	exitNotFound      = 127
	exitCannotExecute = 126
)

// Gate answers feature availability for suite gating.
type Gate interface {
	IsAvailable(ctx context.Context, tag string) feature.Result
}

// Options configure how the runner executes suites.
type Options struct {
	Stdout    io.Writer
	Stderr    io.Writer
	Verbose   bool
	DryRun    bool
	TailLines int
	Now       func() time.Time
	Logger    *zap.Logger
	// Gate is consulted for every required tag. Nil treats every tag as unknown.
	Gate Gate
	// ResultsDir, when set, receives one <suite>.xml per suite through
	// SUITE_RESULTS_FILE.
	ResultsDir string
	// KillGrace is how long a cancelled suite gets between SIGTERM and SIGKILL.
	KillGrace time.Duration
}

// Runner executes suites one at a time.
type Runner struct {
	opts Options
}

// New creates a runner with the supplied options.
func New(opts Options) *Runner {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if opts.TailLines <= 0 {
		opts.TailLines = 20
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.KillGrace <= 0 {
		opts.KillGrace = 5 * time.Second
	}
	return &Runner{opts: opts}
}

// ExecutionError reports a suite that was interrupted before it could finish.
type ExecutionError struct {
	Suite    string
	ExitCode int
	Signal   string
	Err      error
}

func (e *ExecutionError) Error() string {
	msg := fmt.Sprintf("suite %q interrupted", e.Suite)
	if e.Signal != "" {
		msg += " by " + e.Signal
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// IsExecutionError checks if the error is or wraps an ExecutionError.
func IsExecutionError(err error) bool {
	var execErr *ExecutionError
	return err != nil && errors.As(err, &execErr)
}

// Run executes s in dir with exactly env as its environment, plus the suite's
// own overlay and the runner variables. A failing suite is a result, not an
// error; the error is non-nil only when ctx was cancelled.
func (r *Runner) Run(ctx context.Context, s catalog.Suite, dir string, env map[string]string) (report.SuiteResult, error) {
	log := r.opts.Logger.With(zap.String("suite", s.Name))
	argv := Command(s)
	result := report.SuiteResult{
		Suite:            s.Name,
		Command:          argv,
		WorkingDirectory: dir,
	}

	tag, reason, skip := r.gate(ctx, s)
	// A feature check cut short by cancellation says nothing about the feature.
	if err := ctx.Err(); err != nil {
		return result, &ExecutionError{Suite: s.Name, Err: err}
	}
	if skip {
		log.Info("suite skipped", zap.String("feature", tag), zap.String("reason", reason))
		result = report.Skip(s.Name, reason)
		result.Command = argv
		result.WorkingDirectory = dir
		return result, nil
	}

	if r.opts.DryRun {
		log.Info("suite skipped", zap.String("reason", "dry run"), zap.Strings("command", argv))
		result.Skipped = true
		result.SkipReason = "dry run"
		result.DryRun = true
		result.Finish()
		return result, nil
	}

	start := r.opts.Now()
	err := r.exec(ctx, s, argv, dir, env, &result)
	result.Duration = r.opts.Now().Sub(start)
	result.Stdout = tailLines(result.Stdout, r.opts.TailLines)
	result.Stderr = tailLines(result.Stderr, r.opts.TailLines)
	result.Finish()

	fields := []zap.Field{
		zap.Int("exit_code", result.ExitCode),
		zap.Duration("duration", result.Duration),
	}
	if result.Signal != "" {
		fields = append(fields, zap.String("signal", result.Signal))
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		log.Warn("suite interrupted", fields...)
		return result, &ExecutionError{Suite: s.Name, ExitCode: result.ExitCode, Signal: result.Signal, Err: ctxErr}
	}
	if err != nil {
		log.Warn("suite failed", append(fields, zap.Error(err))...)
	} else {
		log.Info("suite passed", fields...)
	}
	return result, nil
}

// gate returns the first required tag that is not available.
func (r *Runner) gate(ctx context.Context, s catalog.Suite) (string, string, bool) {
	for _, tag := range s.Requires {
		var res feature.Result
		if r.opts.Gate == nil {
			res = feature.Result{Tag: tag, Availability: feature.Unknown, Err: feature.ErrNoProbe}
		} else {
			res = r.opts.Gate.IsAvailable(ctx, tag)
		}
		if res.Availability != feature.Available {
			return tag, res.Reason(), true
		}
	}
	return "", "", false
}

func (r *Runner) exec(ctx context.Context, s catalog.Suite, argv []string, dir string, env map[string]string, result *report.SuiteResult) error {
	if err := checkWorkingDirectory(dir); err != nil {
		result.Stderr = err.Error()
		result.ExitCode = exitNotFound
		return err
	}

	overlay := map[string]string{EnvSuiteName: s.Name}
	if targets := serializeTargets(s.Targets); targets != "" {
		overlay[EnvTargets] = targets
	}
	if r.opts.ResultsDir != "" {
		if err := os.MkdirAll(r.opts.ResultsDir, 0o755); err != nil {
			result.Stderr = fmt.Sprintf("create results directory: %v", err)
			result.ExitCode = exitCannotExecute
			return err
		}
		result.ResultsFile = filepath.Join(r.opts.ResultsDir, s.Name+".xml")
		overlay[EnvResultsFile] = result.ResultsFile
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = environment.List(environment.Merge(env, s.Env, overlay))
	configureProcess(cmd, r.opts.KillGrace)

	var stdoutBuf, stderrBuf strings.Builder
	if r.opts.Verbose {
		cmd.Stdout = io.MultiWriter(r.opts.Stdout, &stdoutBuf)
		cmd.Stderr = io.MultiWriter(r.opts.Stderr, &stderrBuf)
	} else {
		cmd.Stdout = &stdoutBuf
		cmd.Stderr = &stderrBuf
	}

	r.opts.Logger.Debug("suite started",
		zap.String("suite", s.Name),
		zap.Strings("command", argv),
		zap.String("dir", dir))

	err := cmd.Start()
	if err != nil {
		result.Stderr = err.Error()
		result.ExitCode = startFailureCode(err)
		return err
	}
	err = cmd.Wait()
	sweepProcessGroup(cmd)

	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()
	result.ExitCode, result.Signal = exitStatus(err)
	return err
}

// Command is the argv a suite is invoked with: its command plus, when it
// declares targets, a single <flag>=<targets> argument.
func Command(s catalog.Suite) []string {
	argv := append([]string(nil), s.Command...)
	if targets := serializeTargets(s.Targets); targets != "" {
		flag := s.TargetFlag
		if flag == "" {
			flag = catalog.DefaultTargetFlag
		}
		argv = append(argv, flag+"="+targets)
	}
	return argv
}

// serializeTargets dedupes and sorts targets and joins them with ";".
func serializeTargets(targets []string) string {
	if len(targets) == 0 {
		return ""
	}
	seen := make(map[string]struct{}, len(targets))
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return strings.Join(out, ";")
}

func checkWorkingDirectory(dir string) error {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("working directory %q not found", dir)
		}
		return fmt.Errorf("stat working directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("working directory %q is not a directory", dir)
	}
	return nil
}

func startFailureCode(err error) int {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return exitNotFound
	}
	return exitCannotExecute
}

// exitStatus maps a Wait error onto a nonzero code; a signal-terminated child
// reports 128+signal.
func exitStatus(err error) (int, string) {
	if err == nil {
		return 0, ""
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code, name, ok := signalStatus(exitErr); ok {
			return code, name
		}
		if code := exitErr.ExitCode(); code > 0 {
			return code, ""
		}
	}
	return 1, ""
}

func tailLines(input string, maxLines int) string {
	if input == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(input, "\n"), "\n")
	if len(lines) <= maxLines {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-maxLines:], "\n")
}
