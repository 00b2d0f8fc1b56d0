package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/bgricker/suitegate/internal/catalog"
	"github.com/bgricker/suitegate/internal/config"
	"github.com/bgricker/suitegate/internal/environment"
	"github.com/bgricker/suitegate/internal/metrics"
	"github.com/bgricker/suitegate/internal/orchestrator"
	"github.com/bgricker/suitegate/internal/output"
	"github.com/bgricker/suitegate/internal/runner"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [suite...]",
		Short: "Run the named suites, or every default-enabled suite",
		RunE:  runExecute,
	}
}

func runExecute(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.log.Sync() }()
	cfg := s.cfg

	env, err := config.NewEnvironment(cfg.Environment)
	if err != nil {
		return err
	}
	renderer, err := output.New(cfg.Format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	rec := metrics.New(s.log)
	prober, err := s.prober(rec.RecordFeature)
	if err != nil {
		return err
	}

	suiteRunner := runner.New(runner.Options{
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
		Verbose:    cfg.Verbose,
		DryRun:     cfg.DryRun,
		TailLines:  cfg.TailLines,
		Logger:     s.log,
		Gate:       prober,
		ResultsDir: cfg.ResultsDir,
	})

	opts := orchestrator.Options{
		Logger:  s.log,
		Metrics: rec,
		BaseEnv: environment.BaseEnvironment(os.Environ(), env.Passthrough()),
	}
	if cfg.Format == output.FormatPretty {
		progress := output.NewProgress(cmd.OutOrStdout())
		opts.OnSuiteStart = progress.SuiteStarted
		opts.OnSuiteDone = progress.SuiteDone
	}

	o := orchestrator.New(s.catalog, suiteRunner, opts)
	rep, runErr := o.RunAll(cmd.Context(), catalog.SelectNames(args...), env)
	if rep == nil {
		return runErr
	}

	if err := renderer.RenderResults(rep); err != nil {
		return err
	}
	if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	return orchestrator.Failure(rep)
}
