package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bgricker/suitegate/internal/catalog"
	"github.com/bgricker/suitegate/internal/output"
	"github.com/bgricker/suitegate/internal/runner"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog suites in execution order",
		RunE:  runList,
	}
	cmd.Flags().StringArray("match", nil, "only list suites whose name, description or features match (substring or /regex/)")
	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.log.Sync() }()

	raw, err := cmd.Flags().GetStringArray("match")
	if err != nil {
		return fmt.Errorf("parse --match: %w", err)
	}
	patterns, err := catalog.Compile(raw)
	if err != nil {
		return err
	}

	suites := catalog.Filter(s.catalog.Suites(), patterns)
	if len(suites) == 0 && s.cfg.Format != output.FormatJSON {
		fmt.Fprintln(cmd.OutOrStdout(), "No matching suites")
		return nil
	}

	entries := make([]output.ListEntry, 0, len(suites))
	for _, suite := range suites {
		dir := s.catalog.WorkingDirectory(suite)
		entry := output.ListEntry{
			Suite:            suite,
			Command:          runner.Command(suite),
			WorkingDirectory: dir,
		}
		if err := catalog.ResolveCommand(suite, dir); err != nil {
			entry.Problem = fmt.Sprintf("command not runnable: %v", err)
		}
		entries = append(entries, entry)
	}

	renderer, err := output.New(s.cfg.Format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return renderer.RenderList(entries)
}
