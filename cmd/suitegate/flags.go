package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bgricker/suitegate/internal/config"
)

func gatherFlags(cmd *cobra.Command) (config.FlagValues, error) {
	flags := cmd.Flags()
	var values config.FlagValues

	stringFlags := []struct {
		name string
		dst  *config.StringFlag
	}{
		{"catalog", &values.Catalog},
		{"format", &values.Format},
		{"log-level", &values.LogLevel},
		{"log-format", &values.LogFormat},
		{"results-dir", &values.ResultsDir},
		{"metrics-file", &values.MetricsFile},
	}
	for _, f := range stringFlags {
		if !flags.Changed(f.name) {
			continue
		}
		v, err := flags.GetString(f.name)
		if err != nil {
			return values, fmt.Errorf("parse --%s: %w", f.name, err)
		}
		*f.dst = config.StringFlag{Value: v, Set: true}
	}

	sliceFlags := []struct {
		name string
		dst  *config.SliceFlag
	}{
		{"assume-feature", &values.AssumeFeatures},
		{"module-path", &values.ModulePaths},
		{"library-path", &values.LibraryPaths},
	}
	for _, f := range sliceFlags {
		if !flags.Changed(f.name) {
			continue
		}
		v, err := flags.GetStringArray(f.name)
		if err != nil {
			return values, fmt.Errorf("parse --%s: %w", f.name, err)
		}
		*f.dst = config.SliceFlag{Values: append([]string{}, v...)}
	}

	boolFlags := []struct {
		name string
		dst  *config.BoolFlag
	}{
		{"dry-run", &values.DryRun},
		{"verbose", &values.Verbose},
		{"thread-binding", &values.BindThreads},
	}
	for _, f := range boolFlags {
		if !flags.Changed(f.name) {
			continue
		}
		v, err := flags.GetBool(f.name)
		if err != nil {
			return values, fmt.Errorf("parse --%s: %w", f.name, err)
		}
		*f.dst = config.BoolFlag{Value: v, Set: true}
	}

	if flags.Changed("num-threads") {
		v, err := flags.GetInt("num-threads")
		if err != nil {
			return values, fmt.Errorf("parse --num-threads: %w", err)
		}
		values.NumThreads = config.IntFlag{Value: v, Set: true}
	}

	return values, nil
}
