package main

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/bgricker/suitegate/internal/feature"
	"github.com/bgricker/suitegate/internal/metrics"
	"github.com/bgricker/suitegate/internal/output"
)

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe [feature...]",
		Short: "Probe feature availability without running suites",
		RunE:  runProbe,
	}
}

func runProbe(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.log.Sync() }()

	rec := metrics.New(s.log)
	prober, err := s.prober(rec.RecordFeature)
	if err != nil {
		return err
	}

	tags := args
	if len(tags) == 0 {
		tags = probeTags(prober.Tags(), s.catalog.RequiredFeatures())
	}

	results := make([]feature.Result, 0, len(tags))
	for _, tag := range tags {
		results = append(results, prober.IsAvailable(cmd.Context(), tag))
	}

	renderer, err := output.New(s.cfg.Format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := renderer.RenderProbes(results); err != nil {
		return err
	}
	return rec.WriteTextfile(s.cfg.MetricsFile)
}

// probeTags is every declared or required tag, sorted and deduplicated.
func probeTags(declared, required []string) []string {
	seen := make(map[string]struct{}, len(declared)+len(required))
	var out []string
	for _, list := range [][]string{declared, required} {
		for _, tag := range list {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	sort.Strings(out)
	return out
}
