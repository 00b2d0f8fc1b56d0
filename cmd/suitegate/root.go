package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "suitegate",
		Short:         "Suitegate runs grouped test suites in isolated processes with feature gating",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	persistent := cmd.PersistentFlags()
	persistent.String("catalog", "", "suite catalog file (default: suites.yml, suites.yaml or suites.hcl)")
	persistent.String("format", "pretty", "output format (pretty|table|json)")
	persistent.BoolP("verbose", "v", false, "stream suite output and log at debug level")
	persistent.Bool("dry-run", false, "resolve and gate suites without executing them")
	persistent.String("log-level", "", "log level (debug|info|warn|error)")
	persistent.String("log-format", "", "log format (console|json)")
	persistent.String("results-dir", "", "directory suites write <suite>.xml results into")
	persistent.String("metrics-file", "", "write Prometheus textfile metrics to this path")
	persistent.StringArray("assume-feature", nil, "pin a feature as tag=available|unavailable (repeatable)")
	persistent.Int("num-threads", 0, "worker thread count handed to suites (0 = runtime default)")
	persistent.Bool("thread-binding", false, "pin suite worker threads to cores")
	persistent.StringArray("module-path", nil, "extra module search path, highest priority first (repeatable)")
	persistent.StringArray("library-path", nil, "extra library search path, highest priority first (repeatable)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newProbeCmd())

	return cmd
}
