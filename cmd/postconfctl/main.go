package main

import (
	"fmt"
	"os"

	"github.com/danmuck/postconfctl/internal/config"
	"github.com/danmuck/postconfctl/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "postconfctl",
		Short:         "Idempotently manage Postfix main.cf parameters through postconf",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.ConfigureRuntime()
			if opts.debug {
				logging.SetLevel(zerolog.DebugLevel)
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.DefaultPath, "Config file path")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	flags.StringVar(&opts.host, "host", "", "Reconcile a remote host over ssh (user@host[:port])")
	flags.StringVar(&opts.journalPath, "journal", "", "SQLite change journal path (overrides config)")
	flags.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this textfile after the run")

	root.AddCommand(
		newApplyCmd(opts),
		newGetCmd(opts),
		newServeCmd(opts),
		newHistoryCmd(opts),
		newConfigCmd(opts),
	)
	return root
}
