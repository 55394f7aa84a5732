package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"mcpdex/internal/domain"
)

type cliOptions struct {
	addr       string
	timeout    time.Duration
	jsonOutput bool
}

func newRootCommand() *cobra.Command {
	opts := cliOptions{
		addr:    "http://" + domain.DefaultListenAddress,
		timeout: 30 * time.Second,
	}

	root := &cobra.Command{
		Use:           "mcpdexctl",
		Short:         "CLI client for the mcpdex directory daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			applyRootFlagBindings(cmd, &opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.addr, "addr", opts.addr, "base URL of the directory daemon API")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", opts.timeout, "request timeout")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output JSON")

	root.AddCommand(
		newServersCmd(&opts),
		newDiscoveryCmd(&opts),
		newDaemonCmd(&opts),
	)

	return root
}

func applyRootFlagBindings(cmd *cobra.Command, opts *cliOptions) {
	flags := cmd.Flags()
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "addr":
			opts.addr, _ = flags.GetString("addr")
		case "timeout":
			opts.timeout, _ = flags.GetDuration("timeout")
		case "json":
			opts.jsonOutput, _ = flags.GetBool("json")
		}
	})
}
