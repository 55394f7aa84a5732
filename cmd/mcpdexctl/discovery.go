package main

import (
	"github.com/spf13/cobra"
)

func newDiscoveryCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discovery",
		Short: "Inspect and trigger discovery",
	}

	cmd.AddCommand(
		newDiscoveryRefreshCmd(opts),
		newDiscoveryStatusCmd(opts),
	)
	return cmd
}

func newDiscoveryRefreshCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Run a discovery cycle and report the outcome",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newAPIClient(opts)
			summary, err := client.refresh(cmd.Context())
			if err != nil {
				return err
			}
			return printRefresh(summary, opts.jsonOutput)
		},
	}
}

func newDiscoveryStatusCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show discovery configuration and last cycle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newAPIClient(opts)
			report, err := client.status(cmd.Context())
			if err != nil {
				return err
			}
			return printStatus(report, opts.jsonOutput)
		},
	}
}
