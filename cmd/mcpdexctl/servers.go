package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"mcpdex/internal/domain"
	"mcpdex/internal/infra/catalog"
)

type serverArgs struct {
	endpoint    string
	displayName string
	arguments   []string
}

func newServersCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "servers",
		Short: "Manage tool server descriptors",
	}

	cmd.AddCommand(
		newServersListCmd(opts),
		newServersGetCmd(opts),
		newServersCreateCmd(opts),
		newServersUpdateCmd(opts),
		newServersDeleteCmd(opts),
		newServersImportCmd(opts),
	)
	return cmd
}

func newServersListCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the merged catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newAPIClient(opts)
			view, err := client.catalog(cmd.Context())
			if err != nil {
				return err
			}
			return printCatalog(view, opts.jsonOutput)
		},
	}
}

func newServersGetCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Show one server descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts)
			server, err := client.getServer(cmd.Context(), args[0])
			if err != nil {
				if status, ok := apiErrorStatus(err); ok && status == http.StatusNotFound {
					return exitWithMessage(2, err.Error())
				}
				return err
			}
			return printServer(server, opts.jsonOutput)
		},
	}
}

func newServersCreateCmd(opts *cliOptions) *cobra.Command {
	args := &serverArgs{}
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a manual server entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			server, err := buildServer(positional[0], args)
			if err != nil {
				return err
			}
			client := newAPIClient(opts)
			created, err := client.createServer(cmd.Context(), server)
			if err != nil {
				return err
			}
			return printServer(created, opts.jsonOutput)
		},
	}
	bindServerFlags(cmd, args)
	_ = cmd.MarkFlagRequired("endpoint")
	return cmd
}

func newServersUpdateCmd(opts *cliOptions) *cobra.Command {
	args := &serverArgs{}
	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Update a manual server entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			server, err := buildServer(positional[0], args)
			if err != nil {
				return err
			}
			client := newAPIClient(opts)
			updated, err := client.updateServer(cmd.Context(), positional[0], server)
			if err != nil {
				if status, ok := apiErrorStatus(err); ok && status == http.StatusNotFound {
					return exitWithMessage(2, err.Error())
				}
				return err
			}
			return printServer(updated, opts.jsonOutput)
		},
	}
	bindServerFlags(cmd, args)
	_ = cmd.MarkFlagRequired("endpoint")
	return cmd
}

func newServersDeleteCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a manual server entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts)
			if err := client.deleteServer(cmd.Context(), args[0]); err != nil {
				if status, ok := apiErrorStatus(err); ok && status == http.StatusNotFound {
					return exitWithMessage(2, err.Error())
				}
				return err
			}
			if opts.jsonOutput {
				return writeJSON(map[string]any{"deleted": args[0]})
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	}
}

func newServersImportCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <seed-file>",
		Short: "Import manual entries from a TOML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := catalog.ReadSeedFile(args[0])
			if err != nil {
				return err
			}

			client := newAPIClient(opts)
			summary := importSummary{Path: result.Path}
			for _, issue := range result.Issues {
				summary.Invalid = append(summary.Invalid, fmt.Sprintf("%s: %s", issue.Name, issue.Message))
			}
			for _, server := range result.Servers {
				if _, err := client.createServer(cmd.Context(), server); err != nil {
					if status, ok := apiErrorStatus(err); ok && status == http.StatusConflict {
						summary.Skipped = append(summary.Skipped, server.Name)
						continue
					}
					return fmt.Errorf("import %q: %w", server.Name, err)
				}
				summary.Created = append(summary.Created, server.Name)
			}
			return printImportSummary(summary, opts.jsonOutput)
		},
	}
}

func bindServerFlags(cmd *cobra.Command, args *serverArgs) {
	cmd.Flags().StringVar(&args.endpoint, "endpoint", "", "server endpoint URL")
	cmd.Flags().StringVar(&args.displayName, "display-name", "", "human readable name")
	cmd.Flags().StringArrayVar(&args.arguments, "arg", nil, "launch argument key=value (repeatable)")
}

func buildServer(name string, args *serverArgs) (domain.ToolServer, error) {
	arguments, err := parseArguments(args.arguments)
	if err != nil {
		return domain.ToolServer{}, err
	}
	return domain.ToolServer{
		Name:        name,
		DisplayName: args.displayName,
		Endpoint:    args.endpoint,
		Arguments:   arguments,
	}, nil
}

func parseArguments(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	arguments := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --arg %q (want key=value)", pair)
		}
		arguments[strings.TrimSpace(key)] = value
	}
	return arguments, nil
}
