package main

import (
	"context"

	"github.com/spf13/cobra"

	config "github.com/tigerroll/processtracker/pkg/tracker/core/config"
	"github.com/tigerroll/processtracker/pkg/tracker/core/config/bootstrap"
)

// cli holds the flags shared by every command.
type cli struct {
	loadOptions config.LoadOptions
}

// run executes fn against a started tracker application.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, comps bootstrap.Components) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return bootstrap.Run(ctx, c.loadOptions, fn)
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "process-tracker",
		Short: "Track data integration processes, their runs and extracts",
		Long: `process-tracker manages the metadata store used to track data integration
processes. It initializes the store and maintains the lookup tables (actors,
tools, sources, statuses, error types and the like) the tracker relies on.

Connection settings are read from the process_tracking_data_store_* environment
variables, a .env file, or ~/.process_tracker/process_tracker_config.ini.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.loadOptions.EnvFilePath, "env-file", "", "path of the .env file (default: .env)")
	root.PersistentFlags().StringVar(&c.loadOptions.ConfigFilePath, "config", "", "path of the INI config file (default: ~/.process_tracker/process_tracker_config.ini)")

	root.AddCommand(
		newSetupCmd(c),
		newCreateCmd(c),
		newDeleteCmd(c),
		newUpdateCmd(c),
		newListCmd(c),
		newVersionCmd(),
	)
	return root
}
