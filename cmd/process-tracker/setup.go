package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tigerroll/processtracker/pkg/tracker/core/config/bootstrap"
	sqlstore "github.com/tigerroll/processtracker/pkg/tracker/infrastructure/repository/sql"
)

func newSetupCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Create the tracker tables and seed the protected lookup rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, comps bootstrap.Components) error {
				if err := sqlstore.Setup(ctx, comps.Conn); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Data store initialized.")
				return nil
			})
		},
	}
}
