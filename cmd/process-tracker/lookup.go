package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/processtracker/pkg/tracker/core/config/bootstrap"
	"github.com/tigerroll/processtracker/pkg/tracker/core/lookup"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/exception"
)

func topicUsage() string {
	names := make([]string, 0, len(lookup.Topics))
	for _, t := range lookup.Topics {
		names = append(names, string(t))
	}
	return "lookup topic: " + strings.Join(names, ", ")
}

// protectedMessage is printed instead of failing when a protected row is touched.
func protectedMessage(verb string) string {
	return fmt.Sprintf("The item could not be %s because it is a protected record.", verb)
}

func newCreateCmd(c *cli) *cobra.Command {
	var topic, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a lookup row",
		Example: `  process-tracker create -t actor -n "data team"
  process-tracker create -t "error type" -n "Schema Drift"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := lookup.ParseTopic(topic)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, comps bootstrap.Components) error {
				if _, err := comps.Lookups.Create(ctx, t, name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s '%s'.\n", t, name)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&topic, "topic", "t", "", topicUsage())
	cmd.Flags().StringVarP(&name, "name", "n", "", "name of the row")
	_ = cmd.MarkFlagRequired("topic")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newDeleteCmd(c *cli) *cobra.Command {
	var topic, name string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a lookup row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := lookup.ParseTopic(topic)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, comps bootstrap.Components) error {
				err := comps.Lookups.Delete(ctx, t, name)
				if exception.IsKind(err, exception.ErrProtected) {
					fmt.Fprintln(cmd.OutOrStdout(), protectedMessage("deleted"))
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s '%s'.\n", t, name)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&topic, "topic", "t", "", topicUsage())
	cmd.Flags().StringVarP(&name, "name", "n", "", "name of the row")
	_ = cmd.MarkFlagRequired("topic")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newUpdateCmd(c *cli) *cobra.Command {
	var topic, initialName, name string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Rename a lookup row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := lookup.ParseTopic(topic)
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, comps bootstrap.Components) error {
				err := comps.Lookups.Update(ctx, t, initialName, name)
				if exception.IsKind(err, exception.ErrProtected) {
					fmt.Fprintln(cmd.OutOrStdout(), protectedMessage("updated"))
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s '%s' to '%s'.\n", t, initialName, name)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&topic, "topic", "t", "", topicUsage())
	cmd.Flags().StringVarP(&initialName, "initial-name", "i", "", "current name of the row")
	cmd.Flags().StringVarP(&name, "name", "n", "", "new name of the row")
	_ = cmd.MarkFlagRequired("topic")
	_ = cmd.MarkFlagRequired("initial-name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newListCmd(c *cli) *cobra.Command {
	var topic, output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the rows of a lookup topic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := lookup.ParseTopic(topic)
			if err != nil {
				return err
			}
			if output != "text" && output != "yaml" {
				return fmt.Errorf("unsupported output format %q (text or yaml)", output)
			}
			return c.run(cmd, func(ctx context.Context, comps bootstrap.Components) error {
				names, err := comps.Lookups.List(ctx, t)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if output == "yaml" {
					enc := yaml.NewEncoder(out)
					enc.SetIndent(2)
					if err := enc.Encode(map[string][]string{string(t): names}); err != nil {
						return err
					}
					return enc.Close()
				}
				for _, n := range names {
					fmt.Fprintln(out, n)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&topic, "topic", "t", "", topicUsage())
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or yaml")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "process-tracker %s\n", version)
		},
	}
}
