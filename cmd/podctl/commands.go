package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCreateContainerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "create-container NAME...",
		Aliases: []string{"mkdir"},
		Short:   "Create containers that do not exist yet",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if a.strict {
				return a.client.EnsureContainers(ctx, args...)
			}
			l := a.client.Lenient()
			for _, name := range args {
				l.CreateContainer(ctx, name)
			}
			return nil
		},
	}
}

func newPublishCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "publish CONTAINER NAME [ITEM...]",
		Short: "Replace a resource with the given items",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			container, name, items := args[0], args[1], args[2:]
			if a.strict {
				return a.client.Write(ctx, container, name, items)
			}
			a.client.Lenient().PublishData(ctx, container, name, values(items)...)
			return nil
		},
	}
}

func newReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read CONTAINER NAME",
		Short: "Print the items of a resource, one per line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var items []string
			if a.strict {
				res, err := a.client.Read(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				items = res.Items
			} else {
				items = a.client.Lenient().ReadData(ctx, args[0], args[1])
			}
			for _, item := range items {
				fmt.Fprintln(a.out, item)
			}
			return nil
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "update CONTAINER NAME ITEM...",
		Aliases: []string{"append"},
		Short:   "Append items to a resource",
		Args:    cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			container, name, items := args[0], args[1], args[2:]
			if a.strict {
				return a.client.Update(ctx, container, name, items)
			}
			a.client.Lenient().UpdateData(ctx, container, name, values(items)...)
			return nil
		},
	}
}

func values(items []string) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
