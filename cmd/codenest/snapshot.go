package main

import (
	"github.com/spf13/cobra"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save and restore workspace snapshots",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			list, err := a.client.Snapshots(ctx)
			if err != nil {
				return err
			}
			return a.printJSON(list)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "save <name>",
		Short: "Save the workspace under a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			info, err := a.client.SaveSnapshot(ctx, args[0])
			if err != nil {
				return err
			}
			return a.printJSON(info)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restore <name>",
		Short: "Replace the workspace with a saved snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			state, err := a.client.RestoreSnapshot(ctx, args[0])
			if err != nil {
				return err
			}
			return a.printJSON(state)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a saved snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()
			return a.client.DeleteSnapshot(ctx, args[0])
		},
	})
	return cmd
}
