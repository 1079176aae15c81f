package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codenest/codenest/internal/logging"
	"github.com/codenest/codenest/pkg/client"
)

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the workspace session",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Start a new workspace and save its token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			tf, err := a.client.StartSession(ctx)
			if err != nil {
				return fmt.Errorf("start session: %w", err)
			}
			if err := client.SaveToken(a.tokenFile, tf); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			logging.Info("session saved", logging.Session(tf.SessionID), logging.String("path", a.tokenPath()))
			return a.printJSON(map[string]any{
				"sessionId": tf.SessionID,
				"server":    tf.Server,
				"expiresAt": tf.ExpiresAt,
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "end",
		Short: "Drop the workspace on the server and forget the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			if err := a.client.EndSession(ctx); err != nil {
				return fmt.Errorf("end session: %w", err)
			}
			return client.DeleteToken(a.tokenFile)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.token == nil {
				return fmt.Errorf("no saved session at %s", a.tokenPath())
			}
			return a.printJSON(map[string]any{
				"sessionId": a.token.SessionID,
				"server":    a.token.Server,
				"expiresAt": a.token.ExpiresAt,
				"expired":   a.token.IsExpired(0),
				"online":    a.client.Ping(cmd.Context()) == nil,
			})
		},
	})
	return cmd
}
