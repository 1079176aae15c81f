package main

import (
	"github.com/spf13/cobra"

	"github.com/codenest/codenest/pkg/protocol"
)

func newSnippetsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snippets",
		Aliases: []string{"snippet"},
		Short:   "Manage saved code snippets",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List snippets, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			list, err := a.client.Snippets(ctx)
			if err != nil {
				return err
			}
			return a.printJSON(list)
		},
	})

	var req protocol.SnippetRequest
	var from string
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Save a snippet from a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readSource(cmd.InOrStdin(), from)
			if err != nil {
				return err
			}
			req.Title = args[0]
			req.Code = code

			ctx, cancel := a.context()
			defer cancel()

			snippet, err := a.client.AddSnippet(ctx, req)
			if err != nil {
				return err
			}
			return a.printJSON(snippet)
		},
	}
	add.Flags().StringVarP(&from, "file", "f", "-", "read code from this file")
	add.Flags().StringVarP(&req.Language, "lang", "l", "plaintext", "language tag")
	add.Flags().StringSliceVarP(&req.Tags, "tag", "t", nil, "tag (repeatable)")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a snippet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()
			return a.client.DeleteSnippet(ctx, args[0])
		},
	})
	return cmd
}

func newNotesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notes",
		Aliases: []string{"note"},
		Short:   "Manage sticky notes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List notes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			list, err := a.client.Notes(ctx)
			if err != nil {
				return err
			}
			return a.printJSON(list)
		},
	})

	var color string
	add := &cobra.Command{
		Use:   "add <text>",
		Short: "Create a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			note, err := a.client.AddNote(ctx, protocol.NoteRequest{Content: args[0], Color: color})
			if err != nil {
				return err
			}
			return a.printJSON(note)
		},
	}
	add.Flags().StringVar(&color, "color", "", "note color")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()
			return a.client.DeleteNote(ctx, args[0])
		},
	})
	return cmd
}
