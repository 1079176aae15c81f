package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codenest/codenest/pkg/models"
)

func newStateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the workspace state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			state, err := a.client.State(ctx)
			if err != nil {
				return err
			}
			return a.printJSON(state)
		},
	}
}

func newTemplateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "List or apply project templates",
	}
	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			list, err := a.client.Templates(ctx)
			if err != nil {
				return err
			}
			return a.printJSON(list)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "apply <id>",
		Short: "Replace the project with a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			state, err := a.client.ApplyTemplate(ctx, args[0])
			if err != nil {
				return err
			}
			return a.printJSON(state)
		},
	})
	return cmd
}

func newFileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file",
		Short: "Create, show or delete files and folders",
	}

	var parent string
	var folder bool
	create := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a file or folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			kind := models.TypeFile
			if folder {
				kind = models.TypeFolder
			}
			node, err := a.client.CreateFile(ctx, parent, args[0], kind)
			if err != nil {
				return err
			}
			return a.printJSON(node)
		},
	}
	create.Flags().StringVar(&parent, "parent", "", "parent folder id (default is the root)")
	create.Flags().BoolVar(&folder, "folder", false, "create a folder")
	cmd.AddCommand(create)

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print one node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			node, err := a.client.File(ctx, args[0])
			if err != nil {
				return err
			}
			return a.printJSON(node)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a node and its subtree",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()
			return a.client.DeleteFile(ctx, args[0])
		},
	})
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy-find files by path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			results, err := a.client.Search(ctx, args[0], limit)
			if err != nil {
				return err
			}
			if a.query != "" {
				return a.printJSON(results)
			}
			for _, r := range results {
				fmt.Fprintf(a.out, "%s\t%s\n", r.ID, r.Path)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum results")
	return cmd
}

func newTabCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tab",
		Short: "Open, edit, save or close editor tabs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "open <file-id>",
		Short: "Open a file in a tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			tab, err := a.client.OpenTab(ctx, args[0])
			if err != nil {
				return err
			}
			return a.printJSON(tab)
		},
	})

	var from string
	edit := &cobra.Command{
		Use:   "edit <tab-id>",
		Short: "Replace a tab's content from a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readSource(cmd.InOrStdin(), from)
			if err != nil {
				return err
			}
			ctx, cancel := a.context()
			defer cancel()

			tab, err := a.client.UpdateContent(ctx, args[0], content)
			if err != nil {
				return err
			}
			return a.printJSON(tab)
		},
	}
	edit.Flags().StringVarP(&from, "file", "f", "-", "read content from this file")
	cmd.AddCommand(edit)

	cmd.AddCommand(&cobra.Command{
		Use:   "save <tab-id>",
		Short: "Save a tab's content into its file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			tab, err := a.client.SaveTab(ctx, args[0])
			if err != nil {
				return err
			}
			return a.printJSON(tab)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "close <tab-id>",
		Short: "Close a tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()
			return a.client.CloseTab(ctx, args[0])
		},
	})
	return cmd
}
