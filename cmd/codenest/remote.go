package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codenest/codenest/internal/logging"
	"github.com/codenest/codenest/pkg/protocol"
)

// printExecution writes program output to stdout and failure text to
// stderr. With --query the raw response is printed instead.
func (a *app) printExecution(cmd *cobra.Command, resp protocol.ExecuteResponse) error {
	if a.query != "" {
		return a.printJSON(resp)
	}
	if resp.Stale {
		logging.Warn("a newer request on this tab superseded this result")
	}
	fmt.Fprint(a.out, resp.Output)
	if !resp.Success {
		fmt.Fprintln(cmd.ErrOrStderr(), resp.Error)
		return fmt.Errorf("program failed")
	}
	return nil
}

func newRunCmd(a *app) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "run <tab-id>",
		Short: "Run a tab's content in the sandbox and record the result in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			resp, err := a.client.RunTab(ctx, args[0], input)
			if err != nil {
				return err
			}
			return a.printExecution(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&input, "stdin", "", "text passed to the program's standard input")
	return cmd
}

func newExecCmd(a *app) *cobra.Command {
	var lang, input string
	cmd := &cobra.Command{
		Use:   "exec [file]",
		Short: "Run code without touching the workspace",
		Long: `Run code from a file (or stdin) in the sandbox.

Examples:
  codenest exec -l python hello.py
  echo 'console.log(1)' | codenest exec -l js`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			code, err := readSource(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}
			ctx, cancel := a.context()
			defer cancel()

			resp, err := a.client.Execute(ctx, protocol.ExecuteRequest{Code: code, Language: lang, Input: input})
			if err != nil {
				return err
			}
			return a.printExecution(cmd, resp)
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "language alias (python, js, node, java, cpp, c, ts)")
	cmd.Flags().StringVar(&input, "stdin", "", "text passed to the program's standard input")
	cmd.MarkFlagRequired("lang")
	return cmd
}

func newSummarizeCmd(a *app) *cobra.Command {
	var lang, tab string
	cmd := &cobra.Command{
		Use:   "summarize [file]",
		Short: "Explain code with the language model",
		Long: `Summarize code from a file, stdin, or an open tab (--tab).
Requests are limited to 3 per 5 minutes per client address.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			var (
				resp protocol.SummarizeResponse
				err  error
			)
			if tab != "" {
				resp, err = a.client.SummarizeTab(ctx, tab)
			} else {
				var path string
				if len(args) == 1 {
					path = args[0]
				}
				code, rerr := readSource(cmd.InOrStdin(), path)
				if rerr != nil {
					return rerr
				}
				resp, err = a.client.Summarize(ctx, protocol.SummarizeRequest{Code: code, Language: lang})
			}
			if err != nil {
				return err
			}
			if a.query != "" {
				return a.printJSON(resp)
			}
			if resp.Stale {
				logging.Warn("a newer request on this tab superseded this summary")
			}
			fmt.Fprintln(a.out, resp.Summary)
			return nil
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "language tag (inferred when empty)")
	cmd.Flags().StringVar(&tab, "tab", "", "summarize this tab's content instead of a file")
	return cmd
}

func newTermCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "term <command...>",
		Short: "Type a line into the workspace terminal",
		Long: `Send one line to the workspace terminal. "clear" clears the transcript;
"<language> <code>" runs inline code, e.g.:
  codenest term python 'print(1 + 1)'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context()
			defer cancel()

			resp, err := a.client.TerminalCommand(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if a.query != "" {
				return a.printJSON(resp)
			}
			for _, l := range resp.Lines {
				fmt.Fprintf(a.out, "[%s] %s\n", l.Type, l.Content)
			}
			return nil
		},
	}
}
