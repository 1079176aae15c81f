package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codenest/codenest/pkg/client"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream workspace change events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sse := client.NewSSEClient(a.client.BaseURL())
			sse.SetAuthToken(a.client.AuthToken())
			events, errs := sse.Subscribe(ctx)
			for {
				select {
				case ev, ok := <-events:
					if !ok {
						return nil
					}
					if a.query != "" {
						if err := a.printJSON(ev); err != nil {
							return err
						}
						continue
					}
					ts := time.Unix(ev.Timestamp, 0).Format(time.TimeOnly)
					fmt.Fprintf(a.out, "%s %-9s %s\n", ts, ev.Type, ev.ID)
				case err, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					return err
				}
			}
		},
	}
}
