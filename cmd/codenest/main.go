// Command codenest is a terminal client for a CodeNest server.
package main

import (
	"fmt"
	"os"

	"github.com/codenest/codenest/internal/logging"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		logging.Sync()
		os.Exit(1)
	}
	logging.Sync()
}
