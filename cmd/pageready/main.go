// Command pageready runs the built-in page readiness scenarios against a
// running application and exits non-zero when any of them fails.
//
// Exit codes:
//   - 0: every scenario passed or was skipped
//   - 1: at least one scenario failed
//   - 2: at least one scenario could not run (or bad usage)
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, "pageready:", err)
		os.Exit(2)
	}
}
