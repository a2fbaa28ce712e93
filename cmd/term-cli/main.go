// term-cli drives tmux sessions on behalf of an automated agent:
// lifecycle, input, capture, wait engines, human handoff, and file
// transfer through the terminal channel.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			// Coded errors carry user-phrased messages; commands that
			// already printed their outcome return a silent error.
			if silent, ok := err.(interface{ Silent() bool }); !ok || !silent.Silent() {
				fmt.Fprintln(os.Stderr, err)
			}
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	app, rest, err := newApp(args)
	if err != nil {
		return err
	}
	return root(app).Execute(rest)
}
