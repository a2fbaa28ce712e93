// term-assist is the human side of term-cli: see which sessions need
// help, attach to them, and mark the agent's requests done.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
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
