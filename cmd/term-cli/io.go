package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/lockstate"
)

func runCommand(a *app) *cli.Command {
	var (
		name        string
		wait        bool
		timeoutSecs float64
		flags       *pflag.FlagSet
	)
	return &cli.Command{
		Name:    "run",
		Summary: "Type a command into a session and press Enter",
		Usage:   "term-cli run -s NAME COMMAND [-w] [-t SECONDS]",
		Flags: func() *pflag.FlagSet {
			flags = a.newFlagSet("run")
			flags.StringVarP(&name, "session", "s", "", "target session (required)")
			flags.BoolVarP(&wait, "wait", "w", false, "wait for the shell prompt to return")
			flags.Float64VarP(&timeoutSecs, "timeout", "t", 0, "wait deadline in seconds")
			return flags
		},
		Run: func(args []string) error {
			if err := a.requireSession(name); err != nil {
				return err
			}
			if len(args) == 0 {
				return cli.Usagef("COMMAND is required")
			}
			if err := lockstate.Guard(a.server, name, lockstate.CapSendInput); err != nil {
				return err
			}
			if flags.Changed("timeout") && !wait {
				fmt.Fprintln(os.Stderr, "Warning: --timeout has no effect without --wait")
			}

			command := strings.Join(args, " ")
			if err := a.server.SendText(name, command); err != nil {
				return err
			}
			if err := a.server.SendEnter(name); err != nil {
				return err
			}
			if !wait {
				return nil
			}

			timeout := a.cfg.TimeoutDefault()
			if flags.Changed("timeout") {
				timeout = seconds(timeoutSecs)
			}
			// Give the command a poll to leave the prompt before the
			// prompt detector starts looking for its return.
			a.clock.Sleep(a.cfg.PollInterval())
			if err := a.engine(name).Prompt(timeout); err != nil {
				var exit *cli.ExitError
				if errors.As(err, &exit) && exit.Code == cli.ExitTimeout {
					return cli.Timeoutf("Timeout: command not completed after %.1fs", timeout.Seconds())
				}
				return err
			}
			fmt.Println("Command completed")
			return nil
		},
	}
}

func sendTextCommand(a *app) *cli.Command {
	var (
		name  string
		enter bool
	)
	return &cli.Command{
		Name:    "send-text",
		Summary: "Send literal text to a session",
		Usage:   "term-cli send-text -s NAME TEXT [-e]",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("send-text")
			flagSet.StringVarP(&name, "session", "s", "", "target session (required)")
			flagSet.BoolVarP(&enter, "enter", "e", false, "press Enter after the text")
			return flagSet
		},
		Run: func(args []string) error {
			if err := a.requireSession(name); err != nil {
				return err
			}
			if err := lockstate.Guard(a.server, name, lockstate.CapSendInput); err != nil {
				return err
			}
			text := strings.Join(args, " ")
			if text != "" {
				if err := a.server.SendText(name, text); err != nil {
					return err
				}
			}
			if enter {
				return a.server.SendEnter(name)
			}
			return nil
		},
	}
}

func sendKeyCommand(a *app) *cli.Command {
	var name string
	return &cli.Command{
		Name:    "send-key",
		Summary: "Send a named key (Enter, C-c, Up, F5, ...)",
		Usage:   "term-cli send-key -s NAME KEY",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("send-key")
			flagSet.StringVarP(&name, "session", "s", "", "target session (required)")
			return flagSet
		},
		Run: func(args []string) error {
			if err := a.requireSession(name); err != nil {
				return err
			}
			if len(args) != 1 {
				return cli.Usagef("exactly one KEY is required")
			}
			if err := lockstate.Guard(a.server, name, lockstate.CapSendInput); err != nil {
				return err
			}
			return a.server.SendKey(name, args[0])
		},
	}
}

func sendStdinCommand(a *app) *cli.Command {
	var name string
	return &cli.Command{
		Name:    "send-stdin",
		Summary: "Send everything on stdin to a session",
		Usage:   "term-cli send-stdin -s NAME < file",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("send-stdin")
			flagSet.StringVarP(&name, "session", "s", "", "target session (required)")
			return flagSet
		},
		Run: func(args []string) error {
			if err := a.requireSession(name); err != nil {
				return err
			}
			if err := lockstate.Guard(a.server, name, lockstate.CapSendInput); err != nil {
				return err
			}
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			if len(data) == 0 {
				return cli.InvalidInputf("Empty input")
			}
			text := string(data)
			if err := a.server.SendText(name, text); err != nil {
				return err
			}
			chars := len([]rune(text))
			lines := strings.Count(text, "\n")
			if !strings.HasSuffix(text, "\n") {
				lines++
			}
			fmt.Printf("Sent %d chars (%d lines)\n", chars, lines)
			return nil
		},
	}
}
