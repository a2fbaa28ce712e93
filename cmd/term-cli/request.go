package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/handoff"
)

func (a *app) coordinator() *handoff.Coordinator {
	return &handoff.Coordinator{
		Server:       a.server,
		Clock:        a.clock,
		PollInterval: a.cfg.PollInterval(),
	}
}

func requestCommand(a *app) *cli.Command {
	var (
		name    string
		message string
	)
	return &cli.Command{
		Name:    "request",
		Summary: "Ask a human for help in this session",
		Usage:   "term-cli request -s NAME [-m MESSAGE]",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("request")
			flagSet.StringVarP(&name, "session", "s", "", "target session (required)")
			flagSet.StringVarP(&message, "message", "m", "", "what the human should do")
			return flagSet
		},
		Run: func(args []string) error {
			if err := a.requireSession(name); err != nil {
				return err
			}
			if err := a.coordinator().Request(name, message); err != nil {
				return err
			}
			if message == "" {
				message = handoff.DefaultMessage
			}
			fmt.Printf("Request stored for session '%s': %s\n", name, message)
			return nil
		},
	}
}

func requestStatusCommand(a *app) *cli.Command {
	var name string
	return &cli.Command{
		Name:    "request-status",
		Summary: "Show the pending request, if any",
		Usage:   "term-cli request-status -s NAME",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("request-status")
			flagSet.StringVarP(&name, "session", "s", "", "target session (required)")
			return flagSet
		},
		Run: func(args []string) error {
			if err := a.requireSession(name); err != nil {
				return err
			}
			record, err := a.coordinator().Status(name)
			if err != nil {
				return err
			}
			if record == nil {
				fmt.Println("Request: none")
				return cli.Exit(cli.ExitRuntime)
			}
			elapsed := a.clock.Now().Sub(record.CreatedAt)
			fmt.Printf("Request: %s (%.1fs ago)\n", record.Message, elapsed.Seconds())
			return nil
		},
	}
}

func requestCancelCommand(a *app) *cli.Command {
	var name string
	return &cli.Command{
		Name:    "request-cancel",
		Summary: "Withdraw the pending request",
		Usage:   "term-cli request-cancel -s NAME",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("request-cancel")
			flagSet.StringVarP(&name, "session", "s", "", "target session (required)")
			return flagSet
		},
		Run: func(args []string) error {
			if err := a.requireSession(name); err != nil {
				return err
			}
			if err := a.coordinator().Cancel(name); err != nil {
				return err
			}
			fmt.Printf("Request cancelled for session '%s'\n", name)
			return nil
		},
	}
}

func requestWaitCommand(a *app) *cli.Command {
	var (
		name        string
		timeoutSecs float64
		flags       *pflag.FlagSet
	)
	return &cli.Command{
		Name:    "request-wait",
		Summary: "Wait for the human to complete the pending request",
		Usage:   "term-cli request-wait -s NAME [-t SECONDS]",
		Flags: func() *pflag.FlagSet {
			flags = a.newFlagSet("request-wait")
			flags.StringVarP(&name, "session", "s", "", "target session (required)")
			flags.Float64VarP(&timeoutSecs, "timeout", "t", 0, "deadline in seconds")
			return flags
		},
		Run: func(args []string) error {
			if err := a.requireSession(name); err != nil {
				return err
			}
			timeout := a.cfg.TimeoutDefault()
			if flags.Changed("timeout") {
				timeout = seconds(timeoutSecs)
			}
			result, err := a.coordinator().Wait(name, timeout)
			if err != nil {
				return err
			}
			if result.Outcome == handoff.WaitDetached {
				fmt.Printf("term-assist detached without response (%.1fs)\n", result.Elapsed.Seconds())
				return cli.Exit(cli.ExitDetached)
			}
			fmt.Println("Request completed")
			if result.Response != "" {
				fmt.Printf("Response: %s\n", result.Response)
			}
			return nil
		},
	}
}
