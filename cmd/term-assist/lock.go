package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/lockstate"
)

func lockCommand(a *app) *cli.Command {
	var name string
	return &cli.Command{
		Name:    "lock",
		Summary: "Restrict the agent to observing this session",
		Usage:   "term-assist lock -s NAME",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("lock")
			flagSet.StringVarP(&name, "session", "s", "", "target session (required)")
			return flagSet
		},
		Run: func(args []string) error {
			if err := a.requireSession(name); err != nil {
				return err
			}
			already, err := lockstate.Lock(a.server, name)
			if err != nil {
				return err
			}
			if already {
				fmt.Printf("Session '%s' is already locked\n", name)
			} else {
				fmt.Printf("Locked session '%s'\n", name)
			}
			return nil
		},
	}
}

func unlockCommand(a *app) *cli.Command {
	var name string
	return &cli.Command{
		Name:    "unlock",
		Summary: "Give the agent back full control of this session",
		Usage:   "term-assist unlock -s NAME",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("unlock")
			flagSet.StringVarP(&name, "session", "s", "", "target session (required)")
			return flagSet
		},
		Run: func(args []string) error {
			if err := a.requireSession(name); err != nil {
				return err
			}
			already, err := lockstate.Unlock(a.server, name)
			if err != nil {
				return err
			}
			if already {
				fmt.Printf("Session '%s' is not locked\n", name)
			} else {
				fmt.Printf("Unlocked session '%s'\n", name)
			}
			return nil
		},
	}
}
