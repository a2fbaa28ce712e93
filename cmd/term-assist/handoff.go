package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/EliasOenal/term-cli/lib/cli"
)

// currentSession resolves the session this client is attached to.
// Only meaningful inside tmux.
func (a *app) currentSession() (string, error) {
	if os.Getenv("TMUX") == "" {
		return "", cli.InvalidInputf("not inside tmux; use --session to name one")
	}
	out, err := a.server.Run("display-message", "-p", "#{session_name}")
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(out)
	if name == "" {
		return "", cli.InvalidInputf("could not determine the current tmux session")
	}
	return name, nil
}

func doneCommand(a *app) *cli.Command {
	var (
		name    string
		message string
	)
	return &cli.Command{
		Name:    "done",
		Summary: "Mark the pending request done, optionally with a response",
		Usage:   "term-assist done [-s NAME] [-m RESPONSE | RESPONSE]",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("done")
			flagSet.StringVarP(&name, "session", "s", "", "target session (current one inside tmux)")
			flagSet.StringVarP(&message, "message", "m", "", "response text for the agent")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				if message != "" {
					return cli.InvalidInputf("Cannot use both --message and a positional response")
				}
				message = strings.Join(args, " ")
			}
			if name == "" {
				resolved, err := a.currentSession()
				if err != nil {
					return err
				}
				name = resolved
			}
			if !a.server.HasSession(name) {
				return cli.InvalidInputf("Session '%s' does not exist", name)
			}
			if err := a.coordinator().Done(name, message); err != nil {
				return err
			}
			fmt.Printf("Done: session '%s'\n", name)
			return nil
		},
	}
}

func detachCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:    "detach",
		Summary: "Detach from the current session without completing the request",
		Usage:   "term-assist detach",
		Flags: func() *pflag.FlagSet {
			return a.newFlagSet("detach")
		},
		Run: func(args []string) error {
			if _, err := a.currentSession(); err != nil {
				return err
			}
			if _, err := a.server.Run("detach-client"); err != nil {
				return err
			}
			return nil
		},
	}
}
