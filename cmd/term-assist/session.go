package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/session"
)

func listCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:    "list",
		Summary: "List sessions and their pending requests",
		Usage:   "term-assist list",
		Flags: func() *pflag.FlagSet {
			return a.newFlagSet("list")
		},
		Run: func(args []string) error {
			entries, err := a.manager().List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No sessions")
				return nil
			}
			for _, entry := range entries {
				line := entry.Name
				if entry.Locked {
					line += " [LOCKED]"
				}
				if entry.Request != nil {
					elapsed := a.clock.Now().Sub(entry.Request.CreatedAt)
					line += fmt.Sprintf("  request: %s (%.1fs ago)", entry.Request.Message, elapsed.Seconds())
				} else {
					line += "  no request"
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func startCommand(a *app) *cli.Command {
	var (
		name   string
		cols   int
		rows   int
		dir    string
		locked bool
	)
	return &cli.Command{
		Name:    "start",
		Summary: "Create a detached session",
		Usage:   "term-assist start -s NAME [-x COLS] [-y ROWS] [-c DIR] [-l]",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("start")
			flagSet.StringVarP(&name, "session", "s", "", "session name (required)")
			flagSet.IntVarP(&cols, "cols", "x", 0, "terminal width")
			flagSet.IntVarP(&rows, "rows", "y", 0, "terminal height")
			flagSet.StringVarP(&dir, "cwd", "c", "", "working directory")
			flagSet.BoolVarP(&locked, "locked", "l", false, "start the session human-locked")
			return flagSet
		},
		Run: func(args []string) error {
			if name == "" {
				if len(args) == 1 {
					name = args[0]
				} else {
					return cli.Usagef("--session is required")
				}
			}
			if cols == 0 {
				cols = a.cfg.Session.Cols
			}
			if rows == 0 {
				rows = a.cfg.Session.Rows
			}
			created, err := a.manager().Start(name, session.StartOptions{
				Cols:   cols,
				Rows:   rows,
				Dir:    dir,
				Shell:  a.cfg.Session.Shell,
				Locked: locked,
			})
			if err != nil {
				return err
			}
			suffix := ""
			if dir != "" {
				suffix = " in " + dir
			}
			if locked {
				suffix += " [LOCKED]"
			}
			fmt.Printf("Created session '%s' (%dx%d)%s\n", created.Name, created.Cols, created.Rows, suffix)
			return nil
		},
	}
}

func killCommand(a *app) *cli.Command {
	var (
		name  string
		all   bool
		force bool
	)
	return &cli.Command{
		Name:    "kill",
		Summary: "Kill a session, or all sessions with --all",
		Usage:   "term-assist kill (-s NAME | --all) [-f]",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("kill")
			flagSet.StringVarP(&name, "session", "s", "", "session to kill")
			flagSet.BoolVarP(&all, "all", "a", false, "kill every session")
			flagSet.BoolVarP(&force, "force", "f", false, "kill even if attached or locked")
			return flagSet
		},
		Run: func(args []string) error {
			if all && name != "" {
				return cli.InvalidInputf("Cannot use --all with --session")
			}
			if !all && name == "" {
				return cli.InvalidInputf("Either --session or --all is required")
			}
			if all {
				killed, err := a.manager().KillAll(force)
				if err != nil {
					return err
				}
				if len(killed) == 0 {
					fmt.Println("No sessions to kill")
					return nil
				}
				for _, killedName := range killed {
					fmt.Printf("Killed session '%s'\n", killedName)
				}
				return nil
			}
			if err := a.manager().Kill(name, force); err != nil {
				return err
			}
			fmt.Printf("Killed session '%s'\n", name)
			return nil
		},
	}
}
