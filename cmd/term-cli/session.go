package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/session"
)

func startCommand(a *app) *cli.Command {
	var (
		name   string
		cols   int
		rows   int
		noSize bool
		dir    string
		shell  string
		env    []string
		locked bool
	)
	return &cli.Command{
		Name:    "start",
		Summary: "Create a detached session",
		Usage:   "term-cli start -s NAME [options]",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("start")
			flagSet.StringVarP(&name, "session", "s", "", "session name (required)")
			flagSet.IntVarP(&cols, "cols", "x", 0, "terminal width")
			flagSet.IntVarP(&rows, "rows", "y", 0, "terminal height")
			flagSet.BoolVar(&noSize, "no-size", false, "let tmux pick the dimensions")
			flagSet.StringVarP(&dir, "cwd", "c", "", "working directory")
			flagSet.StringVar(&shell, "shell", "", "shell or command to run")
			flagSet.StringArrayVarP(&env, "env", "e", nil, "environment entry KEY=VALUE (repeatable)")
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
			if shell == "" {
				shell = a.cfg.Session.Shell
			}
			created, err := a.manager().Start(name, session.StartOptions{
				Cols:   cols,
				Rows:   rows,
				NoSize: noSize,
				Dir:    dir,
				Shell:  shell,
				Env:    env,
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
			if created.Sized {
				fmt.Printf("Created session '%s' (%dx%d)%s\n", created.Name, created.Cols, created.Rows, suffix)
			} else {
				fmt.Printf("Created session '%s'%s\n", created.Name, suffix)
			}
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
		Usage:   "term-cli kill (-s NAME | --all) [-f]",
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

func listCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:    "list",
		Summary: "List sessions",
		Flags: func() *pflag.FlagSet {
			return a.newFlagSet("list")
		},
		Run: func(args []string) error {
			entries, err := a.manager().List()
			if err != nil {
				return err
			}
			for _, entry := range entries {
				line := entry.Name
				if entry.Locked {
					line += " [LOCKED]"
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}

func statusCommand(a *app) *cli.Command {
	var name string
	return &cli.Command{
		Name:    "status",
		Summary: "Show the full state of a session",
		Usage:   "term-cli status -s NAME",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("status")
			flagSet.StringVarP(&name, "session", "s", "", "session name (required)")
			return flagSet
		},
		Run: func(args []string) error {
			if name == "" {
				return cli.Usagef("--session is required")
			}
			status, err := a.manager().Status(name)
			if err != nil {
				return err
			}
			fmt.Print(status.Render())
			return nil
		},
	}
}
