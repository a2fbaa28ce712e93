package main

import (
	"fmt"
	"regexp"

	"github.com/spf13/pflag"

	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/waitfor"
)

func waitCommand(a *app) *cli.Command {
	var (
		name        string
		timeoutSecs float64
		flags       *pflag.FlagSet
	)
	return &cli.Command{
		Name:    "wait",
		Summary: "Wait for the shell prompt",
		Usage:   "term-cli wait -s NAME [-t SECONDS]",
		Flags: func() *pflag.FlagSet {
			flags = a.newFlagSet("wait")
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
			if err := a.engine(name).Prompt(timeout); err != nil {
				return err
			}
			fmt.Println("Prompt detected")
			return nil
		},
	}
}

func waitIdleCommand(a *app) *cli.Command {
	var (
		name        string
		idleSecs    float64
		timeoutSecs float64
		flags       *pflag.FlagSet
	)
	return &cli.Command{
		Name:    "wait-idle",
		Summary: "Wait until the screen stops changing",
		Usage:   "term-cli wait-idle -s NAME [-i SECONDS] [-t SECONDS]",
		Flags: func() *pflag.FlagSet {
			flags = a.newFlagSet("wait-idle")
			flags.StringVarP(&name, "session", "s", "", "target session (required)")
			flags.Float64VarP(&idleSecs, "idle", "i", 0, "quiet period in seconds")
			flags.Float64VarP(&timeoutSecs, "timeout", "t", 0, "deadline in seconds")
			return flags
		},
		Run: func(args []string) error {
			if err := a.requireSession(name); err != nil {
				return err
			}
			idle := a.cfg.IdleDefault()
			if flags.Changed("idle") {
				idle = seconds(idleSecs)
			}
			timeout := a.cfg.TimeoutDefault()
			if flags.Changed("timeout") {
				timeout = seconds(timeoutSecs)
			}
			if err := a.engine(name).Idle(idle, timeout); err != nil {
				return err
			}
			fmt.Printf("Idle for %.1fs\n", idle.Seconds())
			return nil
		},
	}
}

func waitForCommand(a *app) *cli.Command {
	var (
		name        string
		regex       bool
		ignoreCase  bool
		printMatch  bool
		matchCtx    int
		scrollback  int
		timeoutSecs float64
		flags       *pflag.FlagSet
	)
	return &cli.Command{
		Name:    "wait-for",
		Summary: "Wait for a pattern to appear on screen",
		Usage:   "term-cli wait-for -s NAME PATTERN... [-E] [-i] [-p] [-C N] [--scrollback N] [-t SECONDS]",
		Flags: func() *pflag.FlagSet {
			flags = a.newFlagSet("wait-for")
			flags.StringVarP(&name, "session", "s", "", "target session (required)")
			flags.BoolVarP(&regex, "regex", "E", false, "treat patterns as regular expressions")
			flags.BoolVarP(&ignoreCase, "ignore-case", "i", false, "match without regard to case")
			flags.BoolVarP(&printMatch, "print-match", "p", false, "print the matched line")
			flags.IntVarP(&matchCtx, "print-match-context", "C", 0, "print N lines around the match (implies -p)")
			flags.IntVar(&scrollback, "scrollback", 0, "also search N lines of scrollback")
			flags.Float64VarP(&timeoutSecs, "timeout", "t", 0, "deadline in seconds")
			return flags
		},
		Run: func(args []string) error {
			if err := a.requireSession(name); err != nil {
				return err
			}
			if len(args) == 0 {
				return cli.Usagef("at least one PATTERN is required")
			}
			if scrollback < 0 {
				return cli.InvalidInputf("--scrollback must be positive")
			}
			if flags.Changed("print-match-context") {
				if matchCtx < 0 {
					return cli.InvalidInputf("--print-match-context must be non-negative")
				}
				printMatch = true
			}

			matchers := make([]waitfor.Matcher, len(args))
			for i, arg := range args {
				if !regex {
					matchers[i] = waitfor.Literal(arg, ignoreCase)
					continue
				}
				source := arg
				if ignoreCase {
					source = "(?i)" + source
				}
				compiled, err := regexp.Compile(source)
				if err != nil {
					return cli.InvalidInputf("invalid pattern '%s': %v", arg, err)
				}
				matchers[i] = waitfor.Regex(arg, compiled)
			}

			timeout := a.cfg.TimeoutDefault()
			if flags.Changed("timeout") {
				timeout = seconds(timeoutSecs)
			}
			match, err := a.engine(name).Pattern(matchers, scrollback, timeout)
			if err != nil {
				return err
			}
			fmt.Printf("Pattern detected: '%s'\n", match.Pattern)
			if printMatch {
				start := match.LineIndex - matchCtx
				if start < 0 {
					start = 0
				}
				end := match.LineIndex + matchCtx
				if end >= len(match.Lines) {
					end = len(match.Lines) - 1
				}
				for _, line := range match.Lines[start : end+1] {
					fmt.Println(line)
				}
			}
			return nil
		},
	}
}
