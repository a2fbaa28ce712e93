package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/lockstate"
	"github.com/EliasOenal/term-cli/lib/screen"
	"github.com/EliasOenal/term-cli/lib/tmux"
)

func captureCommand(a *app) *cli.Command {
	var (
		name        string
		raw         bool
		scrollback  int
		tail        int
		annotate    bool
		noAnnotate  bool
		lineNumbers bool
		noTrim      bool
		force       bool
		flags       *pflag.FlagSet
	)
	return &cli.Command{
		Name:    "capture",
		Summary: "Print the session's screen",
		Usage:   "term-cli capture -s NAME [options]",
		Flags: func() *pflag.FlagSet {
			flags = a.newFlagSet("capture")
			flags.StringVarP(&name, "session", "s", "", "target session (required)")
			flags.BoolVarP(&raw, "raw", "r", false, "keep escape sequences (capture-pane -e)")
			flags.IntVarP(&scrollback, "scrollback", "n", 0, "include N scrollback lines (wraps joined)")
			flags.IntVarP(&tail, "tail", "t", 0, "only the last N screen rows")
			flags.BoolVarP(&annotate, "annotate", "a", false, "append highlight annotations")
			flags.BoolVar(&noAnnotate, "no-annotate", false, "suppress automatic annotation")
			flags.BoolVar(&lineNumbers, "line-numbers", false, "number the screen rows")
			flags.BoolVar(&noTrim, "no-trim", false, "keep trailing blank rows")
			flags.BoolVar(&force, "force", false, "allow --scrollback on an alternate screen")
			return flags
		},
		Run: func(args []string) error {
			if err := a.requireSession(name); err != nil {
				return err
			}
			if flags.Changed("scrollback") && flags.Changed("tail") {
				return cli.InvalidInputf("--scrollback and --tail are mutually exclusive")
			}
			if flags.Changed("scrollback") && scrollback <= 0 {
				return cli.InvalidInputf("--scrollback must be positive")
			}
			if flags.Changed("tail") && tail <= 0 {
				return cli.InvalidInputf("--tail must be positive")
			}

			alternate, err := a.server.AlternateScreen(name)
			if err != nil {
				return err
			}

			if scrollback > 0 {
				if annotate || lineNumbers {
					return cli.InvalidInputf("Cannot combine --scrollback with --annotate or --line-numbers")
				}
				if alternate && !force {
					return cli.InvalidInputf("--scrollback reads shell history, which an alternate screen program is hiding (use --force to read it anyway)")
				}
				capture, err := a.server.CapturePane(name, tmux.CaptureOptions{
					Raw:       raw,
					JoinWraps: true,
					Start:     "-" + strconv.Itoa(scrollback),
				})
				if err != nil {
					return err
				}
				lines := screen.SplitLines(capture)
				if !noTrim {
					lines = screen.TrimTrailingBlanks(lines)
				}
				for _, line := range lines {
					fmt.Println(line)
				}
				return nil
			}

			// Annotation auto-enables on an alternate screen, where a
			// plain text capture loses the highlight the program is
			// using to show state.
			doAnnotate := annotate || (alternate && !noAnnotate)
			if noAnnotate {
				doAnnotate = false
			}

			capture, err := a.server.CapturePane(name, tmux.CaptureOptions{Raw: raw || doAnnotate})
			if err != nil {
				return err
			}

			report := &screen.Report{
				Numbered: lineNumbers,
				Annotate: doAnnotate,
			}

			if doAnnotate {
				report.Annotations = screen.Annotate(capture)
				report.Alternate = alternate
				col, row, err := a.server.CursorPos(name)
				if err != nil {
					return err
				}
				report.CursorRow, report.CursorCol = row+1, col+1
				if bell, err := a.server.BellFlag(name); err == nil && bell {
					if err := a.server.ClearBell(name); err == nil {
						report.BellCleared = true
					}
				}
			}

			display := capture
			if doAnnotate && !raw {
				// The annotation pass needed escapes; the displayed
				// lines do not.
				plain, err := a.server.CapturePane(name, tmux.CaptureOptions{})
				if err != nil {
					return err
				}
				display = plain
			}

			lines := screen.SplitLines(display)
			if !noTrim {
				lines = screen.TrimTrailingBlanks(lines)
			}
			if tail > 0 && tail < len(lines) {
				report.FirstRow = len(lines) - tail + 1
				lines = lines[len(lines)-tail:]
			}
			report.Lines = lines

			fmt.Print(report.Render())
			return nil
		},
	}
}

func scrollCommand(a *app) *cli.Command {
	var name string
	return &cli.Command{
		Name:    "scroll",
		Summary: "Scroll the session viewport (negative = up)",
		Usage:   "term-cli scroll -s NAME LINES",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("scroll")
			flagSet.StringVarP(&name, "session", "s", "", "target session (required)")
			return flagSet
		},
		Run: func(args []string) error {
			if err := a.requireSession(name); err != nil {
				return err
			}
			if len(args) != 1 {
				return cli.Usagef("LINES is required")
			}
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return cli.InvalidInputf("scroll amount must be an integer, got %q", args[0])
			}
			if n == 0 {
				return cli.InvalidInputf("scroll amount must be non-zero")
			}
			if err := a.server.Scroll(name, n); err != nil {
				return err
			}
			if n < 0 {
				fmt.Printf("Scrolled up %d lines\n", -n)
			} else {
				fmt.Printf("Scrolled down %d lines\n", n)
			}
			return nil
		},
	}
}

func resizeCommand(a *app) *cli.Command {
	var (
		name string
		cols int
		rows int
	)
	return &cli.Command{
		Name:    "resize",
		Summary: "Resize the session's terminal",
		Usage:   "term-cli resize -s NAME [-x COLS] [-y ROWS]",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("resize")
			flagSet.StringVarP(&name, "session", "s", "", "target session (required)")
			flagSet.IntVarP(&cols, "cols", "x", 0, "new width")
			flagSet.IntVarP(&rows, "rows", "y", 0, "new height")
			return flagSet
		},
		Run: func(args []string) error {
			if err := a.requireSession(name); err != nil {
				return err
			}
			if cols == 0 && rows == 0 {
				return cli.InvalidInputf("Must specify --cols and/or --rows")
			}
			if cols < 0 || rows < 0 {
				return cli.InvalidInputf("dimensions must be positive")
			}
			if err := lockstate.Guard(a.server, name, lockstate.CapResize); err != nil {
				return err
			}
			currentCols, currentRows, err := a.server.PaneDimensions(name)
			if err != nil {
				return err
			}
			if cols == 0 {
				cols = currentCols
			}
			if rows == 0 {
				rows = currentRows
			}
			if err := a.server.ResizeWindow(name, cols, rows); err != nil {
				return err
			}
			fmt.Printf("Resized session '%s' to %dx%d\n", name, cols, rows)
			return nil
		},
	}
}
