package main

import (
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/lockstate"
	"github.com/EliasOenal/term-cli/lib/screen"
	"github.com/EliasOenal/term-cli/lib/tmux"
)

func sendMouseCommand(a *app) *cli.Command {
	var (
		name       string
		x, y       int
		text       string
		nth        int
		button     string
		encoding   string
		scrollUp   string
		scrollDown string
	)
	return &cli.Command{
		Name:    "send-mouse",
		Summary: "Send a synthetic mouse event to a full-screen program",
		Usage:   "term-cli send-mouse -s NAME (--x N --y N | --text TXT [--nth N]) [options]",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("send-mouse")
			flagSet.StringVarP(&name, "session", "s", "", "target session (required)")
			flagSet.IntVar(&x, "x", -1, "zero-based column")
			flagSet.IntVar(&y, "y", -1, "zero-based row")
			flagSet.StringVar(&text, "text", "", "click the on-screen text instead of coordinates")
			flagSet.IntVar(&nth, "nth", 0, "pick the Nth match of --text (1-based)")
			flagSet.StringVar(&button, "button", "left", "mouse button: left, middle, right")
			flagSet.StringVar(&encoding, "mouse-encoding", "", "escape dialect: sgr or x10")
			upFlag := flagSet.VarPF(optionalCount{&scrollUp}, "scroll-up", "u", "scroll up N wheel steps")
			upFlag.NoOptDefVal = "1"
			downFlag := flagSet.VarPF(optionalCount{&scrollDown}, "scroll-down", "d", "scroll down N wheel steps")
			downFlag.NoOptDefVal = "1"
			return flagSet
		},
		Run: func(args []string) error {
			if err := a.requireSession(name); err != nil {
				return err
			}
			if err := lockstate.Guard(a.server, name, lockstate.CapSendInput); err != nil {
				return err
			}
			alt, err := a.server.AlternateScreen(name)
			if err != nil {
				return err
			}
			if !alt {
				return cli.InvalidInputf("send-mouse requires an alternate-screen program (session '%s' shows a normal screen)", name)
			}

			enc, err := tmux.ParseMouseEncoding(encoding)
			if err != nil {
				return cli.InvalidInputf("%s", err)
			}

			col, row := x, y
			if text != "" {
				col, row, err = a.resolveText(name, text, nth)
				if err != nil {
					return err
				}
			} else if col < 0 || row < 0 {
				return cli.Usagef("either --x/--y or --text is required")
			}

			// A bare count after the flags ("-u 3") lands as a
			// positional; accept it the way the original parser did.
			count, err := scrollCount(scrollUp, scrollDown, args)
			if err != nil {
				return err
			}
			if count != 0 {
				return a.server.SendMouseScroll(name, col, row, count, enc)
			}

			btn, err := tmux.ParseMouseButton(button)
			if err != nil {
				return cli.InvalidInputf("%s", err)
			}
			return a.server.SendMouseClick(name, col, row, btn, enc)
		},
	}
}

// resolveText finds the click position of on-screen text. Multiple
// matches need --nth; the error names the count so the caller can pick.
func (a *app) resolveText(sessionName, text string, nth int) (col, row int, err error) {
	capture, err := a.server.CapturePane(sessionName, tmux.CaptureOptions{})
	if err != nil {
		return 0, 0, err
	}
	type position struct{ col, row int }
	var matches []position
	for rowIndex, line := range screen.SplitLines(capture) {
		offset := 0
		for {
			idx := strings.Index(line[offset:], text)
			if idx < 0 {
				break
			}
			start := offset + idx
			runeCol := len([]rune(line[:start])) + len([]rune(text))/2
			matches = append(matches, position{col: runeCol, row: rowIndex})
			offset = start + len(text)
		}
	}
	switch {
	case len(matches) == 0:
		return 0, 0, cli.InvalidInputf("Text '%s' not found on screen", text)
	case nth > 0:
		if nth > len(matches) {
			return 0, 0, cli.InvalidInputf("--nth %d exceeds the %d matches for '%s'", nth, len(matches), text)
		}
		return matches[nth-1].col, matches[nth-1].row, nil
	case len(matches) > 1:
		return 0, 0, cli.InvalidInputf("Text '%s' matches %d times; use --nth to pick one", text, len(matches))
	}
	return matches[0].col, matches[0].row, nil
}

func scrollCount(up, down string, args []string) (int, error) {
	if up != "" && down != "" {
		return 0, cli.InvalidInputf("Cannot scroll up and down at once")
	}
	value := down
	sign := 1
	if up != "" {
		value = up
		sign = -1
	}
	if value == "" {
		return 0, nil
	}
	count, err := strconv.Atoi(value)
	if err != nil || count < 1 {
		return 0, cli.InvalidInputf("scroll count must be a positive integer, got %q", value)
	}
	if count == 1 && len(args) == 1 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			count = n
		}
	}
	return sign * count, nil
}

// optionalCount lets a flag take an optional value: "-u" alone means 1,
// "--scroll-up=3" means 3.
type optionalCount struct{ target *string }

func (o optionalCount) String() string { return "" }
func (o optionalCount) Type() string { return "count" }
func (o optionalCount) Set(value string) error {
	*o.target = value
	return nil
}
