// Package cli is the command framework shared by term-cli and
// term-assist: a pflag-based command tree with unique-prefix
// abbreviation, typo suggestions, and the exit-code contract both
// binaries honor.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// Command is a CLI command or subcommand.
type Command struct {
	// Name is the command name as typed by the user (e.g. "wait-for").
	Name string

	// Summary is a one-line description shown in the parent's help.
	Summary string

	// Description is the detailed text shown in the command's own help.
	Description string

	// Usage overrides the synthesized usage line when set.
	Usage string

	// Hidden commands are dispatchable but omitted from help and from
	// abbreviation matching (e.g. the pipe-sink helper).
	Hidden bool

	// NoAbbrev keeps a command out of unique-prefix matching while
	// still listing it in help, so it cannot steal a short form from
	// an established command (upload vs 'u' for unpipe).
	NoAbbrev bool

	// Examples are shown after the flags in help output.
	Examples []Example

	// Flags returns a configured *pflag.FlagSet. Called lazily. Nil
	// means the command accepts no flags.
	Flags func() *pflag.FlagSet

	// Subcommands are dispatched by the first positional argument.
	Subcommands []*Command

	// Run executes the command with the remaining args after flag
	// parsing.
	Run func(args []string) error

	parent *Command
}

// Example is a usage example shown in help output.
type Example struct {
	Description string
	Command     string
}

// Execute parses args and dispatches to a subcommand or Run. Unknown
// commands and flags are usage errors (exit 2).
func (c *Command) Execute(args []string) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.PrintHelp(os.Stdout)
		return nil
	}

	if len(c.Subcommands) > 0 && len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		sub, err := c.resolve(args[0])
		if err != nil {
			return err
		}
		sub.parent = c
		return sub.Execute(args[1:])
	}

	if len(c.Subcommands) > 0 && c.Run == nil {
		if len(args) == 0 {
			c.PrintHelp(os.Stdout)
			return nil
		}
		c.PrintHelp(os.Stderr)
		return Usagef("subcommand required (got flag %q)", args[0])
	}

	if c.Flags != nil {
		flagSet := c.Flags()
		flagSet.SetOutput(io.Discard)
		parseArgs, numbers := splitNegativeNumbers(flagSet, args)
		if err := flagSet.Parse(parseArgs); err != nil {
			message := err.Error()
			if strings.Contains(message, "unknown flag") || strings.Contains(message, "unknown shorthand") {
				if suggestion := suggestFlag(args, c.Flags()); suggestion != "" {
					return Usagef("%s (did you mean %s?)\n\nRun '%s --help' for usage.",
						message, suggestion, c.fullName())
				}
			}
			return Usagef("%s\n\nRun '%s --help' for usage.", message, c.fullName())
		}
		args = append(flagSet.Args(), numbers...)
	}

	if c.Run != nil {
		return c.Run(args)
	}

	c.PrintHelp(os.Stderr)
	return Usagef("no action defined for %q", c.fullName())
}

// resolve matches name against the subcommands: exact match first, then
// unique prefix. An ambiguous prefix or no match is a usage error.
func (c *Command) resolve(name string) (*Command, error) {
	for _, sub := range c.Subcommands {
		if sub.Name == name {
			return sub, nil
		}
	}

	var matches []*Command
	for _, sub := range c.Subcommands {
		if !sub.Hidden && !sub.NoAbbrev && strings.HasPrefix(sub.Name, name) {
			matches = append(matches, sub)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		if suggestion := suggestCommand(name, c.Subcommands); suggestion != "" {
			return nil, Usagef("unknown command %q (did you mean %q?)\n\nRun '%s --help' for usage.",
				name, suggestion, c.fullName())
		}
		return nil, Usagef("unknown command %q\n\nRun '%s --help' for usage.", name, c.fullName())
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name
		}
		return nil, Usagef("Ambiguous command %q: could be %s", name, strings.Join(names, ", "))
	}
}

// PrintHelp writes structured help output to w.
func (c *Command) PrintHelp(w io.Writer) {
	name := c.fullName()

	if c.Description != "" {
		fmt.Fprintf(w, "%s\n\n", c.Description)
	} else if c.Summary != "" {
		fmt.Fprintf(w, "%s\n\n", c.Summary)
	}

	if c.Usage != "" {
		fmt.Fprintf(w, "Usage:\n  %s\n", c.Usage)
	} else if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "Usage:\n  %s <command> [flags]\n", name)
	} else {
		fmt.Fprintf(w, "Usage:\n  %s [flags]\n", name)
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nCommands:\n")
		tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			if sub.Hidden {
				continue
			}
			fmt.Fprintf(tw, "  %s\t%s\n", sub.Name, sub.Summary)
		}
		tw.Flush()
	}

	if c.Flags != nil {
		flagSet := c.Flags()
		var flagHelp strings.Builder
		flagSet.SetOutput(&flagHelp)
		flagSet.PrintDefaults()
		if flagHelp.Len() > 0 {
			fmt.Fprintf(w, "\nFlags:\n%s", flagHelp.String())
		}
	}

	if len(c.Examples) > 0 {
		fmt.Fprintf(w, "\nExamples:\n")
		for _, example := range c.Examples {
			if example.Description != "" {
				fmt.Fprintf(w, "  # %s\n", example.Description)
			}
			fmt.Fprintf(w, "  %s\n", example.Command)
		}
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nRun '%s <command> --help' for more information on a command.\n", name)
	}
}

// Main runs the root command against os.Args[1:] and exits with the
// code carried by the returned error. Shared by both binaries.
func (c *Command) Main() {
	err := c.Execute(os.Args[1:])
	if err == nil {
		return
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if !exitErr.Silent() {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(exitErr.Code)
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(ExitRuntime)
}

func (c *Command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

func isHelpFlag(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}

// splitNegativeNumbers pulls tokens that look like negative numbers
// (e.g. "-5") out of args so the flag parser does not mistake them for
// shorthand flags. A token directly following a flag that expects a
// value is left in place so it still parses as that flag's value.
func splitNegativeNumbers(flagSet *pflag.FlagSet, args []string) (rest, numbers []string) {
	skipValue := false
	for _, arg := range args {
		if skipValue {
			rest = append(rest, arg)
			skipValue = false
			continue
		}
		if isNegativeNumber(arg) {
			numbers = append(numbers, arg)
			continue
		}
		rest = append(rest, arg)
		skipValue = flagExpectsValue(flagSet, arg)
	}
	return rest, numbers
}

func isNegativeNumber(arg string) bool {
	if len(arg) < 2 || arg[0] != '-' {
		return false
	}
	dot := false
	for i := 1; i < len(arg); i++ {
		switch {
		case arg[i] >= '0' && arg[i] <= '9':
		case arg[i] == '.' && !dot && i > 1 && i < len(arg)-1:
			dot = true
		default:
			return false
		}
	}
	return true
}

func flagExpectsValue(flagSet *pflag.FlagSet, arg string) bool {
	if len(arg) < 2 || arg[0] != '-' || strings.Contains(arg, "=") {
		return false
	}
	var flag *pflag.Flag
	if strings.HasPrefix(arg, "--") {
		flag = flagSet.Lookup(arg[2:])
	} else {
		// With grouped shorthands only the last one can take a value.
		flag = flagSet.ShorthandLookup(arg[len(arg)-1:])
	}
	return flag != nil && flag.Value.Type() != "bool"
}
