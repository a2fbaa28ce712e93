package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/pierrec/lz4/v4"
	"github.com/spf13/pflag"

	"github.com/EliasOenal/term-cli/lib/cli"
)

// pipeOption records the active transcript target so a second pipe-log
// is refused until unpipe.
const pipeOption = "@term_cli_pipe_target"

func pipeLogCommand(a *app) *cli.Command {
	var (
		name     string
		raw      bool
		compress bool
	)
	return &cli.Command{
		Name:    "pipe-log",
		Summary: "Stream the session's output to a file",
		Usage:   "term-cli pipe-log -s NAME FILE [-r] [--compress]",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("pipe-log")
			flagSet.StringVarP(&name, "session", "s", "", "target session (required)")
			flagSet.BoolVarP(&raw, "raw", "r", false, "append raw bytes, escapes included")
			flagSet.BoolVar(&compress, "compress", false, "write an lz4-framed transcript")
			return flagSet
		},
		Run: func(args []string) error {
			if err := a.requireSession(name); err != nil {
				return err
			}
			if len(args) != 1 {
				return cli.Usagef("FILE is required")
			}
			if raw && compress {
				return cli.InvalidInputf("Cannot combine --raw with --compress")
			}

			file, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if _, err := os.Stat(filepath.Dir(file)); err != nil {
				return cli.InvalidInputf("Parent directory '%s' does not exist", filepath.Dir(file))
			}
			if active, err := a.server.GetOption(name, pipeOption); err != nil {
				return err
			} else if active != "" {
				return fmt.Errorf("Session '%s' is already piping to %s (run unpipe first)", name, active)
			}

			var sink, mode string
			switch {
			case raw:
				sink = "cat >> " + singleQuote(file)
				mode = "raw"
			case compress:
				sink = selfSink("--lz4", file)
				mode = "lz4"
			default:
				sink = selfSink("--clean", file)
				mode = "clean"
			}
			if err := a.server.PipePane(name, sink); err != nil {
				return err
			}
			if err := a.server.SetOption(name, pipeOption, file); err != nil {
				return err
			}
			fmt.Printf("Piping output to %s (%s)\n", file, mode)
			return nil
		},
	}
}

func unpipeCommand(a *app) *cli.Command {
	var name string
	return &cli.Command{
		Name:    "unpipe",
		Summary: "Stop streaming the session's output",
		Usage:   "term-cli unpipe -s NAME",
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("unpipe")
			flagSet.StringVarP(&name, "session", "s", "", "target session (required)")
			return flagSet
		},
		Run: func(args []string) error {
			if err := a.requireSession(name); err != nil {
				return err
			}
			if err := a.server.PipePaneOff(name); err != nil {
				return err
			}
			if err := a.server.UnsetOption(name, pipeOption); err != nil {
				return err
			}
			fmt.Println("Stopped piping")
			return nil
		},
	}
}

// pipeSinkCommand is the hidden stdin-to-file sink pipe-log puts on
// the far end of tmux's pipe-pane. Clean mode strips escape sequences
// per line; lz4 mode writes a framed compressed stream.
func pipeSinkCommand(a *app) *cli.Command {
	var (
		clean bool
		zip   bool
	)
	return &cli.Command{
		Name:   "pipe-sink",
		Hidden: true,
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("pipe-sink")
			flagSet.BoolVar(&clean, "clean", false, "strip escape sequences")
			flagSet.BoolVar(&zip, "lz4", false, "lz4-compress the stream")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Usagef("FILE is required")
			}
			file, err := os.OpenFile(args[0], os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return err
			}
			defer file.Close()

			var out io.Writer = file
			if zip {
				lzw := lz4.NewWriter(file)
				defer lzw.Close()
				out = lzw
			}
			if clean {
				return cleanCopy(out, os.Stdin)
			}
			_, err = io.Copy(out, os.Stdin)
			return err
		},
	}
}

// cleanCopy strips ANSI escape sequences and carriage returns from the
// stream, line by line, so the transcript reads like plain text.
func cleanCopy(out io.Writer, in io.Reader) error {
	reader := bufio.NewReader(in)
	writer := bufio.NewWriter(out)
	defer writer.Flush()
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			stripped := ansi.Strip(line)
			stripped = strings.ReplaceAll(stripped, "\r", "")
			if _, werr := writer.WriteString(stripped); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// selfSink builds the shell command that feeds pipe-pane output back
// through this binary.
func selfSink(mode, file string) string {
	exe, err := os.Executable()
	if err != nil {
		exe = "term-cli"
	}
	return singleQuote(exe) + " pipe-sink " + mode + " " + singleQuote(file)
}

func singleQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
