package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/transfer"
)

func (a *app) transferor() *transfer.Transferor {
	return transfer.New(a.server, a.clock, a.log)
}

func uploadCommand(a *app) *cli.Command {
	var (
		name        string
		force       bool
		timeoutSecs float64
		flags       *pflag.FlagSet
	)
	return &cli.Command{
		Name:     "upload",
		NoAbbrev: true,
		Summary:  "Copy a local file into the session's filesystem",
		Usage:    "term-cli upload -s NAME LOCAL_PATH [REMOTE_PATH]",
		Description: "Transfers the file through the terminal itself, so it works\n" +
			"over SSH hops and inside containers with no side channel.\n" +
			"Use '-' as LOCAL_PATH to read from stdin (REMOTE_PATH required).",
		Flags: func() *pflag.FlagSet {
			flags = a.newFlagSet("upload")
			flags.StringVarP(&name, "session", "s", "", "target session (required)")
			flags.BoolVarP(&force, "force", "f", false, "overwrite an existing remote file")
			flags.Float64VarP(&timeoutSecs, "timeout", "t", 0, "transfer deadline in seconds")
			return flags
		},
		Run: func(args []string) error {
			if err := a.requireSession(name); err != nil {
				return err
			}
			if len(args) < 1 {
				return cli.Usagef("LOCAL_PATH is required")
			}
			if len(args) > 2 {
				return cli.Usagef("unexpected argument: %s", args[2])
			}
			localPath := args[0]
			remotePath := ""
			if len(args) == 2 {
				remotePath = args[1]
			}
			opts := transfer.UploadOptions{Force: force, Timeout: a.cfg.TimeoutDefault()}
			if flags.Changed("timeout") {
				opts.Timeout = seconds(timeoutSecs)
			}
			if localPath == "-" {
				opts.Stdin = os.Stdin
			}
			result, err := a.transferor().Upload(name, localPath, remotePath, opts)
			if err != nil {
				return err
			}
			fmt.Printf("Uploaded %d bytes to '%s'\n", result.Bytes, result.RemotePath)
			return nil
		},
	}
}

func downloadCommand(a *app) *cli.Command {
	var (
		name        string
		force       bool
		timeoutSecs float64
		flags       *pflag.FlagSet
	)
	return &cli.Command{
		Name:     "download",
		NoAbbrev: true,
		Summary:  "Copy a file out of the session's filesystem",
		Usage:    "term-cli download -s NAME REMOTE_PATH [LOCAL_PATH]",
		Description: "Transfers the file through the terminal itself. LOCAL_PATH\n" +
			"defaults to the remote file's base name in the current directory.\n" +
			"Use '-' as LOCAL_PATH to write the bytes to stdout.",
		Flags: func() *pflag.FlagSet {
			flags = a.newFlagSet("download")
			flags.StringVarP(&name, "session", "s", "", "target session (required)")
			flags.BoolVarP(&force, "force", "f", false, "overwrite an existing local file")
			flags.Float64VarP(&timeoutSecs, "timeout", "t", 0, "transfer deadline in seconds")
			return flags
		},
		Run: func(args []string) error {
			if err := a.requireSession(name); err != nil {
				return err
			}
			if len(args) < 1 {
				return cli.Usagef("REMOTE_PATH is required")
			}
			if len(args) > 2 {
				return cli.Usagef("unexpected argument: %s", args[2])
			}
			remotePath := args[0]
			localPath := ""
			if len(args) == 2 {
				localPath = args[1]
			}
			opts := transfer.DownloadOptions{Force: force, Timeout: a.cfg.TimeoutDefault()}
			if flags.Changed("timeout") {
				opts.Timeout = seconds(timeoutSecs)
			}
			toStdout := localPath == "-"
			switch {
			case toStdout:
				opts.Stdout = os.Stdout
				localPath = ""
			case localPath == "":
				localPath = filepath.Base(remotePath)
			}
			result, err := a.transferor().Download(name, remotePath, localPath, opts)
			if err != nil {
				return err
			}
			if toStdout {
				// The payload owns stdout, so status goes to stderr.
				fmt.Fprintf(os.Stderr, "Downloaded %d bytes to stdout\n", result.Bytes)
				return nil
			}
			fmt.Printf("Downloaded %d bytes to %s\n", result.Bytes, result.LocalPath)
			return nil
		},
	}
}
