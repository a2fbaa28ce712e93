package main

import (
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/clock"
	"github.com/EliasOenal/term-cli/lib/config"
	"github.com/EliasOenal/term-cli/lib/tmux"
)

// app carries the shared state every command needs: the resolved tmux
// server, the loaded config, the logger, and the clock.
type app struct {
	cfg     *config.Config
	server  *tmux.Server
	log     *slog.Logger
	clock   clock.Clock
	verbose bool
}

// newApp parses the global flags (everything before the command) and
// builds the shared state. Remaining args are returned for dispatch.
func newApp(args []string) (*app, []string, error) {
	flagSet := pflag.NewFlagSet("term-cli", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.Usage = func() {}

	socketName := flagSet.StringP("socket-name", "L", "", "tmux socket name")
	socketPath := flagSet.StringP("socket-path", "S", "", "tmux socket path")
	verbose := flagSet.BoolP("verbose", "v", false, "debug logging")
	help := flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		return nil, nil, cli.Usagef("%s", err)
	}
	rest := flagSet.Args()
	if *help {
		rest = append([]string{"--help"}, rest...)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, cli.InvalidInputf("%s", err)
	}

	server := serverFor(cfg, *socketName, *socketPath)
	return &app{
		cfg:     cfg,
		server:  server,
		log:     cli.NewLogger(*verbose),
		clock:   clock.Real(),
		verbose: *verbose,
	}, rest, nil
}

// newFlagSet builds a command's flag set with the shared flags every
// command accepts, so "-v" parses after the command name too.
func (a *app) newFlagSet(name string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	verbose := flagSet.VarPF(verboseFlag{a}, "verbose", "v", "debug logging")
	verbose.NoOptDefVal = "true"
	return flagSet
}

// verboseFlag turns on debug logging the moment it is parsed, before
// the command body runs.
type verboseFlag struct{ a *app }

func (v verboseFlag) String() string { return "false" }
func (v verboseFlag) Type() string   { return "bool" }
func (v verboseFlag) Set(value string) error {
	if value == "true" {
		v.a.verbose = true
		v.a.log = cli.NewLogger(true)
	}
	return nil
}

// serverFor resolves the tmux server from flags and config. An explicit
// socket path wins over a socket name, flags win over the config file.
func serverFor(cfg *config.Config, name, path string) *tmux.Server {
	if path == "" {
		path = cfg.Socket.Path
	}
	if path != "" {
		return tmux.NewServerAt(path, "")
	}
	if name == "" {
		name = cfg.Socket.Name
	}
	if name == "" {
		name = "term-cli"
	}
	return tmux.NewServer(name, "")
}
