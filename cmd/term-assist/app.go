package main

import (
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/clock"
	"github.com/EliasOenal/term-cli/lib/config"
	"github.com/EliasOenal/term-cli/lib/handoff"
	"github.com/EliasOenal/term-cli/lib/session"
	"github.com/EliasOenal/term-cli/lib/tmux"
)

// app carries the shared state every command needs. socketFlags keeps
// the socket selection as given, so attach can re-invoke this binary
// (and tmux) against the same server from hooks and keybindings.
type app struct {
	cfg         *config.Config
	server      *tmux.Server
	log         *slog.Logger
	clock       clock.Clock
	verbose     bool
	socketFlags []string
}

// newApp parses the global flags (everything before the command) and
// builds the shared state. Remaining args are returned for dispatch.
func newApp(args []string) (*app, []string, error) {
	flagSet := pflag.NewFlagSet("term-assist", pflag.ContinueOnError)
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

	var socketFlags []string
	switch {
	case *socketPath != "":
		socketFlags = []string{"-S", *socketPath}
	case *socketName != "":
		socketFlags = []string{"-L", *socketName}
	}

	server := serverFor(cfg, *socketName, *socketPath)
	return &app{
		cfg:         cfg,
		server:      server,
		log:         cli.NewLogger(*verbose),
		clock:       clock.Real(),
		verbose:     *verbose,
		socketFlags: socketFlags,
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

func (a *app) manager() *session.Manager {
	return &session.Manager{Server: a.server, Clock: a.clock}
}

func (a *app) coordinator() *handoff.Coordinator {
	return &handoff.Coordinator{
		Server:       a.server,
		Clock:        a.clock,
		PollInterval: a.cfg.PollInterval(),
	}
}

func (a *app) requireSession(name string) error {
	if name == "" {
		return cli.Usagef("--session is required")
	}
	if !a.server.HasSession(name) {
		return cli.InvalidInputf("Session '%s' does not exist", name)
	}
	return nil
}
