// Package session implements session lifecycle: creation with
// validated options, single and bulk teardown, listing, and the status
// report. Bulk teardown is all-or-nothing: if any session fails the
// kill predicate, nothing is killed.
package session

import (
	"fmt"
	"os"
	"strings"

	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/clock"
	"github.com/EliasOenal/term-cli/lib/handoff"
	"github.com/EliasOenal/term-cli/lib/lockstate"
	"github.com/EliasOenal/term-cli/lib/tmux"
)

// Manager runs lifecycle operations against one tmux server.
type Manager struct {
	Server *tmux.Server
	Clock  clock.Clock

	// PS lists processes for the status report. Nil means the real ps.
	PS ProcessLister
}

// SanitizeName rewrites characters tmux would mangle. Colons and dots
// are target-syntax separators; tmux replaces them with underscores in
// session names, so we do it up front and report the name actually
// created.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if r == ':' || r == '.' {
			return '_'
		}
		return r
	}, name)
}

// StartOptions configures session creation.
type StartOptions struct {
	Cols, Rows int
	NoSize     bool // let tmux pick dimensions; skips the manual size pin
	Dir        string
	Shell      string
	Env        []string
	Locked     bool
}

// Created describes the session Start made.
type Created struct {
	Name       string
	Cols, Rows int
	Sized      bool
	Dir        string
}

// Start validates options, then creates a detached session. All
// validation happens before any tmux side effect, so a rejected start
// leaves no session behind.
func (m *Manager) Start(name string, opts StartOptions) (*Created, error) {
	if name == "" {
		return nil, cli.InvalidInputf("session name is required")
	}
	name = SanitizeName(name)

	for _, entry := range opts.Env {
		eq := strings.Index(entry, "=")
		if eq <= 0 {
			return nil, cli.InvalidInputf("environment entry '%s' must be KEY=VALUE", entry)
		}
	}
	if opts.Dir != "" {
		info, err := os.Stat(opts.Dir)
		if err != nil {
			return nil, cli.InvalidInputf("Directory '%s' does not exist", opts.Dir)
		}
		if !info.IsDir() {
			return nil, cli.InvalidInputf("'%s' is not a directory", opts.Dir)
		}
	}
	if opts.Shell != "" {
		info, err := os.Stat(opts.Shell)
		if err != nil {
			return nil, cli.InvalidInputf("Shell '%s' does not exist", opts.Shell)
		}
		if info.Mode()&0111 == 0 {
			return nil, cli.InvalidInputf("Shell '%s' is not executable", opts.Shell)
		}
	}

	if m.Server.HasSession(name) {
		return nil, fmt.Errorf("Session '%s' already exists", name)
	}

	tmuxOpts := tmux.SessionOptions{Dir: opts.Dir, Env: opts.Env}
	if !opts.NoSize {
		tmuxOpts.Cols = opts.Cols
		tmuxOpts.Rows = opts.Rows
	}
	var command []string
	if opts.Shell != "" {
		command = []string{opts.Shell}
	}
	if err := m.Server.NewSession(name, tmuxOpts, command...); err != nil {
		return nil, err
	}

	if !opts.NoSize {
		// Pin the size so an attaching human client cannot reflow the
		// screen the agent is reading.
		if err := m.Server.SetWindowSizeManual(name); err != nil {
			return nil, err
		}
	}
	if opts.Locked {
		if err := m.Server.SetOption(name, lockstate.Option, "1"); err != nil {
			return nil, err
		}
	}

	return &Created{
		Name:  name,
		Cols:  tmuxOpts.Cols,
		Rows:  tmuxOpts.Rows,
		Sized: !opts.NoSize,
		Dir:   opts.Dir,
	}, nil
}

// Kill tears down one session. A locked session is refused unless
// force is set; force exists so a human who locked a session and walked
// away does not strand it forever.
func (m *Manager) Kill(name string, force bool) error {
	if !m.Server.HasSession(name) {
		return cli.InvalidInputf("Session '%s' does not exist", name)
	}
	if !force {
		if err := lockstate.Guard(m.Server, name, lockstate.CapKill); err != nil {
			return err
		}
	}
	return m.Server.KillSession(name)
}

// KillAll tears down every session, but only if every session may be
// killed: a locked session always blocks (force does not override it
// here), and an attached session blocks without force. When any
// session is blocked nothing at all is killed. Returns the names
// killed, or nil with no error when there were no sessions.
func (m *Manager) KillAll(force bool) ([]string, error) {
	sessions, err := m.Server.ListSessions()
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}

	var lockedBlockers, attachedBlockers []string
	for _, info := range sessions {
		locked, err := lockstate.IsLocked(m.Server, info.Name)
		if err != nil {
			return nil, err
		}
		if locked {
			lockedBlockers = append(lockedBlockers, info.Name)
			continue
		}
		if info.Attached && !force {
			attachedBlockers = append(attachedBlockers, info.Name)
		}
	}
	if len(lockedBlockers) > 0 {
		return nil, cli.Lockedf("Cannot kill all: session(s) locked by a human: %s (nothing was killed)",
			strings.Join(lockedBlockers, ", "))
	}
	if len(attachedBlockers) > 0 {
		return nil, fmt.Errorf("Cannot kill all: session(s) attached: %s (use --force, nothing was killed)",
			strings.Join(attachedBlockers, ", "))
	}

	var killed []string
	for _, info := range sessions {
		if err := m.Server.KillSession(info.Name); err != nil {
			return killed, err
		}
		killed = append(killed, info.Name)
	}
	return killed, nil
}

// ListEntry is one session with its coordination state.
type ListEntry struct {
	tmux.SessionInfo
	Locked  bool
	Request *handoff.Record
}

// List returns every session with lock and request state attached.
func (m *Manager) List() ([]ListEntry, error) {
	sessions, err := m.Server.ListSessions()
	if err != nil {
		return nil, err
	}
	coord := &handoff.Coordinator{Server: m.Server, Clock: m.Clock}
	var entries []ListEntry
	for _, info := range sessions {
		locked, err := lockstate.IsLocked(m.Server, info.Name)
		if err != nil {
			return nil, err
		}
		record, err := coord.Status(info.Name)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ListEntry{SessionInfo: info, Locked: locked, Request: record})
	}
	return entries, nil
}
