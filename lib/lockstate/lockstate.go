// Package lockstate implements the agent lock. A human working inside
// a session locks it, and every agent operation that could inject
// input or destroy state is refused until the session is unlocked.
// Operations that leave the pane's process untouched (capture, status,
// waiting, scrolling the viewport, transcript piping) always pass.
//
// The lock is a tmux session option, so every process observing the
// session sees the same state with no files to clean up: the flag dies
// with the session.
package lockstate

import (
	"fmt"

	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/tmux"
)

// Option is the session option holding the lock flag.
const Option = "@term_cli_agent_locked"

// Capability names a class of mutating operation for lock denial
// messages.
type Capability string

const (
	CapSendInput Capability = "send input to"
	CapResize    Capability = "resize"
	CapUpload    Capability = "upload to"
	CapDownload  Capability = "download from"
	CapKill      Capability = "kill"
)

// IsLocked reports whether the session is locked.
func IsLocked(server *tmux.Server, sessionName string) (bool, error) {
	value, err := server.GetOption(sessionName, Option)
	if err != nil {
		return false, err
	}
	return value == "1", nil
}

// Guard refuses a mutating agent operation on a locked session. The
// returned error carries the locked exit code.
func Guard(server *tmux.Server, sessionName string, capability Capability) error {
	locked, err := IsLocked(server, sessionName)
	if err != nil {
		return err
	}
	if locked {
		return cli.Lockedf("Session '%s' is locked: a human is working in it; cannot %s it (term-assist unlock releases the lock)",
			sessionName, capability)
	}
	return nil
}

// Lock marks the session as locked. Locking an already locked session
// is not an error; the return value reports which case occurred.
func Lock(server *tmux.Server, sessionName string) (alreadyLocked bool, err error) {
	locked, err := IsLocked(server, sessionName)
	if err != nil {
		return false, err
	}
	if locked {
		return true, nil
	}
	if err := server.SetOption(sessionName, Option, "1"); err != nil {
		return false, fmt.Errorf("locking session '%s': %w", sessionName, err)
	}
	return false, nil
}

// Unlock removes the lock. Unlocking an unlocked session is not an
// error.
func Unlock(server *tmux.Server, sessionName string) (alreadyUnlocked bool, err error) {
	locked, err := IsLocked(server, sessionName)
	if err != nil {
		return false, err
	}
	if !locked {
		return true, nil
	}
	if err := server.UnsetOption(sessionName, Option); err != nil {
		return false, fmt.Errorf("unlocking session '%s': %w", sessionName, err)
	}
	return false, nil
}
