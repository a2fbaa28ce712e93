package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/handoff"
	"github.com/EliasOenal/term-cli/lib/session"
)

func attachCommand(a *app) *cli.Command {
	var (
		name     string
		readonly bool
	)
	return &cli.Command{
		Name:    "attach",
		Summary: "Attach to a session (the one waiting longest, by default)",
		Usage:   "term-assist attach [-s NAME] [-r]",
		Description: `Attach to a session. Without --session, picks the session whose
pending request has been waiting longest.

While attached:
  Ctrl+B Enter   mark the request done and detach
  Ctrl+B d       detach without completing the request`,
		Flags: func() *pflag.FlagSet {
			flagSet := a.newFlagSet("attach")
			flagSet.StringVarP(&name, "session", "s", "", "session to attach to")
			flagSet.BoolVarP(&readonly, "readonly", "r", false, "attach read-only")
			return flagSet
		},
		Run: func(args []string) error {
			target, err := a.resolveAttachTarget(name)
			if err != nil {
				return err
			}

			// The agent sized this session for itself. Per-session
			// window-size manual keeps our client from resizing it,
			// without touching other sessions on the server.
			if err := a.server.SetWindowSizeManual(target); err != nil {
				return err
			}
			if err := a.installDetachHook(target); err != nil {
				return err
			}
			if err := a.installDoneBinding(target); err != nil {
				return err
			}

			attachArgs := []string{"attach-session", "-t", "=" + target + ":"}
			if readonly {
				attachArgs = append(attachArgs, "-r")
			}
			tmuxPath, err := exec.LookPath("tmux")
			if err != nil {
				return cli.NotFoundf("tmux executable not found in PATH")
			}
			argv := append([]string{"tmux"}, a.server.CommandArgs(attachArgs...)...)
			if err := unix.Exec(tmuxPath, argv, os.Environ()); err != nil {
				return fmt.Errorf("exec tmux: %w", err)
			}
			return nil
		},
	}
}

// resolveAttachTarget picks the session to attach to. An explicit name
// must exist; otherwise the session with the oldest pending request
// wins, falling back to a sole session when nothing is pending.
func (a *app) resolveAttachTarget(name string) (string, error) {
	if name != "" {
		if !a.server.HasSession(name) {
			return "", cli.InvalidInputf("Session '%s' does not exist", name)
		}
		return name, nil
	}

	entries, err := a.manager().List()
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", cli.InvalidInputf("No sessions to attach to")
	}

	var oldest *session.ListEntry
	for i := range entries {
		entry := &entries[i]
		if entry.Request == nil {
			continue
		}
		if oldest == nil || entry.Request.CreatedAt.Before(oldest.Request.CreatedAt) {
			oldest = entry
		}
	}
	if oldest != nil {
		fmt.Fprintf(os.Stderr, "Attaching to session '%s' (pending request: %s)\n",
			oldest.Name, oldest.Request.Message)
		return oldest.Name, nil
	}
	if len(entries) == 1 {
		return entries[0].Name, nil
	}
	return "", cli.InvalidInputf("No session has a pending request; use --session to pick one")
}

// installDetachHook makes tmux flag the session when our client
// detaches, so a waiting agent sees the handoff end without a
// response.
func (a *app) installDetachHook(target string) error {
	hookCmd := fmt.Sprintf("set-option -t =%s: %s 1", target, handoff.DetachedOption)
	_, err := a.server.Run("set-hook", "-t", "="+target+":", "client-detached", hookCmd)
	return err
}

// installDoneBinding binds prefix Enter to complete the request and
// detach in one stroke. Ctrl+B d keeps its stock detach meaning.
func (a *app) installDoneBinding(target string) error {
	exe, err := os.Executable()
	if err != nil {
		exe = "term-assist"
	}
	doneParts := append([]string{exe}, a.socketFlags...)
	doneParts = append(doneParts, "done", "-s", target)
	doneCmd := strings.Join(doneParts, " ")
	detachCmd := "tmux " + strings.Join(a.server.CommandArgs("detach-client"), " ")
	_, err = a.server.Run("bind-key", "Enter", "run-shell", doneCmd+"; "+detachCmd)
	return err
}
