// Package tmux provides a typed interface to a tmux server. term-cli runs
// against a dedicated server socket (distinct from the user's personal
// tmux) so that automation never touches sessions it does not own.
//
// The central type is Server, which represents a connection to a tmux
// server identified by either a socket name (-L) or an explicit socket
// path (-S). All tmux commands go through Server, which injects the
// socket flag automatically. This makes it structurally impossible to
// accidentally target the wrong server or forget to specify a socket.
package tmux

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/EliasOenal/term-cli/lib/cli"
)

// Runner executes a tmux invocation and returns its combined output.
// The argument slice is the complete tmux argument vector, socket flags
// included. Production servers use execRunner; tests substitute a
// scripted runner.
type Runner func(args ...string) ([]byte, error)

func execRunner(args ...string) ([]byte, error) {
	return exec.Command("tmux", args...).CombinedOutput()
}

// Server represents a tmux server identified by its socket. All
// operations target this specific server.
type Server struct {
	socketArgs []string
	configFile string // passed as "-f <path>" on new-session; empty = tmux default
	runner     Runner
}

// NewServer returns a Server that targets the named socket (tmux -L).
// The socket lives in tmux's default socket directory.
//
// configFile controls which configuration file tmux loads when the
// server starts, which happens on the first new-session call. Pass
// "/dev/null" to prevent loading the user's ~/.tmux.conf.
func NewServer(socketName, configFile string) *Server {
	return &Server{
		socketArgs: []string{"-L", socketName},
		configFile: configFile,
		runner:     execRunner,
	}
}

// NewServerAt returns a Server bound to an explicit socket path
// (tmux -S). Used when the caller needs the socket outside tmux's
// default directory, such as per-test sockets under /tmp.
func NewServerAt(socketPath, configFile string) *Server {
	return &Server{
		socketArgs: []string{"-S", socketPath},
		configFile: configFile,
		runner:     execRunner,
	}
}

// SetRunner replaces the command runner. Tests use this to script tmux
// responses without a live server.
func (s *Server) SetRunner(r Runner) {
	s.runner = r
}

// target returns the exact-match target for a session name. The leading
// "=" disables tmux's prefix matching, so "build" never resolves to
// "build-2".
func target(sessionName string) string {
	return "=" + sessionName
}

// Run executes an arbitrary tmux subcommand on this server and returns
// the combined output. This is the escape hatch for commands that don't
// have a dedicated method.
//
// The socket flag is automatically prepended. Callers provide only the
// subcommand and its arguments:
//
//	output, err := server.Run("list-panes", "-t", "=build", "-F", "#{pane_index}")
func (s *Server) Run(args ...string) (string, error) {
	fullArgs := append(append([]string{}, s.socketArgs...), args...)
	output, err := s.runner(fullArgs...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", cli.NotFoundf("tmux executable not found in PATH")
		}
		return "", fmt.Errorf("tmux %s: %w (%s)",
			strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// SessionOptions configures session creation.
type SessionOptions struct {
	Cols int    // initial width; 0 = tmux default
	Rows int    // initial height; 0 = tmux default
	Dir  string // working directory; empty = inherit
	Env  []string
}

// NewSession creates a detached tmux session on this server. If command
// is non-empty, the session runs that command instead of the default
// shell.
//
// The -f flag (config file) is passed on new-session because this
// command may start the server if it isn't already running. Once the
// server is running, subsequent commands don't re-read the config file,
// so only new-session needs it.
func (s *Server) NewSession(sessionName string, opts SessionOptions, command ...string) error {
	var args []string
	if s.configFile != "" {
		args = append(args, "-f", s.configFile)
	}
	args = append(args, s.socketArgs...)
	args = append(args, "new-session", "-d", "-s", sessionName)
	if opts.Cols > 0 {
		args = append(args, "-x", strconv.Itoa(opts.Cols))
	}
	if opts.Rows > 0 {
		args = append(args, "-y", strconv.Itoa(opts.Rows))
	}
	if opts.Dir != "" {
		args = append(args, "-c", opts.Dir)
	}
	for _, entry := range opts.Env {
		args = append(args, "-e", entry)
	}
	args = append(args, command...)
	output, err := s.runner(args...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return cli.NotFoundf("tmux executable not found in PATH")
		}
		return fmt.Errorf("tmux new-session %q: %w (%s)",
			sessionName, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// HasSession reports whether a session with the given name exists on
// this server. Returns false if the server is not running.
func (s *Server) HasSession(sessionName string) bool {
	args := append(append([]string{}, s.socketArgs...),
		"has-session", "-t", target(sessionName))
	_, err := s.runner(args...)
	return err == nil
}

// KillSession terminates a specific session. Returns nil if the session
// was already gone or the server was not running, since both are
// normal conditions during cleanup.
func (s *Server) KillSession(sessionName string) error {
	output, err := s.Run("kill-session", "-t", target(sessionName))
	if err != nil {
		message := err.Error()
		if strings.Contains(message, "can't find session") ||
			strings.Contains(message, "no server running") {
			return nil
		}
		return err
	}
	_ = output
	return nil
}

// KillServer terminates the entire tmux server, stopping all sessions.
// Returns nil if the server was already stopped.
func (s *Server) KillServer() error {
	_, err := s.Run("kill-server")
	if err != nil {
		message := err.Error()
		// "server exited unexpectedly" appears when the socket file
		// lingers briefly after the server process has exited.
		if strings.Contains(message, "no server running") ||
			strings.Contains(message, "server exited unexpectedly") {
			return nil
		}
		return err
	}
	return nil
}

// SessionInfo describes one session as reported by list-sessions.
type SessionInfo struct {
	Name     string
	Created  time.Time
	Attached bool
	Cols     int
	Rows     int
}

// ListSessions returns every session on this server. Returns an empty
// slice if the server is not running.
func (s *Server) ListSessions() ([]SessionInfo, error) {
	output, err := s.Run("list-sessions", "-F",
		"#{session_name}\t#{session_created}\t#{session_attached}\t#{window_width}\t#{window_height}")
	if err != nil {
		if strings.Contains(err.Error(), "no server running") ||
			strings.Contains(err.Error(), "error connecting") {
			return nil, nil
		}
		return nil, err
	}

	var sessions []SessionInfo
	for _, line := range strings.Split(strings.TrimRight(output, "\n"), "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 5 {
			return nil, fmt.Errorf("malformed list-sessions line %q", line)
		}
		createdUnix, parseErr := strconv.ParseInt(fields[1], 10, 64)
		if parseErr != nil {
			return nil, fmt.Errorf("parsing session_created %q: %w", fields[1], parseErr)
		}
		attachedCount, parseErr := strconv.Atoi(fields[2])
		if parseErr != nil {
			return nil, fmt.Errorf("parsing session_attached %q: %w", fields[2], parseErr)
		}
		cols, parseErr := strconv.Atoi(fields[3])
		if parseErr != nil {
			return nil, fmt.Errorf("parsing window_width %q: %w", fields[3], parseErr)
		}
		rows, parseErr := strconv.Atoi(fields[4])
		if parseErr != nil {
			return nil, fmt.Errorf("parsing window_height %q: %w", fields[4], parseErr)
		}
		sessions = append(sessions, SessionInfo{
			Name:     fields[0],
			Created:  time.Unix(createdUnix, 0),
			Attached: attachedCount > 0,
			Cols:     cols,
			Rows:     rows,
		})
	}
	return sessions, nil
}

// Command returns an *exec.Cmd for a tmux subcommand without running it.
// The caller gets full control over Stdin, Stdout, and Stderr before
// starting the process. term-assist uses this to exec attach-session
// with the caller's terminal.
//
// The socket flag is automatically prepended, as with Run.
func (s *Server) Command(args ...string) *exec.Cmd {
	fullArgs := append(append([]string{}, s.socketArgs...), args...)
	return exec.Command("tmux", fullArgs...)
}

// CommandArgs returns the complete argument vector (socket flags
// included, "tmux" excluded) for a subcommand. Used when the caller
// needs to exec tmux directly, replacing the current process.
func (s *Server) CommandArgs(args ...string) []string {
	return append(append([]string{}, s.socketArgs...), args...)
}
