package tmux

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// CaptureOptions configures a capture-pane call.
type CaptureOptions struct {
	// Raw preserves escape sequences in the output (-e). Required for
	// color annotation, which parses the SGR codes itself.
	Raw bool
	// JoinWraps joins wrapped physical rows back into logical lines (-J).
	JoinWraps bool
	// Start and End are tmux line offsets passed to -S and -E. Negative
	// values index into scrollback, "-" means the start of history or
	// the end of the visible area. Empty values are omitted, which
	// captures the visible area only.
	Start string
	End   string
}

// CapturePane returns the pane content of the named session.
func (s *Server) CapturePane(sessionName string, opts CaptureOptions) (string, error) {
	args := []string{"capture-pane", "-p", "-t", target(sessionName)}
	if opts.Raw {
		args = append(args, "-e")
	}
	if opts.JoinWraps {
		args = append(args, "-J")
	}
	if opts.Start != "" {
		args = append(args, "-S", opts.Start)
	}
	if opts.End != "" {
		args = append(args, "-E", opts.End)
	}
	return s.Run(args...)
}

// DisplayMessage expands a tmux format string in the context of the
// named session's active pane and returns the result with the trailing
// newline removed.
func (s *Server) DisplayMessage(sessionName, format string) (string, error) {
	output, err := s.Run("display-message", "-p", "-t", target(sessionName), format)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(output, "\n"), nil
}

// CursorPos returns the cursor position in the named session's active
// pane. Both values are zero-based: col counts cells from the left
// edge, row counts rows from the top of the visible area.
func (s *Server) CursorPos(sessionName string) (col, row int, err error) {
	output, err := s.DisplayMessage(sessionName, "#{cursor_x} #{cursor_y}")
	if err != nil {
		return 0, 0, err
	}
	parts := strings.Fields(output)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed cursor position %q", output)
	}
	col, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("parsing cursor_x %q: %w", parts[0], err)
	}
	row, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parsing cursor_y %q: %w", parts[1], err)
	}
	return col, row, nil
}

// PaneDimensions returns the width and height of the named session's
// active pane in character cells.
func (s *Server) PaneDimensions(sessionName string) (cols, rows int, err error) {
	output, err := s.DisplayMessage(sessionName, "#{pane_width} #{pane_height}")
	if err != nil {
		return 0, 0, err
	}
	parts := strings.Fields(output)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed pane dimensions %q", output)
	}
	cols, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("parsing pane_width %q: %w", parts[0], err)
	}
	rows, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parsing pane_height %q: %w", parts[1], err)
	}
	return cols, rows, nil
}

// AlternateScreen reports whether the pane is currently on the
// alternate screen (a full-screen program such as vim or less is
// active).
func (s *Server) AlternateScreen(sessionName string) (bool, error) {
	output, err := s.DisplayMessage(sessionName, "#{alternate_on}")
	if err != nil {
		return false, err
	}
	return output == "1", nil
}

// CurrentCommand returns the name of the process owning the pane's
// foreground, as tmux tracks it (e.g. "bash", "vim", "tmux" for a
// nested server).
func (s *Server) CurrentCommand(sessionName string) (string, error) {
	return s.DisplayMessage(sessionName, "#{pane_current_command}")
}

// PanePID returns the process ID of the command running in the named
// session's active pane. This is the PID tmux assigned when it launched
// the pane's command, normally the shell.
func (s *Server) PanePID(sessionName string) (int, error) {
	output, err := s.DisplayMessage(sessionName, "#{pane_pid}")
	if err != nil {
		return 0, fmt.Errorf("getting pane PID: %w", err)
	}
	pid, parseErr := strconv.Atoi(strings.TrimSpace(output))
	if parseErr != nil {
		return 0, fmt.Errorf("parsing pane PID %q: %w", output, parseErr)
	}
	return pid, nil
}

// SessionAttached reports whether any client is attached to the named
// session.
func (s *Server) SessionAttached(sessionName string) (bool, error) {
	output, err := s.DisplayMessage(sessionName, "#{session_attached}")
	if err != nil {
		return false, err
	}
	count, parseErr := strconv.Atoi(strings.TrimSpace(output))
	if parseErr != nil {
		return false, fmt.Errorf("parsing session_attached %q: %w", output, parseErr)
	}
	return count > 0, nil
}

// BellFlag reports whether the session's current window has a pending
// bell alert.
func (s *Server) BellFlag(sessionName string) (bool, error) {
	output, err := s.DisplayMessage(sessionName, "#{window_bell_flag}")
	if err != nil {
		return false, err
	}
	return output == "1", nil
}

// ClearBell acknowledges a pending bell alert on the session's current
// window. tmux only clears alert flags when an attached client displays
// the window, so this briefly attaches a control-mode client; it exits
// as soon as its stdin (an empty pipe under exec) reaches EOF.
func (s *Server) ClearBell(sessionName string) error {
	args := append(append([]string{}, s.socketArgs...),
		"-C", "attach-session", "-t", target(sessionName))
	if _, err := s.runner(args...); err != nil {
		return fmt.Errorf("clearing bell on %q: %w", sessionName, err)
	}
	return nil
}

// WakeDetached nudges a full-screen program in a detached session to
// redraw by sending SIGWINCH to the pane process. Attached sessions
// are left alone: the client delivers resize events itself, and a
// spurious SIGWINCH would cause a visible flicker.
func (s *Server) WakeDetached(sessionName string) error {
	attached, err := s.SessionAttached(sessionName)
	if err != nil {
		return err
	}
	if attached {
		return nil
	}
	pid, err := s.PanePID(sessionName)
	if err != nil {
		return err
	}
	if err := unix.Kill(pid, unix.SIGWINCH); err != nil {
		return fmt.Errorf("sending SIGWINCH to PID %d: %w", pid, err)
	}
	return nil
}
