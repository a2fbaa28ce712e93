package tmux

import "strconv"

// ResizeWindow resizes the session's current window. A zero dimension
// keeps the current value.
func (s *Server) ResizeWindow(sessionName string, cols, rows int) error {
	args := []string{"resize-window", "-t", target(sessionName)}
	if cols > 0 {
		args = append(args, "-x", strconv.Itoa(cols))
	}
	if rows > 0 {
		args = append(args, "-y", strconv.Itoa(rows))
	}
	_, err := s.Run(args...)
	return err
}

// Scroll moves the pane's view through scrollback via copy-mode.
// Positive n scrolls down (toward the live screen), negative n scrolls
// up (into history). Scrolling down past the bottom simply exits
// copy-mode, which tmux handles itself.
func (s *Server) Scroll(sessionName string, n int) error {
	if n == 0 {
		return nil
	}
	if n < 0 {
		if _, err := s.Run("copy-mode", "-t", target(sessionName)); err != nil {
			return err
		}
		_, err := s.Run("send-keys", "-t", target(sessionName), "-X", "-N",
			strconv.Itoa(-n), "scroll-up")
		return err
	}
	// Scrolling down only means anything inside copy-mode. If the pane
	// isn't in copy-mode this is a no-op, which matches the intent:
	// the view is already at the bottom.
	inCopyMode, err := s.DisplayMessage(sessionName, "#{pane_in_mode}")
	if err != nil {
		return err
	}
	if inCopyMode != "1" {
		return nil
	}
	_, err = s.Run("send-keys", "-t", target(sessionName), "-X", "-N",
		strconv.Itoa(n), "scroll-down")
	return err
}

// PipePane starts piping all pane output to the given shell command.
// tmux runs the command locally and writes every byte the pane emits to
// its stdin. The -O flag restricts the pipe to output only.
func (s *Server) PipePane(sessionName, shellCommand string) error {
	_, err := s.Run("pipe-pane", "-t", target(sessionName), "-O", shellCommand)
	return err
}

// PipePaneOff stops any active pipe on the pane. Calling it with no
// pipe active is harmless.
func (s *Server) PipePaneOff(sessionName string) error {
	_, err := s.Run("pipe-pane", "-t", target(sessionName))
	return err
}
