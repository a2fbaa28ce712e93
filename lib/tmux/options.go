package tmux

import "strings"

// Session-scoped user options (the "@"-prefixed namespace) carry
// term-cli's coordination state: lock flag, pending handoff request,
// response, detach marker, transfer strategy. They live in the tmux
// server, so every process observing the session sees the same state
// without any side-channel files.

// GetOption returns the value of a session option, or "" if the option
// is unset. The -q flag suppresses the "unknown option" error for
// unset user options.
func (s *Server) GetOption(sessionName, key string) (string, error) {
	output, err := s.Run("show-option", "-qv", "-t", target(sessionName)+":", key)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(output, "\n"), nil
}

// SetOption sets a session option on the named session.
func (s *Server) SetOption(sessionName, key, value string) error {
	_, err := s.Run("set-option", "-t", target(sessionName)+":", key, value)
	return err
}

// UnsetOption removes a session option. Unsetting an option that was
// never set is not an error.
func (s *Server) UnsetOption(sessionName, key string) error {
	_, err := s.Run("set-option", "-u", "-t", target(sessionName)+":", key)
	return err
}

// SetWindowSizeManual pins the session's window size so an attaching
// client cannot resize it. Without this, tmux resizes the window to the
// smallest attached client, which would reflow the very screen an
// automated caller is reading.
func (s *Server) SetWindowSizeManual(sessionName string) error {
	_, err := s.Run("set-option", "-t", target(sessionName)+":", "window-size", "manual")
	return err
}
