package tmux

import (
	"fmt"
	"time"

	"github.com/EliasOenal/term-cli/lib/clock"
)

// SendText sends text to the named session as literal keystrokes
// (send-keys -l). tmux performs no key-name interpretation, so the text
// arrives exactly as given, including semicolons and leading dashes.
func (s *Server) SendText(sessionName, text string) error {
	_, err := s.Run("send-keys", "-t", target(sessionName), "-l", "--", text)
	return err
}

// SendKey sends a named key (Enter, Escape, C-c, Up, F5, ...) to the
// named session. The name is passed through to tmux unquoted; tmux
// falls back to sending unknown names as literal characters.
func (s *Server) SendKey(sessionName, key string) error {
	_, err := s.Run("send-keys", "-t", target(sessionName), "--", key)
	return err
}

// SendEnter sends the Enter key.
func (s *Server) SendEnter(sessionName string) error {
	return s.SendKey(sessionName, "Enter")
}

// SendBytes injects raw bytes into the pane's input stream using
// send-keys -H, which takes each byte as a hexadecimal argument. This
// bypasses tmux's key-name handling entirely and is the only way to
// deliver escape sequences, such as synthetic mouse events, unmangled.
func (s *Server) SendBytes(sessionName string, data []byte) error {
	args := []string{"send-keys", "-t", target(sessionName), "-H"}
	for _, b := range data {
		args = append(args, fmt.Sprintf("%02x", b))
	}
	_, err := s.Run(args...)
	return err
}

// PastePaced sends lines to the session with a delay between each one.
// Bulk pastes can overrun the pane's tty input buffer; pacing keeps the
// receiving program (a shell heredoc during uploads) from dropping
// input. Every line is followed by Enter.
func (s *Server) PastePaced(sessionName string, lines []string, delay time.Duration, clk clock.Clock) error {
	for i, line := range lines {
		if i > 0 && delay > 0 {
			clk.Sleep(delay)
		}
		if err := s.SendText(sessionName, line); err != nil {
			return err
		}
		if err := s.SendEnter(sessionName); err != nil {
			return err
		}
	}
	return nil
}
