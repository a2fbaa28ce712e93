// Package waitfor implements the polling engines behind the wait
// commands: shell-prompt detection, output-idle detection, and pattern
// matching. All engines poll a PaneView on an injected clock, so tests
// drive them deterministically without a terminal.
package waitfor

import (
	"regexp"
	"strings"
	"time"

	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/clock"
	"github.com/EliasOenal/term-cli/lib/config"
)

// PaneView is the pane state the engines poll. Errors from the view
// surface unchanged; a session that dies mid-wait turns into a capture
// error and a runtime failure for the caller.
type PaneView interface {
	// Screen returns the visible pane text.
	Screen() (string, error)

	// ScreenWithHistory returns the visible pane text preceded by up
	// to lines rows of scrollback, wrapped rows joined.
	ScreenWithHistory(lines int) (string, error)

	// Cursor returns the zero-based cursor position.
	Cursor() (col, row int, err error)

	// AlternateScreen reports whether a full-screen program is active.
	AlternateScreen() (bool, error)
}

// DefaultPollInterval is the delay between polls when the engine has
// none configured.
const DefaultPollInterval = 250 * time.Millisecond

// Engine runs wait loops against one pane.
type Engine struct {
	View         PaneView
	Clock        clock.Clock
	PollInterval time.Duration

	// ExtraMarkers extends the prompt marker set.
	ExtraMarkers string

	// Profiles are per-program prompt patterns; a profile applies when
	// its program matches Foreground.
	Profiles   []config.PromptProfile
	Foreground string
}

func (e *Engine) poll() time.Duration {
	if e.PollInterval > 0 {
		return e.PollInterval
	}
	return DefaultPollInterval
}

// Idle waits until the screen content has been unchanged for the idle
// window. A zero timeout checks once and returns. An idle window at
// least as long as a positive timeout can never succeed and is
// rejected before polling.
func (e *Engine) Idle(idle, timeout time.Duration) error {
	if idle < 0 {
		return cli.InvalidInputf("idle seconds must be non-negative")
	}
	if timeout < 0 {
		return cli.InvalidInputf("timeout must be non-negative")
	}
	if timeout > 0 && idle >= timeout {
		return cli.InvalidInputf("idle period (%.1fs) must be shorter than the timeout (%.1fs)",
			idle.Seconds(), timeout.Seconds())
	}

	start := e.Clock.Now()
	deadline := start.Add(timeout)
	previous, err := e.View.Screen()
	if err != nil {
		return err
	}
	lastChange := start

	for {
		now := e.Clock.Now()
		if now.Sub(lastChange) >= idle {
			return nil
		}
		if !now.Before(deadline) {
			return cli.Timeoutf("Timeout: output still changing after %.1fs", timeout.Seconds())
		}
		e.Clock.Sleep(e.poll())

		current, err := e.View.Screen()
		if err != nil {
			return err
		}
		if current != previous {
			previous = current
			lastChange = e.Clock.Now()
		}
	}
}

// Match is a successful pattern wait.
type Match struct {
	// Pattern is the pattern that matched.
	Pattern string

	// Lines is the full captured window; LineIndex is the matched row.
	Lines     []string
	LineIndex int
}

// Matcher tests captured lines against one pattern. Label is the text
// reported back to the caller on match and in timeout messages.
type Matcher struct {
	Label string
	match func(line string) bool
}

// Literal matches lines containing text as a plain substring.
func Literal(text string, ignoreCase bool) Matcher {
	if ignoreCase {
		folded := strings.ToLower(text)
		return Matcher{Label: text, match: func(line string) bool {
			return strings.Contains(strings.ToLower(line), folded)
		}}
	}
	return Matcher{Label: text, match: func(line string) bool {
		return strings.Contains(line, text)
	}}
}

// Regex matches lines against a compiled expression.
func Regex(label string, pattern *regexp.Regexp) Matcher {
	return Matcher{Label: label, match: pattern.MatchString}
}

// Pattern waits until any of the matchers accepts a captured line.
// history > 0 widens the window into scrollback. A zero timeout checks
// once and returns.
func (e *Engine) Pattern(matchers []Matcher, history int, timeout time.Duration) (*Match, error) {
	if timeout < 0 {
		return nil, cli.InvalidInputf("timeout must be non-negative")
	}

	deadline := e.Clock.Now().Add(timeout)
	for {
		var text string
		var err error
		if history > 0 {
			text, err = e.View.ScreenWithHistory(history)
		} else {
			text, err = e.View.Screen()
		}
		if err != nil {
			return nil, err
		}

		lines := splitLines(text)
		for i, line := range lines {
			for _, m := range matchers {
				if m.match(line) {
					return &Match{Pattern: m.Label, Lines: lines, LineIndex: i}, nil
				}
			}
		}

		if !e.Clock.Now().Before(deadline) {
			label := matchers[0].Label
			for _, m := range matchers[1:] {
				label += "', '" + m.Label
			}
			return nil, cli.Timeoutf("Timeout: pattern not detected after %.1fs: '%s'",
				timeout.Seconds(), label)
		}
		e.Clock.Sleep(e.poll())
	}
}

func splitLines(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}
