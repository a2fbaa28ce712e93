package waitfor

import (
	"strings"
	"time"

	"github.com/EliasOenal/term-cli/lib/cli"
)

// promptMarkers are the trailing characters that suggest a shell or
// REPL is waiting for input.
const promptMarkers = "$%#>:)]"

// CursorAtPrompt reports whether a cursor line looks like an idle
// prompt: non-blank text ending in a prompt marker, with the cursor
// resting at least one cell past the text. extra widens the marker
// set. Lines inside full-screen programs never qualify; callers check
// the alternate screen flag before calling.
func CursorAtPrompt(line string, cursorX int, extra string) bool {
	trimmed := strings.TrimRight(line, " \t")
	if trimmed == "" {
		return false
	}
	runes := []rune(trimmed)
	last := runes[len(runes)-1]
	if !strings.ContainsRune(promptMarkers, last) && !strings.ContainsRune(extra, last) {
		return false
	}
	return cursorX >= len(runes)+1
}

// promptCandidate applies the configured prompt profiles before the
// generic heuristic.
func (e *Engine) promptCandidate(line string, cursorX int) bool {
	for _, p := range e.Profiles {
		if p.Program != e.Foreground {
			continue
		}
		if !p.Matches(strings.TrimRight(line, " \t")) {
			return false
		}
		return cursorX >= len([]rune(strings.TrimRight(line, " \t")))+1
	}
	return CursorAtPrompt(line, cursorX, e.ExtraMarkers)
}

// snapshot is one poll of the cursor line.
type snapshot struct {
	line    string
	cursorX int
}

func (e *Engine) cursorLine() (snapshot, bool, error) {
	alt, err := e.View.AlternateScreen()
	if err != nil {
		return snapshot{}, false, err
	}
	if alt {
		return snapshot{}, false, nil
	}
	col, row, err := e.View.Cursor()
	if err != nil {
		return snapshot{}, false, err
	}
	text, err := e.View.Screen()
	if err != nil {
		return snapshot{}, false, err
	}
	lines := splitLines(text)
	var line string
	if row >= 0 && row < len(lines) {
		line = lines[row]
	}
	return snapshot{line: line, cursorX: col}, true, nil
}

// Prompt waits until the cursor rests at a stable prompt. Stability
// means two consecutive polls with the same cursor line and column, so
// a still-running command that momentarily resembles a prompt does not
// count. A zero timeout checks once.
func (e *Engine) Prompt(timeout time.Duration) error {
	if timeout < 0 {
		return cli.InvalidInputf("timeout must be non-negative")
	}

	deadline := e.Clock.Now().Add(timeout)
	for {
		snap, visible, err := e.cursorLine()
		if err != nil {
			return err
		}
		if visible && e.promptCandidate(snap.line, snap.cursorX) {
			e.Clock.Sleep(e.poll())
			again, visible, err := e.cursorLine()
			if err != nil {
				return err
			}
			if visible && again == snap {
				return nil
			}
			// Moving output; fall through to the deadline check.
		}

		if !e.Clock.Now().Before(deadline) {
			return cli.Timeoutf("Timeout: prompt not detected after %.1fs", timeout.Seconds())
		}
		e.Clock.Sleep(e.poll())
	}
}
