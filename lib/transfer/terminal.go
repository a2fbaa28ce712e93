package transfer

import (
	"fmt"
	"strings"
	"time"
)

// All helper traffic happens on the terminal's alternate screen with
// echo disabled, so megabytes of base64 never enter the scrollback a
// human or agent later reads. The only visible trace of a transfer is
// the one setup line echoed before echo goes quiet, and the restore
// sequence erases exactly that.

const setupCommand = " export HISTCONTROL=ignorespace; tput smcup; stty -echo"

// wrappedLines is how many physical rows a command of cmdLen cells
// occupies when typed after a prompt of promptWidth cells.
func wrappedLines(promptWidth, cmdLen, cols int) int {
	total := promptWidth + cmdLen
	if cols <= 0 {
		return 1
	}
	lines := (total + cols - 1) / cols
	if lines < 1 {
		lines = 1
	}
	return lines
}

// enterTransferScreen switches the pane to the alternate screen with
// echo off and returns the restore function. Restore is safe on every
// exit path: it re-enables echo, leaves the alternate screen, erases
// the echoed setup line, and drops the history suppression again.
func (t *Transferor) enterTransferScreen(session string) (func(), error) {
	cols, _, err := t.Server.PaneDimensions(session)
	if err != nil {
		return nil, err
	}
	promptWidth, _, err := t.Server.CursorPos(session)
	if err != nil {
		return nil, err
	}
	echoed := wrappedLines(promptWidth, len(setupCommand), cols)

	if err := t.Server.SendText(session, setupCommand); err != nil {
		return nil, err
	}
	if err := t.Server.SendEnter(session); err != nil {
		return nil, err
	}
	t.Clock.Sleep(150 * time.Millisecond)

	restore := func() {
		// The restore line is typed while echo is off, so it never
		// appears on screen itself. After rmcup the cursor lands just
		// below the echoed setup line on the normal screen; the printf
		// walks up over it and clears to the end of the screen.
		command := fmt.Sprintf(" stty echo; tput rmcup; printf '\\033[%dA\\033[0J'; unset HISTCONTROL", echoed)
		if err := t.Server.SendText(session, command); err != nil {
			t.Log.Warn("terminal restore failed", "session", session, "error", err)
			return
		}
		if err := t.Server.SendEnter(session); err != nil {
			t.Log.Warn("terminal restore failed", "session", session, "error", err)
		}
		t.Clock.Sleep(150 * time.Millisecond)
	}
	return restore, nil
}

// shellQuote wraps s in single quotes for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// pyQuote renders s as a python double-quoted string literal.
func pyQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
