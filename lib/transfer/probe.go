package transfer

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/EliasOenal/term-cli/lib/tmux"
)

// transferID tags all markers of one transfer so leftover markers from
// an earlier run can never satisfy a wait.
func (t *Transferor) transferID() string {
	return fmt.Sprintf("%d_%d", os.Getpid(), t.Clock.Now().UnixMilli()&0xFFFFFF)
}

// waitForText polls the captured pane until any of the markers appears
// as a substring. Markers are matched anywhere in the text, not at
// line starts: a marker echoed after a long prompt, or re-printed
// after its first copy was clipped by line wrapping, still counts.
func (t *Transferor) waitForText(session string, markers []string, history int, timeout time.Duration) (string, error) {
	deadline := t.Clock.Now().Add(timeout)
	for {
		opts := tmux.CaptureOptions{JoinWraps: true}
		if history > 0 {
			opts.Start = "-" + strconv.Itoa(history)
		}
		screen, err := t.Server.CapturePane(session, opts)
		if err != nil {
			return "", err
		}
		for _, marker := range markers {
			if strings.Contains(screen, marker) {
				return screen, nil
			}
		}
		if !t.Clock.Now().Before(deadline) {
			return screen, fmt.Errorf("timed out waiting for transfer marker %s", markers[0])
		}
		t.Clock.Sleep(100 * time.Millisecond)
	}
}

// remoteExec types a command into the session and waits for one of the
// markers it is expected to print.
func (t *Transferor) remoteExec(session, command string, markers []string, timeout time.Duration) (string, error) {
	if err := t.Server.SendText(session, command); err != nil {
		return "", err
	}
	if err := t.Server.SendEnter(session); err != nil {
		return "", err
	}
	return t.waitForText(session, markers, 50, timeout)
}

// probePythonReal finds a Python 3 on the far side. The probe prefers
// python3; a bare python is accepted when its reported major version
// is 3. The far side of a transfer may be an SSH session on a machine
// we know nothing about, so this is established once per transfer.
func (t *Transferor) probePythonReal(session string, timeout time.Duration) (string, error) {
	id := t.transferID()
	okTag := "TC_PY3_" + id + "_OK"
	binTag := "TC_PYBIN_" + id + "_"
	doneTag := "TC_PY_DONE_" + id

	command := fmt.Sprintf(
		`command -v python3 >/dev/null 2>&1 && echo %s || python -c 'import sys;print("%s"+str(sys.version_info[0]))' 2>/dev/null; echo %s`,
		okTag, binTag, doneTag)
	screen, err := t.remoteExec(session, command, []string{doneTag}, timeout)
	if err != nil {
		return "", err
	}
	if strings.Contains(screen, okTag) {
		return "python3", nil
	}
	rest := screen
	for {
		idx := strings.Index(rest, binTag)
		if idx < 0 {
			break
		}
		rest = rest[idx+len(binTag):]
		// A clipped copy of the tag may end right before the digit;
		// keep scanning for an intact one.
		if len(rest) > 0 && rest[0] == '3' {
			return "python", nil
		}
	}
	return "", fmt.Errorf("Python 3 is not available in session '%s'", session)
}

// fileExistsReal asks the remote shell whether a path exists. The
// marker carries the test exit status, so "0" means the file is there.
func (t *Transferor) fileExistsReal(session, path, pyBin string, timeout time.Duration) (bool, error) {
	id := t.transferID()
	existsTag := "TC_FE_" + id + "_0"
	missingTag := "TC_FE_" + id + "_1"

	command := fmt.Sprintf("test -e %s; echo TC_FE_%s_$?", shellQuote(path), id)
	screen, err := t.remoteExec(session, command, []string{existsTag, missingTag}, timeout)
	if err != nil {
		return false, err
	}
	if strings.Contains(screen, existsTag) {
		return true, nil
	}
	if strings.Contains(screen, missingTag) {
		return false, nil
	}
	return false, fmt.Errorf("existence probe for %s produced no marker", path)
}
