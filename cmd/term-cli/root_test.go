package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/clock"
	"github.com/EliasOenal/term-cli/lib/config"
	"github.com/EliasOenal/term-cli/lib/tmux"
)

// fakeTmux emulates the server-side state the commands touch: sessions
// with options, sizes, and attach counts.
type fakeTmux struct {
	sessions map[string]*fakeSession
	order    []string
}

type fakeSession struct {
	options    map[string]string
	cols, rows int
	curX, curY int
	screen     string
}

func newFakeTmux() *fakeTmux {
	return &fakeTmux{sessions: make(map[string]*fakeSession)}
}

func (f *fakeTmux) add(name string) *fakeSession {
	s := &fakeSession{options: make(map[string]string), cols: 80, rows: 24}
	f.sessions[name] = s
	f.order = append(f.order, name)
	return s
}

func (f *fakeTmux) run(args ...string) ([]byte, error) {
	for len(args) > 0 && strings.HasPrefix(args[0], "-") {
		args = args[2:]
	}
	if len(args) == 0 {
		return nil, nil
	}
	switch args[0] {
	case "has-session":
		name := strings.TrimPrefix(args[len(args)-1], "=")
		if _, ok := f.sessions[name]; ok {
			return nil, nil
		}
		return []byte("can't find session"), errors.New("exit status 1")
	case "new-session":
		var name string
		s := &fakeSession{options: make(map[string]string), cols: 80, rows: 24}
		for i := 1; i < len(args)-1; i++ {
			switch args[i] {
			case "-s":
				name = args[i+1]
			case "-x":
				fmt.Sscanf(args[i+1], "%d", &s.cols)
			case "-y":
				fmt.Sscanf(args[i+1], "%d", &s.rows)
			}
		}
		f.sessions[name] = s
		f.order = append(f.order, name)
		return nil, nil
	case "kill-session":
		name := strings.TrimPrefix(args[len(args)-1], "=")
		if _, ok := f.sessions[name]; !ok {
			return []byte("can't find session"), errors.New("exit status 1")
		}
		delete(f.sessions, name)
		return nil, nil
	case "list-sessions":
		if len(f.sessions) == 0 {
			return []byte("no server running"), errors.New("exit status 1")
		}
		var b strings.Builder
		for _, name := range f.order {
			s, ok := f.sessions[name]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "%s\t%d\t%d\t%d\t%d\n", name, 1700000000, 0, s.cols, s.rows)
		}
		return []byte(b.String()), nil
	case "show-option":
		name := strings.TrimSuffix(strings.TrimPrefix(args[len(args)-2], "="), ":")
		s, ok := f.sessions[name]
		if !ok {
			return []byte("can't find session"), errors.New("exit status 1")
		}
		if value, ok := s.options[args[len(args)-1]]; ok {
			return []byte(value + "\n"), nil
		}
		return nil, nil
	case "set-option":
		rest := args[1:]
		unset := false
		if rest[0] == "-u" {
			unset = true
			rest = rest[1:]
		}
		if rest[0] == "-t" {
			rest = rest[1:]
		}
		name := strings.TrimSuffix(strings.TrimPrefix(rest[0], "="), ":")
		s, ok := f.sessions[name]
		if !ok {
			return []byte("can't find session"), errors.New("exit status 1")
		}
		if unset {
			delete(s.options, rest[1])
		} else if len(rest) >= 3 {
			s.options[rest[1]] = rest[2]
		} else {
			s.options[rest[1]] = ""
		}
		return nil, nil
	case "capture-pane":
		var name string
		for i := 1; i < len(args)-1; i++ {
			if args[i] == "-t" {
				name = strings.TrimSuffix(strings.TrimPrefix(args[i+1], "="), ":")
			}
		}
		s, ok := f.sessions[name]
		if !ok {
			return []byte("can't find session"), errors.New("exit status 1")
		}
		return []byte(s.screen), nil
	case "display-message":
		var name string
		for i := 1; i < len(args)-1; i++ {
			if args[i] == "-t" {
				name = strings.TrimSuffix(strings.TrimPrefix(args[i+1], "="), ":")
			}
		}
		s, ok := f.sessions[name]
		if !ok {
			return []byte("can't find session"), errors.New("exit status 1")
		}
		switch args[len(args)-1] {
		case "#{pane_width} #{pane_height}":
			return []byte(fmt.Sprintf("%d %d\n", s.cols, s.rows)), nil
		case "#{cursor_x} #{cursor_y}":
			return []byte(fmt.Sprintf("%d %d\n", s.curX, s.curY)), nil
		case "#{alternate_on}":
			return []byte("0\n"), nil
		case "#{pane_current_command}":
			return []byte("bash\n"), nil
		case "#{session_attached}":
			return []byte("0\n"), nil
		}
		return nil, nil
	case "send-keys", "resize-window", "copy-mode", "pipe-pane":
		return nil, nil
	}
	return nil, nil
}

func testApp(f *fakeTmux) *app {
	server := tmux.NewServer("test", "")
	server.SetRunner(f.run)
	return &app{
		cfg:    config.Default(),
		server: server,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:  clock.Fake(time.Unix(1700000000, 0)),
	}
}

// captureStdout runs fn with os.Stdout redirected to a pipe and
// returns what it printed.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	runErr := fn()
	w.Close()
	os.Stdout = old
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading pipe: %v", err)
	}
	return string(out), runErr
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return cli.ExitRuntime
}

func TestAbbreviationDispatch(t *testing.T) {
	f := newFakeTmux()
	f.add("work")
	a := testApp(f)

	out, err := captureStdout(t, func() error {
		return root(a).Execute([]string{"lis"})
	})
	if err != nil {
		t.Fatalf("lis: %v", err)
	}
	if !strings.Contains(out, "work") {
		t.Errorf("list output missing session: %q", out)
	}
}

func TestAmbiguousAbbreviation(t *testing.T) {
	a := testApp(newFakeTmux())
	err := root(a).Execute([]string{"se"})
	if err == nil {
		t.Fatal("expected error for ambiguous command")
	}
	if !strings.Contains(err.Error(), "Ambiguous") {
		t.Errorf("error = %v, want ambiguity report", err)
	}
	if code := exitCode(t, err); code != cli.ExitUsage {
		t.Errorf("exit code = %d, want %d", code, cli.ExitUsage)
	}
}

func TestUnknownCommandSuggestion(t *testing.T) {
	a := testApp(newFakeTmux())
	err := root(a).Execute([]string{"statsu"})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), "status") {
		t.Errorf("error = %v, want a suggestion of status", err)
	}
}

func TestStartOutput(t *testing.T) {
	f := newFakeTmux()
	a := testApp(f)

	out, err := captureStdout(t, func() error {
		return root(a).Execute([]string{"start", "-s", "build"})
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(out, "Created session 'build' (80x24)") {
		t.Errorf("start output = %q", out)
	}
	if _, ok := f.sessions["build"]; !ok {
		t.Error("session was not created")
	}
}

func TestStartLockedOutput(t *testing.T) {
	f := newFakeTmux()
	a := testApp(f)

	out, err := captureStdout(t, func() error {
		return root(a).Execute([]string{"start", "-s", "build", "-l"})
	})
	if err != nil {
		t.Fatalf("start -l: %v", err)
	}
	if !strings.Contains(out, "[LOCKED]") {
		t.Errorf("start -l output = %q, want locked marker", out)
	}
	if f.sessions["build"].options["@term_cli_agent_locked"] != "1" {
		t.Error("lock option was not set")
	}
}

func TestStartExistingSessionIsRuntimeError(t *testing.T) {
	f := newFakeTmux()
	f.add("build")
	a := testApp(f)

	_, err := captureStdout(t, func() error {
		return root(a).Execute([]string{"start", "-s", "build"})
	})
	if err == nil {
		t.Fatal("expected error for existing session")
	}
	if code := exitCode(t, err); code != cli.ExitRuntime {
		t.Errorf("exit code = %d, want %d", code, cli.ExitRuntime)
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("error = %v", err)
	}
}

func TestKillValidation(t *testing.T) {
	a := testApp(newFakeTmux())

	err := root(a).Execute([]string{"kill"})
	if code := exitCode(t, err); code != cli.ExitInvalidInput {
		t.Errorf("kill without flags: code = %d, want %d", code, cli.ExitInvalidInput)
	}

	err = root(a).Execute([]string{"kill", "-s", "x", "--all"})
	if err == nil || !strings.Contains(err.Error(), "Cannot use --all with --session") {
		t.Errorf("kill -s --all: %v", err)
	}
}

func TestKillAllEmpty(t *testing.T) {
	a := testApp(newFakeTmux())
	out, err := captureStdout(t, func() error {
		return root(a).Execute([]string{"kill", "--all"})
	})
	if err != nil {
		t.Fatalf("kill --all: %v", err)
	}
	if !strings.Contains(out, "No sessions to kill") {
		t.Errorf("output = %q", out)
	}
}

func TestListLockedMarker(t *testing.T) {
	f := newFakeTmux()
	f.add("open")
	f.add("held").options["@term_cli_agent_locked"] = "1"
	a := testApp(f)

	out, err := captureStdout(t, func() error {
		return root(a).Execute([]string{"list"})
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "held [LOCKED]") {
		t.Errorf("list output = %q, want locked marker on held", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "open") && strings.Contains(line, "[LOCKED]") {
			t.Errorf("unlocked session marked locked: %q", line)
		}
	}
}

func TestRunRequiresSession(t *testing.T) {
	a := testApp(newFakeTmux())
	err := root(a).Execute([]string{"run", "echo hi"})
	if code := exitCode(t, err); code != cli.ExitUsage {
		t.Errorf("run without -s: code = %d, want %d", code, cli.ExitUsage)
	}
}

func TestSendTextLockedSession(t *testing.T) {
	f := newFakeTmux()
	f.add("held").options["@term_cli_agent_locked"] = "1"
	a := testApp(f)

	err := root(a).Execute([]string{"send-text", "-s", "held", "hello"})
	if code := exitCode(t, err); code != cli.ExitLocked {
		t.Errorf("send-text to locked: code = %d, want %d", code, cli.ExitLocked)
	}
	if !strings.Contains(strings.ToLower(err.Error()), "locked") {
		t.Errorf("error = %v", err)
	}
}

func TestScrollAllowedWhenLocked(t *testing.T) {
	f := newFakeTmux()
	f.add("held").options["@term_cli_agent_locked"] = "1"
	a := testApp(f)

	out, err := captureStdout(t, func() error {
		return root(a).Execute([]string{"scroll", "-s", "held", "-5"})
	})
	if err != nil {
		t.Fatalf("scroll on locked session: %v", err)
	}
	if !strings.Contains(out, "Scrolled up 5 lines") {
		t.Errorf("scroll output = %q", out)
	}
}

func TestPipeLogAllowedWhenLocked(t *testing.T) {
	f := newFakeTmux()
	f.add("held").options["@term_cli_agent_locked"] = "1"
	a := testApp(f)

	logFile := filepath.Join(t.TempDir(), "transcript.log")
	out, err := captureStdout(t, func() error {
		return root(a).Execute([]string{"pipe-log", "-s", "held", logFile})
	})
	if err != nil {
		t.Fatalf("pipe-log on locked session: %v", err)
	}
	if !strings.Contains(out, "Piping output to") {
		t.Errorf("pipe-log output = %q", out)
	}
}

func TestUploadDefaultTimeout(t *testing.T) {
	f := newFakeTmux()
	held := f.add("work")
	held.screen = "$ \n"
	held.curX = 2

	a := testApp(f)
	local := filepath.Join(t.TempDir(), "payload.txt")
	if err := os.WriteFile(local, []byte("data\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	start := a.clock.Now()
	err := root(a).Execute([]string{"upload", "-s", "work", local})
	if err == nil {
		t.Fatal("upload against a silent session should time out")
	}
	if waited := a.clock.Now().Sub(start); waited < 30*time.Second {
		t.Errorf("gave up after %v, want the full default deadline", waited)
	}
}

func TestRequestWhilePendingExitsInvalidInput(t *testing.T) {
	f := newFakeTmux()
	f.add("work")
	a := testApp(f)

	if err := root(a).Execute([]string{"request", "-s", "work", "-m", "first"}); err != nil {
		t.Fatalf("first request: %v", err)
	}
	err := root(a).Execute([]string{"request", "-s", "work", "-m", "second"})
	if code := exitCode(t, err); code != cli.ExitInvalidInput {
		t.Errorf("second request: code = %d, want %d", code, cli.ExitInvalidInput)
	}
	if !strings.Contains(strings.ToLower(err.Error()), "pending") {
		t.Errorf("error = %v", err)
	}
}

func TestRequestStatusNone(t *testing.T) {
	f := newFakeTmux()
	f.add("work")
	a := testApp(f)

	out, err := captureStdout(t, func() error {
		return root(a).Execute([]string{"request-status", "-s", "work"})
	})
	if code := exitCode(t, err); code != cli.ExitRuntime {
		t.Errorf("code = %d, want %d", code, cli.ExitRuntime)
	}
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || !exitErr.Silent() {
		t.Errorf("expected a silent exit, got %v", err)
	}
	if !strings.Contains(strings.ToLower(out), "none") {
		t.Errorf("output = %q, want none marker", out)
	}
}

func TestRequestRoundTrip(t *testing.T) {
	f := newFakeTmux()
	f.add("work")
	a := testApp(f)

	out, err := captureStdout(t, func() error {
		return root(a).Execute([]string{"request", "-s", "work", "-m", "need a password"})
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !strings.Contains(strings.ToLower(out), "request stored") {
		t.Errorf("request output = %q", out)
	}

	out, err = captureStdout(t, func() error {
		return root(a).Execute([]string{"request-status", "-s", "work"})
	})
	if err != nil {
		t.Fatalf("request-status: %v", err)
	}
	if !strings.Contains(out, "need a password") {
		t.Errorf("status output = %q", out)
	}
}

func TestRequestWaitWithoutRequest(t *testing.T) {
	f := newFakeTmux()
	f.add("work")
	a := testApp(f)

	err := root(a).Execute([]string{"request-wait", "-s", "work", "-t", "1"})
	if code := exitCode(t, err); code != cli.ExitInvalidInput {
		t.Errorf("code = %d, want %d", code, cli.ExitInvalidInput)
	}
	if !strings.Contains(strings.ToLower(err.Error()), "no pending") {
		t.Errorf("error = %v", err)
	}
}

func TestResizeValidation(t *testing.T) {
	f := newFakeTmux()
	f.add("work")
	a := testApp(f)

	err := root(a).Execute([]string{"resize", "-s", "work"})
	if err == nil || !strings.Contains(err.Error(), "Must specify") {
		t.Errorf("resize without dims: %v", err)
	}
}

func TestGlobalFlagsStopAtCommand(t *testing.T) {
	_, rest, err := newApp([]string{"-L", "other", "send-text", "-s", "x", "-v"})
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	want := []string{"send-text", "-s", "x", "-v"}
	if len(rest) != len(want) {
		t.Fatalf("rest = %v, want %v", rest, want)
	}
	for i := range want {
		if rest[i] != want[i] {
			t.Fatalf("rest = %v, want %v", rest, want)
		}
	}
}

func TestVerboseAfterCommand(t *testing.T) {
	f := newFakeTmux()
	f.add("work")
	a := testApp(f)

	err := root(a).Execute([]string{"send-text", "-s", "work", "-v", "hello"})
	if err != nil {
		t.Fatalf("send-text -v: %v", err)
	}
	if !a.verbose {
		t.Error("verbose not set by post-command -v")
	}
}

func TestScrollNegativePositional(t *testing.T) {
	f := newFakeTmux()
	f.add("work")
	a := testApp(f)

	out, err := captureStdout(t, func() error {
		return root(a).Execute([]string{"scroll", "-s", "work", "-5"})
	})
	if err != nil {
		t.Fatalf("scroll -5: %v", err)
	}
	if !strings.Contains(out, "Scrolled up 5 lines") {
		t.Errorf("scroll output = %q", out)
	}
}

func TestScrollZeroRejected(t *testing.T) {
	f := newFakeTmux()
	f.add("work")
	a := testApp(f)

	err := root(a).Execute([]string{"scroll", "-s", "work", "0"})
	if err == nil || !strings.Contains(err.Error(), "non-zero") {
		t.Errorf("scroll 0: %v", err)
	}
	if code := exitCode(t, err); code != cli.ExitInvalidInput {
		t.Errorf("exit code = %d, want %d", code, cli.ExitInvalidInput)
	}
}

func TestWaitNegativeTimeoutRejected(t *testing.T) {
	f := newFakeTmux()
	f.add("work")
	a := testApp(f)

	err := root(a).Execute([]string{"wait", "-s", "work", "-t", "-1"})
	if err == nil || !strings.Contains(err.Error(), "non-negative") {
		t.Errorf("wait -t -1: %v", err)
	}
	if code := exitCode(t, err); code != cli.ExitInvalidInput {
		t.Errorf("exit code = %d, want %d", code, cli.ExitInvalidInput)
	}
}

func TestWaitIdleNegativeIdleRejected(t *testing.T) {
	f := newFakeTmux()
	f.add("work")
	a := testApp(f)

	err := root(a).Execute([]string{"wait-idle", "-s", "work", "-i", "-1"})
	if err == nil || !strings.Contains(err.Error(), "non-negative") {
		t.Errorf("wait-idle -i -1: %v", err)
	}
	if code := exitCode(t, err); code != cli.ExitInvalidInput {
		t.Errorf("exit code = %d, want %d", code, cli.ExitInvalidInput)
	}
}

func TestWaitForNegativeContextRejected(t *testing.T) {
	f := newFakeTmux()
	f.add("work")
	a := testApp(f)

	err := root(a).Execute([]string{"wait-for", "-s", "work", "pattern", "-C", "-1"})
	if err == nil || !strings.Contains(err.Error(), "non-negative") {
		t.Errorf("wait-for -C -1: %v", err)
	}
	if code := exitCode(t, err); code != cli.ExitInvalidInput {
		t.Errorf("exit code = %d, want %d", code, cli.ExitInvalidInput)
	}
}

func TestWaitForIgnoreCase(t *testing.T) {
	f := newFakeTmux()
	f.add("work").screen = "$ echo MixedCase\nMixedCase\n$ \n"
	a := testApp(f)

	out, err := captureStdout(t, func() error {
		return root(a).Execute([]string{"wait-for", "-s", "work", "mixedcase", "-i", "-t", "5"})
	})
	if err != nil {
		t.Fatalf("wait-for -i: %v", err)
	}
	if !strings.Contains(out, "Pattern detected") {
		t.Errorf("output = %q", out)
	}
}

func TestWaitForPrintMatchContext(t *testing.T) {
	f := newFakeTmux()
	f.add("work").screen = "aaa\nbbb\nccc\nddd\neee\n"
	a := testApp(f)

	out, err := captureStdout(t, func() error {
		return root(a).Execute([]string{"wait-for", "-s", "work", "ccc", "-C", "1", "-t", "5"})
	})
	if err != nil {
		t.Fatalf("wait-for -C 1: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("output = %q, want detection line plus three context lines", out)
	}
	if !strings.Contains(lines[0], "Pattern detected") {
		t.Errorf("first line = %q", lines[0])
	}
	for i, want := range []string{"bbb", "ccc", "ddd"} {
		if lines[i+1] != want {
			t.Errorf("context line %d = %q, want %q", i, lines[i+1], want)
		}
	}
}

func TestWaitForLiteralMetacharacters(t *testing.T) {
	f := newFakeTmux()
	f.add("work").screen = "total cost: $5? (y/n)\n$ \n"
	a := testApp(f)

	out, err := captureStdout(t, func() error {
		return root(a).Execute([]string{"wait-for", "-s", "work", "cost: $5?", "-t", "1"})
	})
	if err != nil {
		t.Fatalf("wait-for: %v", err)
	}
	if !strings.Contains(out, "Pattern detected: 'cost: $5?'") {
		t.Errorf("output = %q", out)
	}
}

func TestWaitForRegexOptIn(t *testing.T) {
	f := newFakeTmux()
	f.add("work").screen = "server listening on :8080\n$ \n"
	a := testApp(f)

	out, err := captureStdout(t, func() error {
		return root(a).Execute([]string{"wait-for", "-s", "work", "-E", `listening on :\d+`, "-t", "1"})
	})
	if err != nil {
		t.Fatalf("wait-for -E: %v", err)
	}
	if !strings.Contains(out, "Pattern detected") {
		t.Errorf("output = %q", out)
	}

	err = root(a).Execute([]string{"wait-for", "-s", "work", "-E", "bad(regex", "-t", "1"})
	if code := exitCode(t, err); code != cli.ExitInvalidInput {
		t.Errorf("invalid regex: code = %d, want %d", code, cli.ExitInvalidInput)
	}
}

func TestCaptureScrollbackValidation(t *testing.T) {
	f := newFakeTmux()
	f.add("work")
	a := testApp(f)

	err := root(a).Execute([]string{"capture", "-s", "work", "-n", "0"})
	if err == nil || !strings.Contains(err.Error(), "positive") {
		t.Errorf("capture -n 0: %v", err)
	}
	if code := exitCode(t, err); code != cli.ExitInvalidInput {
		t.Errorf("exit code = %d, want %d", code, cli.ExitInvalidInput)
	}

	err = root(a).Execute([]string{"capture", "-s", "work", "-n", "-5"})
	if err == nil || !strings.Contains(err.Error(), "positive") {
		t.Errorf("capture -n -5: %v", err)
	}
}

func TestCaptureScrollbackTailExclusive(t *testing.T) {
	f := newFakeTmux()
	f.add("work")
	a := testApp(f)

	err := root(a).Execute([]string{"capture", "-s", "work", "-n", "50", "-t", "5"})
	if err == nil || !strings.Contains(err.Error(), "mutually exclusive") {
		t.Errorf("capture -n 50 -t 5: %v", err)
	}
	if code := exitCode(t, err); code != cli.ExitInvalidInput {
		t.Errorf("exit code = %d, want %d", code, cli.ExitInvalidInput)
	}
}

func TestGlobalHelpFlag(t *testing.T) {
	_, rest, err := newApp([]string{"-h"})
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	if len(rest) != 1 || rest[0] != "--help" {
		t.Fatalf("rest = %v, want [--help]", rest)
	}
}
