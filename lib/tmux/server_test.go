package tmux

import (
	"errors"
	"fmt"
	"os/exec"
	"reflect"
	"testing"
	"time"

	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/clock"
)

func TestNewSessionArgs(t *testing.T) {
	server, script := NewScriptedServer(t)

	err := server.NewSession("build", SessionOptions{
		Cols: 120,
		Rows: 40,
		Dir:  "/tmp/work",
		Env:  []string{"FOO=bar"},
	}, "bash", "-l")
	if err != nil {
		t.Fatal(err)
	}

	calls := script.CallsTo("new-session")
	if len(calls) != 1 {
		t.Fatalf("got %d new-session calls, want 1", len(calls))
	}
	want := []string{"new-session", "-d", "-s", "build",
		"-x", "120", "-y", "40", "-c", "/tmp/work", "-e", "FOO=bar", "bash", "-l"}
	if !reflect.DeepEqual(calls[0], want) {
		t.Errorf("args = %v, want %v", calls[0], want)
	}
}

func TestRunMissingBinaryExitCode(t *testing.T) {
	server := NewServer("test", "")
	server.SetRunner(func(args ...string) ([]byte, error) {
		return nil, &exec.Error{Name: "tmux", Err: exec.ErrNotFound}
	})

	_, err := server.Run("list-sessions")
	if err == nil {
		t.Fatal("expected an error")
	}
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != cli.ExitNotFound {
		t.Fatalf("error = %v, want exit %d", err, cli.ExitNotFound)
	}

	err = server.NewSession("build", SessionOptions{})
	if !errors.As(err, &exitErr) || exitErr.Code != cli.ExitNotFound {
		t.Fatalf("new-session error = %v, want exit %d", err, cli.ExitNotFound)
	}
}

func TestKillSessionToleratesMissing(t *testing.T) {
	server, script := NewScriptedServer(t)
	script.Stub("kill-session", "can't find session: build", fmt.Errorf("exit status 1"))

	if err := server.KillSession("build"); err != nil {
		t.Errorf("missing session should not be an error: %v", err)
	}
}

func TestKillServerToleratesStopped(t *testing.T) {
	server, script := NewScriptedServer(t)
	script.Stub("kill-server", "no server running on /tmp/x", fmt.Errorf("exit status 1"))

	if err := server.KillServer(); err != nil {
		t.Errorf("stopped server should not be an error: %v", err)
	}
}

func TestListSessionsParsing(t *testing.T) {
	server, script := NewScriptedServer(t)
	script.Stub("list-sessions",
		"build\t1700000000\t0\t80\t24\nrepl\t1700000100\t1\t120\t40\n", nil)

	sessions, err := server.ListSessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].Name != "build" || sessions[0].Attached {
		t.Errorf("sessions[0] = %+v", sessions[0])
	}
	if sessions[1].Name != "repl" || !sessions[1].Attached {
		t.Errorf("sessions[1] = %+v", sessions[1])
	}
	if sessions[1].Cols != 120 || sessions[1].Rows != 40 {
		t.Errorf("sessions[1] size = %dx%d, want 120x40", sessions[1].Cols, sessions[1].Rows)
	}
	if !sessions[0].Created.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("sessions[0].Created = %v", sessions[0].Created)
	}
}

func TestListSessionsNoServer(t *testing.T) {
	server, script := NewScriptedServer(t)
	script.Stub("list-sessions", "no server running on /tmp/x", fmt.Errorf("exit status 1"))

	sessions, err := server.ListSessions()
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 0 {
		t.Errorf("got %d sessions, want 0", len(sessions))
	}
}

func TestCursorPos(t *testing.T) {
	server, script := NewScriptedServer(t)
	script.Stub("display-message", "12 3\n", nil)

	col, row, err := server.CursorPos("build")
	if err != nil {
		t.Fatal(err)
	}
	if col != 12 || row != 3 {
		t.Errorf("cursor = %d,%d, want 12,3", col, row)
	}
}

func TestGetOptionTrimsNewline(t *testing.T) {
	server, script := NewScriptedServer(t)
	script.Stub("show-option", "1\n", nil)

	value, err := server.GetOption("build", "@term_cli_agent_locked")
	if err != nil {
		t.Fatal(err)
	}
	if value != "1" {
		t.Errorf("value = %q, want %q", value, "1")
	}

	calls := script.CallsTo("show-option")
	want := []string{"show-option", "-qv", "-t", "=build:", "@term_cli_agent_locked"}
	if !reflect.DeepEqual(calls[0], want) {
		t.Errorf("args = %v, want %v", calls[0], want)
	}
}

func TestSendTextLiteral(t *testing.T) {
	server, script := NewScriptedServer(t)

	if err := server.SendText("build", "-rf ; echo done"); err != nil {
		t.Fatal(err)
	}
	calls := script.CallsTo("send-keys")
	want := []string{"send-keys", "-t", "=build", "-l", "--", "-rf ; echo done"}
	if !reflect.DeepEqual(calls[0], want) {
		t.Errorf("args = %v, want %v", calls[0], want)
	}
}

func TestSendBytesHex(t *testing.T) {
	server, script := NewScriptedServer(t)

	if err := server.SendBytes("build", []byte{0x1b, '[', '<'}); err != nil {
		t.Fatal(err)
	}
	calls := script.CallsTo("send-keys")
	want := []string{"send-keys", "-t", "=build", "-H", "1b", "5b", "3c"}
	if !reflect.DeepEqual(calls[0], want) {
		t.Errorf("args = %v, want %v", calls[0], want)
	}
}

func TestScrollUpEntersCopyMode(t *testing.T) {
	server, script := NewScriptedServer(t)

	if err := server.Scroll("build", -5); err != nil {
		t.Fatal(err)
	}
	if len(script.CallsTo("copy-mode")) != 1 {
		t.Error("scroll up should enter copy-mode")
	}
	calls := script.CallsTo("send-keys")
	want := []string{"send-keys", "-t", "=build", "-X", "-N", "5", "scroll-up"}
	if !reflect.DeepEqual(calls[0], want) {
		t.Errorf("args = %v, want %v", calls[0], want)
	}
}

func TestScrollDownOutsideCopyModeIsNoop(t *testing.T) {
	server, script := NewScriptedServer(t)
	script.Stub("display-message", "0\n", nil)

	if err := server.Scroll("build", 3); err != nil {
		t.Fatal(err)
	}
	if len(script.CallsTo("send-keys")) != 0 {
		t.Error("scroll down at bottom should send nothing")
	}
}

func TestPastePacedSleepsBetweenLines(t *testing.T) {
	server, _ := NewScriptedServer(t)
	fake := clock.Fake(time.Unix(1000, 0))

	lines := []string{"a", "b", "c"}
	if err := server.PastePaced("build", lines, 10*time.Millisecond, fake); err != nil {
		t.Fatal(err)
	}
	// Two gaps between three lines.
	if got := fake.Now().Sub(time.Unix(1000, 0)); got != 20*time.Millisecond {
		t.Errorf("elapsed = %v, want 20ms", got)
	}
}

func TestPaneQueriesAgainstLiveServer(t *testing.T) {
	server := NewTestServer(t)

	if err := server.NewSession("scratch", SessionOptions{Cols: 80, Rows: 24}); err != nil {
		t.Fatal(err)
	}
	if !server.HasSession("scratch") {
		t.Fatal("session should exist")
	}

	cols, rows, err := server.PaneDimensions("scratch")
	if err != nil {
		t.Fatal(err)
	}
	if cols != 80 || rows != 24 {
		t.Errorf("dimensions = %dx%d, want 80x24", cols, rows)
	}

	alt, err := server.AlternateScreen("scratch")
	if err != nil {
		t.Fatal(err)
	}
	if alt {
		t.Error("fresh shell should not be on the alternate screen")
	}

	if err := server.SetOption("scratch", "@term_cli_agent_locked", "1"); err != nil {
		t.Fatal(err)
	}
	value, err := server.GetOption("scratch", "@term_cli_agent_locked")
	if err != nil {
		t.Fatal(err)
	}
	if value != "1" {
		t.Errorf("option = %q, want %q", value, "1")
	}
	if err := server.UnsetOption("scratch", "@term_cli_agent_locked"); err != nil {
		t.Fatal(err)
	}
	value, err = server.GetOption("scratch", "@term_cli_agent_locked")
	if err != nil {
		t.Fatal(err)
	}
	if value != "" {
		t.Errorf("unset option = %q, want empty", value)
	}

	if err := server.KillSession("scratch"); err != nil {
		t.Fatal(err)
	}
	if server.HasSession("scratch") {
		t.Error("session should be gone")
	}
}
