package tmux

import (
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// NewTestServer creates an isolated tmux server for testing. The server:
//   - Uses a short socket path under t.TempDir to stay within the
//     108-byte Unix socket limit
//   - Passes -f /dev/null to prevent loading the user's ~/.tmux.conf
//   - Creates a _guard session running "sleep infinity" to keep the
//     server alive (tmux exits when its last session ends)
//   - Registers t.Cleanup to kill the server when the test completes
//
// Tests that need a live server must use the returned Server for every
// tmux command. A bare "tmux" invocation targets the default server,
// which may be the session the developer is working in.
func NewTestServer(t *testing.T) *Server {
	t.Helper()

	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("tmux not installed")
	}

	socketPath := filepath.Join(t.TempDir(), "tmux.sock")
	server := NewServerAt(socketPath, "/dev/null")

	if err := server.NewSession("_guard", SessionOptions{}, "sleep", "infinity"); err != nil {
		t.Fatalf("start tmux test server: %v", err)
	}

	t.Cleanup(func() {
		server.KillServer()
	})

	return server
}

// Script records tmux invocations and serves scripted responses, so
// Server-based logic can be tested without a live tmux. Responses are
// registered per subcommand; each registration is consumed in order,
// and the last one sticks once the queue for a subcommand runs dry.
type Script struct {
	mu    sync.Mutex
	stubs map[string][]scriptResponse
	calls [][]string
}

type scriptResponse struct {
	output string
	err    error
}

// NewScriptedServer returns a Server whose runner is backed by a
// Script instead of the tmux binary.
func NewScriptedServer(t *testing.T) (*Server, *Script) {
	t.Helper()
	script := &Script{stubs: make(map[string][]scriptResponse)}
	server := NewServer("test", "")
	server.SetRunner(script.run)
	return server, script
}

// Stub registers a response for the given tmux subcommand. Multiple
// registrations for the same subcommand are consumed in order.
func (sc *Script) Stub(subcommand, output string, err error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.stubs[subcommand] = append(sc.stubs[subcommand], scriptResponse{output, err})
}

// Calls returns every recorded tmux argument vector, socket flags
// stripped, in invocation order.
func (sc *Script) Calls() [][]string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	out := make([][]string, len(sc.calls))
	copy(out, sc.calls)
	return out
}

// CallsTo returns the recorded argument vectors for one subcommand.
func (sc *Script) CallsTo(subcommand string) [][]string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	var out [][]string
	for _, call := range sc.calls {
		if len(call) > 0 && call[0] == subcommand {
			out = append(out, call)
		}
	}
	return out
}

func (sc *Script) run(args ...string) ([]byte, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	// Strip the socket flag pair and any leading single-dash flags
	// (-C for control mode) so calls are keyed by subcommand.
	trimmed := args
	for len(trimmed) > 0 && strings.HasPrefix(trimmed[0], "-") {
		if trimmed[0] == "-L" || trimmed[0] == "-S" || trimmed[0] == "-f" {
			trimmed = trimmed[2:]
		} else {
			trimmed = trimmed[1:]
		}
	}
	sc.calls = append(sc.calls, trimmed)
	if len(trimmed) == 0 {
		return nil, nil
	}

	queue := sc.stubs[trimmed[0]]
	if len(queue) == 0 {
		return nil, nil
	}
	response := queue[0]
	if len(queue) > 1 {
		sc.stubs[trimmed[0]] = queue[1:]
	}
	return []byte(response.output), response.err
}
