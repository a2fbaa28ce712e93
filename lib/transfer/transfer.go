// Package transfer moves files in and out of a session through the
// terminal channel itself. No sidechannel is assumed: if the session is
// a shell on the far side of SSH, transfer still works, because the
// only requirements over there are a POSIX shell and a python3 with
// nothing but the standard library.
//
// Payloads travel gzip-compressed and base64-armored. Every transfer
// is verified end to end with a sha256 digest computed over the
// original bytes; sha256 is fixed by the far side, where hashlib is
// the only digest available.
package transfer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/clock"
	"github.com/EliasOenal/term-cli/lib/lockstate"
	"github.com/EliasOenal/term-cli/lib/tmux"
	"github.com/EliasOenal/term-cli/lib/waitfor"
)

// StrategyOption remembers which download strategy worked for a
// session, so later downloads skip the strategy that already failed.
const StrategyOption = "@term_cli_dl_strategy"

// MinWidth is the narrowest terminal a transfer will attempt. The
// base64 stream is chunked to the pane width; below this the marker
// lines themselves wrap unpredictably.
const MinWidth = 40

// Transferor runs uploads and downloads against sessions on one
// server.
type Transferor struct {
	Server *tmux.Server
	Clock  clock.Clock
	Log    *slog.Logger

	// Strategy hooks, replaceable in tests. Wired by New.
	probePython  func(session string, timeout time.Duration) (string, error)
	fileExists   func(session, path, pyBin string, timeout time.Duration) (bool, error)
	runUpload    func(session, remotePath, pyBin string, payload []byte, force bool, timeout time.Duration) (string, error)
	downloadPipe func(session, remotePath, pyBin string, timeout time.Duration) ([]byte, string, error)
	downloadChk  func(session, remotePath, pyBin string, timeout time.Duration) ([]byte, string, error)
}

// New returns a Transferor with the real strategy implementations.
func New(server *tmux.Server, clk clock.Clock, log *slog.Logger) *Transferor {
	t := &Transferor{Server: server, Clock: clk, Log: log}
	t.probePython = t.probePythonReal
	t.fileExists = t.fileExistsReal
	t.runUpload = t.runUploadReal
	t.downloadPipe = t.downloadPipeReal
	t.downloadChk = t.downloadChunkedReal
	return t
}

// preconditions validates the session side of a transfer in a fixed
// order, before any terminal side effect: the session must exist, be
// unlocked, be wide enough, and sit at a shell prompt outside any
// full-screen program.
func (t *Transferor) preconditions(session string, capability lockstate.Capability) error {
	if !t.Server.HasSession(session) {
		return cli.InvalidInputf("Session '%s' does not exist", session)
	}
	if err := lockstate.Guard(t.Server, session, capability); err != nil {
		return err
	}
	cols, _, err := t.Server.PaneDimensions(session)
	if err != nil {
		return err
	}
	if cols < MinWidth {
		return cli.InvalidInputf("Terminal too narrow for transfer: %d columns, need at least %d", cols, MinWidth)
	}
	alt, err := t.Server.AlternateScreen(session)
	if err != nil {
		return err
	}
	if alt {
		// A nested tmux keeps the outer pane on the alternate screen
		// permanently; transfers still work there via the chunked
		// strategy, so only foreign full-screen programs are refused.
		command, err := t.Server.CurrentCommand(session)
		if err != nil {
			return err
		}
		if command != "tmux" {
			return cli.InvalidInputf("Session '%s' is not at a prompt", session)
		}
		return nil
	}
	view := &waitfor.TmuxView{Server: t.Server, Session: session}
	snapshot, err := view.Screen()
	if err != nil {
		return err
	}
	col, row, err := view.Cursor()
	if err != nil {
		return err
	}
	lines := strings.Split(strings.TrimSuffix(snapshot, "\n"), "\n")
	var line string
	if row >= 0 && row < len(lines) {
		line = lines[row]
	}
	if !waitfor.CursorAtPrompt(line, col, "") {
		return cli.InvalidInputf("Session '%s' is not at a prompt", session)
	}
	return nil
}

// UploadOptions configures Upload.
type UploadOptions struct {
	Force   bool
	Timeout time.Duration

	// Stdin, when non-nil, is the "-" source. RemotePath is then
	// mandatory and the reader must not be a terminal.
	Stdin io.Reader
}

// UploadResult reports a finished upload.
type UploadResult struct {
	Bytes      int
	RemotePath string
	SHA256     string
}

// Upload sends a local file (or stdin) to a path inside the session.
func (t *Transferor) Upload(session, localPath, remotePath string, opts UploadOptions) (*UploadResult, error) {
	if opts.Timeout < 0 {
		return nil, cli.InvalidInputf("timeout must be non-negative")
	}
	if err := t.preconditions(session, lockstate.CapUpload); err != nil {
		return nil, err
	}

	var payload []byte
	if opts.Stdin != nil {
		if remotePath == "" {
			return nil, cli.InvalidInputf("REMOTE_PATH is required when uploading from stdin")
		}
		if file, ok := opts.Stdin.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
			return nil, cli.InvalidInputf("refusing to read from a terminal; pipe data into stdin")
		}
		data, err := io.ReadAll(opts.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		if len(data) == 0 {
			return nil, cli.InvalidInputf("stdin is empty")
		}
		payload = data
	} else {
		info, err := os.Stat(localPath)
		if err != nil {
			return nil, cli.InvalidInputf("Local file '%s' does not exist", localPath)
		}
		if info.Size() == 0 {
			return nil, cli.InvalidInputf("Local file '%s' is empty", localPath)
		}
		data, err := os.ReadFile(localPath)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", localPath, err)
		}
		payload = data
		if remotePath == "" {
			remotePath = filepath.Base(localPath)
		}
	}

	restore, err := t.enterTransferScreen(session)
	if err != nil {
		return nil, err
	}
	defer restore()

	pyBin, err := t.probePython(session, opts.Timeout)
	if err != nil {
		return nil, err
	}
	exists, err := t.fileExists(session, remotePath, pyBin, opts.Timeout)
	if err != nil {
		return nil, err
	}
	if exists && !opts.Force {
		return nil, cli.InvalidInputf("Remote file '%s' already exists (use --force to overwrite)", remotePath)
	}

	localSum := sha256.Sum256(payload)
	localHex := hex.EncodeToString(localSum[:])

	remoteHex, err := t.runUpload(session, remotePath, pyBin, payload, opts.Force, opts.Timeout)
	if err != nil {
		return nil, err
	}
	if remoteHex != localHex {
		return nil, fmt.Errorf("upload hash mismatch: local %s, remote %s", localHex, remoteHex)
	}
	t.Log.Debug("hash verified", "sha256", localHex)

	return &UploadResult{Bytes: len(payload), RemotePath: remotePath, SHA256: localHex}, nil
}

// DownloadOptions configures Download.
type DownloadOptions struct {
	Force   bool
	Timeout time.Duration

	// Stdout, when non-nil, receives the raw bytes instead of a local
	// file ("-" destination).
	Stdout io.Writer
}

// DownloadResult reports a finished download.
type DownloadResult struct {
	Bytes     int
	LocalPath string // empty for stdout
	SHA256    string
	Strategy  string
}

// Download fetches a file out of the session.
func (t *Transferor) Download(session, remotePath, localPath string, opts DownloadOptions) (*DownloadResult, error) {
	if opts.Timeout < 0 {
		return nil, cli.InvalidInputf("timeout must be non-negative")
	}
	if err := t.preconditions(session, lockstate.CapDownload); err != nil {
		return nil, err
	}
	if opts.Stdout == nil {
		parent := filepath.Dir(localPath)
		if _, err := os.Stat(parent); err != nil {
			return nil, cli.InvalidInputf("Parent directory '%s' does not exist", parent)
		}
		if _, err := os.Stat(localPath); err == nil && !opts.Force {
			return nil, cli.InvalidInputf("Local file '%s' already exists (use --force to overwrite)", localPath)
		}
	}

	// The pipe strategy cannot work when the pane already sits on the
	// alternate screen (a nested tmux or pager owns the stream), so
	// those sessions go straight to chunked without persisting it.
	startedOnAlt, err := t.Server.AlternateScreen(session)
	if err != nil {
		return nil, err
	}

	restore, err := t.enterTransferScreen(session)
	if err != nil {
		return nil, err
	}
	defer restore()

	pyBin, err := t.probePython(session, opts.Timeout)
	if err != nil {
		return nil, err
	}
	exists, err := t.fileExists(session, remotePath, pyBin, opts.Timeout)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, cli.InvalidInputf("Remote file '%s' does not exist", remotePath)
	}

	remembered, err := t.Server.GetOption(session, StrategyOption)
	if err != nil {
		return nil, err
	}

	var data []byte
	var remoteHex, strategy string
	switch {
	case remembered == "chunked" || startedOnAlt:
		t.Log.Debug("using chunked strategy", "remembered", remembered, "alternate", startedOnAlt)
		data, remoteHex, err = t.downloadChk(session, remotePath, pyBin, opts.Timeout)
		strategy = "chunked"
	default:
		t.Log.Debug("trying pipe-pane strategy")
		data, remoteHex, err = t.downloadPipe(session, remotePath, pyBin, opts.Timeout)
		strategy = "pipe-pane"
		if err == nil && !digestMatches(data, remoteHex) {
			t.Log.Debug("pipe-pane capture corrupt, switching to chunked")
			if err := t.Server.SetOption(session, StrategyOption, "chunked"); err != nil {
				return nil, err
			}
			data, remoteHex, err = t.downloadChk(session, remotePath, pyBin, opts.Timeout)
			strategy = "chunked"
		}
	}
	if err != nil {
		return nil, err
	}
	if !digestMatches(data, remoteHex) {
		return nil, fmt.Errorf("download hash mismatch after %s strategy", strategy)
	}
	t.Log.Debug("hash verified", "sha256", remoteHex, "strategy", strategy)

	if opts.Stdout != nil {
		if _, err := opts.Stdout.Write(data); err != nil {
			return nil, fmt.Errorf("writing stdout: %w", err)
		}
		return &DownloadResult{Bytes: len(data), SHA256: remoteHex, Strategy: strategy}, nil
	}

	if err := writeAtomic(localPath, data); err != nil {
		return nil, err
	}
	return &DownloadResult{Bytes: len(data), LocalPath: localPath, SHA256: remoteHex, Strategy: strategy}, nil
}

func digestMatches(data []byte, hexDigest string) bool {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]) == hexDigest
}

// writeAtomic writes via a temp file in the destination directory and
// renames into place, so a failed download never leaves a truncated
// file at the target path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".term-cli-dl-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
