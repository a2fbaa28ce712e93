package transfer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/EliasOenal/term-cli/lib/cli"
)

// base64Width is the line width of the armored payload. 76 matches
// classic MIME armor and stays inside MinWidth terminals.
const base64Width = 76

// pasteDelay paces heredoc lines so a slow far side (SSH, serial) is
// never outrun.
const pasteDelay = 15 * time.Millisecond

func compressArmor(payload []byte) ([]string, error) {
	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	if _, err := zw.Write(payload); err != nil {
		return nil, fmt.Errorf("compressing payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing payload: %w", err)
	}
	armored := base64.StdEncoding.EncodeToString(compressed.Bytes())
	var lines []string
	for len(armored) > base64Width {
		lines = append(lines, armored[:base64Width])
		armored = armored[base64Width:]
	}
	return append(lines, armored), nil
}

func dearmor(lines []string) ([]byte, error) {
	compressed, err := base64.StdEncoding.DecodeString(strings.Join(lines, ""))
	if err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}
	defer zr.Close()
	var out bytes.Buffer
	if _, err := out.ReadFrom(zr); err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}
	return out.Bytes(), nil
}

// runUploadReal feeds the armored payload to a python3 helper through
// a heredoc. The helper decodes, decompresses, writes through a temp
// file in the target directory, renames into place, and reports the
// sha256 of what it wrote.
func (t *Transferor) runUploadReal(session, remotePath, pyBin string, payload []byte, force bool, timeout time.Duration) (string, error) {
	id := t.transferID()
	doneTag := "TC_DONE_" + id
	errTag := "TC_ERR_" + id
	noWriteTag := "TC_NOWRITE_" + id
	eof := "TC_EOF_" + id

	armor, err := compressArmor(payload)
	if err != nil {
		return "", err
	}

	lines := []string{pyBin + " <<'" + eof + "'"}
	lines = append(lines,
		"import base64,gzip,hashlib,os,tempfile",
		"b=''",
	)
	for _, line := range armor {
		lines = append(lines, "b+='"+line+"'")
	}
	lines = append(lines,
		"try:",
		"    raw=gzip.decompress(base64.b64decode(b))",
		"    path="+pyQuote(remotePath),
		"    d=os.path.dirname(path) or '.'",
		"    try:",
		"        fd,tmp=tempfile.mkstemp(dir=d)",
		"        with os.fdopen(fd,'wb') as f:",
		"            f.write(raw)",
		"        os.replace(tmp,path)",
		"        print('"+doneTag+" '+hashlib.sha256(raw).hexdigest())",
		"    except OSError:",
		"        print('"+noWriteTag+"')",
		"except Exception:",
		"    print('"+errTag+"')",
		eof,
	)
	if err := t.Server.PastePaced(session, lines, pasteDelay, t.Clock); err != nil {
		return "", err
	}

	screen, err := t.waitForText(session, []string{doneTag, errTag, noWriteTag}, 50, timeout)
	if err != nil {
		return "", err
	}
	if strings.Contains(screen, noWriteTag) {
		return "", cli.InvalidInputf("Cannot write to '%s'", remotePath)
	}
	if match := regexp.MustCompile(doneTag + ` ([0-9a-f]{64})`).FindStringSubmatch(screen); match != nil {
		return match[1], nil
	}
	return "", fmt.Errorf("remote helper failed writing '%s'", remotePath)
}

// downloadHelper is the remote program both download strategies run:
// it armors the file and prints it, framed by markers. The chunked
// variant pauses for a keystroke between screen-sized chunks so the
// local side can capture each window before it scrolls away.
func downloadHelper(remotePath, pyBin string, id string, chunkLines int) []string {
	eof := "TC_EOF_" + id
	lines := []string{pyBin + " <<'" + eof + "'"}
	lines = append(lines,
		"import base64,gzip,hashlib,sys",
		"path="+pyQuote(remotePath),
		"raw=open(path,'rb').read()",
		"enc=base64.b64encode(gzip.compress(raw)).decode()",
		fmt.Sprintf("w=%d", base64Width),
		"lines=[enc[i:i+w] for i in range(0,len(enc),w)]",
		fmt.Sprintf("print('TC_DL_INFO_%s %%d %%d'%%(len(enc),len(lines)))", id),
	)
	if chunkLines > 0 {
		lines = append(lines,
			fmt.Sprintf("h=%d", chunkLines),
			"for n in range(0,len(lines),h):",
			fmt.Sprintf("    print('TC_C_%s %%d'%%(n//h))", id),
			"    for l in lines[n:n+h]:",
			"        print(l)",
			"    sys.stdout.flush()",
			"    sys.stdin.readline()",
		)
	} else {
		lines = append(lines,
			"for l in lines:",
			"    print(l)",
		)
	}
	lines = append(lines,
		fmt.Sprintf("print('TC_DL_END_%s '+hashlib.sha256(raw).hexdigest())", id),
		eof,
	)
	return lines
}

var base64LineRE = regexp.MustCompile(`^[A-Za-z0-9+/]+=*$`)

// downloadPipeReal captures the helper's output stream with pipe-pane
// into a local temp file. One pass, no pacing; the digest check in the
// caller decides whether the stream arrived intact.
func (t *Transferor) downloadPipeReal(session, remotePath, pyBin string, timeout time.Duration) ([]byte, string, error) {
	id := t.transferID()
	endTag := "TC_DL_END_" + id

	sink, err := os.CreateTemp("", "term-cli-pipe-*")
	if err != nil {
		return nil, "", fmt.Errorf("creating pipe sink: %w", err)
	}
	sinkPath := sink.Name()
	sink.Close()
	defer os.Remove(sinkPath)

	if err := t.Server.PipePane(session, "cat >> "+shellQuote(sinkPath)); err != nil {
		return nil, "", err
	}
	defer t.Server.PipePaneOff(session)

	helper := downloadHelper(remotePath, pyBin, id, 0)
	if err := t.Server.PastePaced(session, helper, pasteDelay, t.Clock); err != nil {
		return nil, "", err
	}

	deadline := t.Clock.Now().Add(timeout)
	var stream string
	for {
		data, err := os.ReadFile(sinkPath)
		if err != nil {
			return nil, "", err
		}
		stream = string(data)
		if strings.Contains(stream, endTag) {
			break
		}
		if !t.Clock.Now().Before(deadline) {
			return nil, "", fmt.Errorf("timed out waiting for pipe-pane stream")
		}
		t.Clock.Sleep(100 * time.Millisecond)
	}

	return parseStream(stream, id, endTag)
}

// parseStream extracts armored payload lines and the final digest from
// raw helper output. Anything that is not a full-width armor line or a
// marker (prompt fragments, control characters echoed by the pty) is
// skipped.
func parseStream(stream, id, endTag string) ([]byte, string, error) {
	digestRE := regexp.MustCompile(endTag + ` ([0-9a-f]{64})`)
	match := digestRE.FindStringSubmatch(stream)
	if match == nil {
		return nil, "", fmt.Errorf("stream ended without a digest marker")
	}
	digest := match[1]

	infoTag := "TC_DL_INFO_" + id
	var armor []string
	seenInfo := false
	for _, line := range strings.Split(stream, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.Contains(line, infoTag) {
			seenInfo = true
			armor = armor[:0]
			continue
		}
		if strings.Contains(line, endTag) {
			break
		}
		if !seenInfo {
			continue
		}
		if base64LineRE.MatchString(line) {
			armor = append(armor, line)
		}
	}
	data, err := dearmor(armor)
	if err != nil {
		return nil, "", err
	}
	return data, digest, nil
}

var dlInfoRE = regexp.MustCompile(`TC_DL_INFO_\S+ (\d+) (\d+)`)

// downloadChunkedReal drives the helper one screenful at a time. Each
// chunk is read back with capture-pane and acknowledged with a
// keystroke, so it works inside nested tmux and anywhere pipe-pane
// cannot see the real output stream.
func (t *Transferor) downloadChunkedReal(session, remotePath, pyBin string, timeout time.Duration) ([]byte, string, error) {
	id := t.transferID()
	infoTag := "TC_DL_INFO_" + id
	endTag := "TC_DL_END_" + id

	_, rows, err := t.Server.PaneDimensions(session)
	if err != nil {
		return nil, "", err
	}
	chunkLines := rows - 4
	if chunkLines < 1 {
		chunkLines = 1
	}

	helper := downloadHelper(remotePath, pyBin, id, chunkLines)
	if err := t.Server.PastePaced(session, helper, pasteDelay, t.Clock); err != nil {
		return nil, "", err
	}

	screen, err := t.waitForText(session, []string{infoTag}, 0, timeout)
	if err != nil {
		return nil, "", err
	}
	info := dlInfoRE.FindStringSubmatch(screen)
	if info == nil {
		return nil, "", fmt.Errorf("could not parse TC_DL_INFO marker")
	}
	var encLen, totalLines int
	fmt.Sscanf(info[1], "%d", &encLen)
	fmt.Sscanf(info[2], "%d", &totalLines)

	var armor []string
	chunk := 0
	for len(armor) < totalLines {
		marker := fmt.Sprintf("TC_C_%s %d", id, chunk)
		screen, err := t.waitForText(session, []string{marker}, 0, timeout)
		if err != nil {
			return nil, "", err
		}
		collected := collectChunk(screen, marker)
		want := totalLines - len(armor)
		if want > chunkLines {
			want = chunkLines
		}
		if len(collected) < want {
			// Chunk not fully rendered yet; poll again.
			t.Clock.Sleep(100 * time.Millisecond)
			screen, err = t.waitForText(session, []string{marker}, 0, timeout)
			if err != nil {
				return nil, "", err
			}
			collected = collectChunk(screen, marker)
			if len(collected) < want {
				return nil, "", fmt.Errorf("chunk %d incomplete: %d of %d lines", chunk, len(collected), want)
			}
		}
		armor = append(armor, collected[:want]...)
		if err := t.Server.SendEnter(session); err != nil {
			return nil, "", err
		}
		chunk++
	}

	screen, err = t.waitForText(session, []string{endTag}, 0, timeout)
	if err != nil {
		return nil, "", err
	}
	match := regexp.MustCompile(endTag + ` ([0-9a-f]{64})`).FindStringSubmatch(screen)
	if match == nil {
		return nil, "", fmt.Errorf("chunked stream ended without a digest marker")
	}

	joined := strings.Join(armor, "")
	if len(joined) != encLen {
		return nil, "", fmt.Errorf("chunked stream truncated: %d of %d armor bytes", len(joined), encLen)
	}
	data, err := dearmor(armor)
	if err != nil {
		return nil, "", err
	}
	return data, match[1], nil
}

// collectChunk returns the armor lines following the given chunk
// marker on the captured screen.
func collectChunk(screen, marker string) []string {
	var lines []string
	seen := false
	for _, line := range strings.Split(screen, "\n") {
		line = strings.TrimRight(line, " \r")
		if strings.Contains(line, marker) {
			seen = true
			lines = lines[:0]
			continue
		}
		if !seen {
			continue
		}
		if base64LineRE.MatchString(line) {
			lines = append(lines, line)
		}
	}
	return lines
}
