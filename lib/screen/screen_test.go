package screen

import (
	"fmt"
	"strings"
	"testing"
)

func rowText(segs []Segment) string {
	var b strings.Builder
	for _, seg := range segs {
		b.WriteString(seg.Text)
	}
	return b.String()
}

func findSegment(segs []Segment, substr string) (Segment, bool) {
	for _, seg := range segs {
		if strings.Contains(seg.Text, substr) {
			return seg, true
		}
	}
	return Segment{}, false
}

func TestParsePlainText(t *testing.T) {
	rows := ParseRaw("hello world\n")
	if len(rows) != 1 {
		t.Fatalf("got %d rows", len(rows))
	}
	if got := rowText(rows[0]); !strings.Contains(got, "hello world") {
		t.Errorf("row text = %q", got)
	}
	for _, seg := range rows[0] {
		if seg.Bg != defaultBg {
			t.Errorf("plain text bg = %v, want default", seg.Bg)
		}
	}
}

func TestParseColoredBg(t *testing.T) {
	rows := ParseRaw("\x1b[42mGREEN BG\x1b[0m normal\n")
	seg, ok := findSegment(rows[0], "GREEN BG")
	if !ok {
		t.Fatalf("no GREEN BG segment in %v", rows[0])
	}
	if seg.Bg == defaultBg || seg.Bg.G == 0 {
		t.Errorf("green bg = %v", seg.Bg)
	}
}

func TestParseReverseVideoResolvesBg(t *testing.T) {
	rows := ParseRaw("\x1b[7mREVERSED\x1b[0m\n")
	seg, ok := findSegment(rows[0], "REVERSED")
	if !ok {
		t.Fatal("no REVERSED segment")
	}
	if seg.Bg == defaultBg {
		t.Error("reverse video should produce a non-default bg")
	}
}

func TestParseStateCarriesAcrossLines(t *testing.T) {
	rows := ParseRaw("\x1b[41mRED LINE1\nRED LINE2\x1b[0m\n")
	if len(rows) < 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	seg, ok := findSegment(rows[1], "RED LINE2")
	if !ok {
		t.Fatal("no RED LINE2 segment")
	}
	if seg.Bg == defaultBg {
		t.Error("bg state should carry across the newline")
	}
}

func TestParseTruecolorBg(t *testing.T) {
	rows := ParseRaw("\x1b[48;2;100;150;200mTRUECOLOR\x1b[0m\n")
	seg, ok := findSegment(rows[0], "TRUECOLOR")
	if !ok {
		t.Fatal("no TRUECOLOR segment")
	}
	if seg.Bg != (RGB{100, 150, 200}) {
		t.Errorf("bg = %v, want {100 150 200}", seg.Bg)
	}
}

func TestParseResetClearsState(t *testing.T) {
	rows := ParseRaw("\x1b[41;7;1mSTYLED\x1b[0mPLAIN\n")
	seg, ok := findSegment(rows[0], "PLAIN")
	if !ok {
		t.Fatal("no PLAIN segment")
	}
	if seg.Bg != defaultBg || seg.Bold {
		t.Errorf("after reset: bg=%v bold=%v", seg.Bg, seg.Bold)
	}
}

func TestParseEmptyInput(t *testing.T) {
	if rows := ParseRaw(""); len(rows) != 0 {
		t.Errorf("got %d rows, want 0", len(rows))
	}
}

func TestColor256CubeMatchesXterm(t *testing.T) {
	cases := []struct {
		index int
		want  RGB
	}{
		{16, RGB{0, 0, 0}},
		{17, RGB{0, 0, 95}},
		{21, RGB{0, 0, 255}},
		{52, RGB{95, 0, 0}},
		{88, RGB{135, 0, 0}},
		{160, RGB{215, 0, 0}},
		{196, RGB{255, 0, 0}},
		{231, RGB{255, 255, 255}},
		{232, RGB{8, 8, 8}},
		{255, RGB{238, 238, 238}},
	}
	for _, tc := range cases {
		if got := Color256(tc.index); got != tc.want {
			t.Errorf("Color256(%d) = %v, want %v", tc.index, got, tc.want)
		}
	}
}

func plainScreen(rows int) []string {
	lines := make([]string, rows)
	for i := range lines {
		lines[i] = fmt.Sprintf("normal line %d", i)
	}
	return lines
}

func TestAnnotatePlainTextNoAnnotations(t *testing.T) {
	if got := Annotate("hello world\nfoo bar\nbaz\n"); len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}

func TestAnnotateEmptyInput(t *testing.T) {
	if got := Annotate(""); len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}

func TestAnnotateColoredBgDetected(t *testing.T) {
	lines := plainScreen(20)
	lines[5] = "\x1b[42m  ACTIVE TAB  \x1b[0m"
	annotations := Annotate(strings.Join(lines, "\n") + "\n")
	var hit bool
	for _, a := range annotations {
		if a.Row == 5 && strings.Contains(a.Text, "ACTIVE TAB") {
			hit = true
		}
	}
	if !hit {
		t.Errorf("no ACTIVE TAB annotation on row 5: %v", annotations)
	}
}

func TestAnnotateReverseVideoDetected(t *testing.T) {
	lines := plainScreen(20)
	lines[10] = "\x1b[7m  SELECTED ITEM  \x1b[0m"
	annotations := Annotate(strings.Join(lines, "\n") + "\n")
	var hit bool
	for _, a := range annotations {
		if a.Row == 10 && strings.Contains(a.Text, "SELECTED ITEM") {
			hit = true
		}
	}
	if !hit {
		t.Errorf("no SELECTED ITEM annotation: %v", annotations)
	}
}

func TestAnnotateStructuralBgIgnored(t *testing.T) {
	var lines []string
	for i := 0; i < 24; i++ {
		lines = append(lines, fmt.Sprintf("\x1b[44m%-80s\x1b[0m", fmt.Sprintf("content %d", i)))
	}
	if got := Annotate(strings.Join(lines, "\n") + "\n"); len(got) != 0 {
		t.Errorf("structural panel should not be annotated: %v", got)
	}
}

func TestAnnotateHighlightOnStructuralBg(t *testing.T) {
	var lines []string
	for i := 0; i < 24; i++ {
		lines = append(lines, fmt.Sprintf("\x1b[44m%-80s\x1b[0m", fmt.Sprintf("  item %d", i)))
	}
	lines[10] = fmt.Sprintf("\x1b[44;7m%-80s\x1b[0m", "> selected item")
	annotations := Annotate(strings.Join(lines, "\n") + "\n")
	var hit bool
	for _, a := range annotations {
		if a.Row == 10 {
			hit = true
		}
	}
	if !hit {
		t.Errorf("highlight on structural bg not detected: %v", annotations)
	}
}

func TestAnnotateNamedRGBLabel(t *testing.T) {
	lines := plainScreen(20)
	lines[10] = "\x1b[48;2;255;85;85m  RED_NAMED  \x1b[0m"
	annotations := Annotate(strings.Join(lines, "\n") + "\n")
	var hit bool
	for _, a := range annotations {
		if a.Row == 10 && strings.Contains(a.Text, "RED_NAMED") && a.Label == "bg:bright-red" {
			hit = true
		}
	}
	if !hit {
		t.Errorf("want bg:bright-red label: %v", annotations)
	}
}

func TestAnnotateRGBLabelWhenNotNamed(t *testing.T) {
	lines := plainScreen(20)
	lines[10] = "\x1b[48;5;17m  BLUE_17  \x1b[0m"
	annotations := Annotate(strings.Join(lines, "\n") + "\n")
	var hit bool
	for _, a := range annotations {
		if a.Row == 10 && a.Label == "bg:rgb(0,0,95)" {
			hit = true
		}
	}
	if !hit {
		t.Errorf("want bg:rgb(0,0,95) label: %v", annotations)
	}
}

func TestAnnotateSignalCFlankedButton(t *testing.T) {
	lines := make([]string, 20)
	for i := range lines {
		lines[i] = fmt.Sprintf("normal line %70d", i)
	}
	lines[10] = "\x1b[7m" + strings.Repeat(" ", 20) + "\x1b[0m" + "[ OK ]" +
		"\x1b[7m" + strings.Repeat(" ", 20) + "\x1b[0m"
	annotations := Annotate(strings.Join(lines, "\n") + "\n")
	var hit bool
	for _, a := range annotations {
		if a.Row == 10 && strings.Contains(a.Text, "OK") {
			hit = true
		}
	}
	if !hit {
		t.Errorf("flanked button not detected: %v", annotations)
	}
}

func TestDedupSameRowLabelKeepsLongest(t *testing.T) {
	blue, cyan, black, reset := "\x1b[44m", "\x1b[46m", "\x1b[40m", "\x1b[0m"
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, fmt.Sprintf("%s%-80s%s", blue, "normal line", reset))
	}
	bar := ""
	for i, label := range []string{"Help", "Menu", "View", "Edit", "Copy"} {
		bar += fmt.Sprintf("%s %d%s%-6s", black, i+1, cyan, label)
	}
	lines[19] = bar + reset
	annotations := Annotate(strings.Join(lines, "\n") + "\n")

	var cyanAnnotations []Annotation
	for _, a := range annotations {
		if a.Row == 19 && strings.Contains(a.Label, "cyan") {
			cyanAnnotations = append(cyanAnnotations, a)
		}
	}
	if len(cyanAnnotations) != 1 {
		t.Fatalf("got %d cyan annotations, want 1: %v", len(cyanAnnotations), cyanAnnotations)
	}
	if !strings.Contains(cyanAnnotations[0].Text, ",") {
		t.Errorf("bar text should be comma-joined: %q", cyanAnnotations[0].Text)
	}
}

func TestDedupDifferentLabelsBothKept(t *testing.T) {
	lines := plainScreen(20)
	lines[10] = "\x1b[42m  GREEN_ITEM  \x1b[0m    \x1b[41m  RED_ITEM  \x1b[0m"
	annotations := Annotate(strings.Join(lines, "\n") + "\n")
	labels := map[string]bool{}
	for _, a := range annotations {
		if a.Row == 10 {
			labels[a.Label] = true
		}
	}
	if !labels["bg:green"] || !labels["bg:red"] {
		t.Errorf("want both bg:green and bg:red, got %v", labels)
	}
}

func TestBarDetectionAtSixRuns(t *testing.T) {
	cyan, black, reset := "\x1b[46m", "\x1b[40m", "\x1b[0m"
	lines := plainScreen(20)
	lines[10] = fmt.Sprintf("%s%-10s%s  %s%-10s%s  %s%-10s%s  %s",
		cyan, "Label1", black, cyan, "Label2", black, cyan, "Label3", black, reset)
	annotations := Annotate(strings.Join(lines, "\n") + "\n")
	var hit bool
	for _, a := range annotations {
		if a.Row == 10 && strings.Contains(a.Text, "Label1") {
			hit = true
		}
	}
	if !hit {
		t.Errorf("bar mode should fire at 6 runs: %v", annotations)
	}
}

func TestNoBarModeAtFiveRuns(t *testing.T) {
	cyan, black, reset := "\x1b[46m", "\x1b[40m", "\x1b[0m"
	var lines []string
	for i := 0; i < 20; i++ {
		lines = append(lines, fmt.Sprintf("%s%-80s%s", cyan, "structural cyan row", reset))
	}
	// Five runs with 2-wide black flanks; the last cyan run is padded
	// to fill the row so no trailing run appears.
	lines[10] = fmt.Sprintf("%s%-10s%s  %s%-10s%s  %s%-56s%s",
		cyan, "LabelA", black, cyan, "LabelB", black, cyan, "LabelC", reset)
	annotations := Annotate(strings.Join(lines, "\n") + "\n")
	for _, a := range annotations {
		if a.Row == 10 && strings.Contains(a.Label, "cyan") {
			t.Errorf("structural cyan should not be annotated at 5 runs: %v", a)
		}
	}
}

func TestBarIncludesShortHotkeyRuns(t *testing.T) {
	cyan, black, reset := "\x1b[46m", "\x1b[40m", "\x1b[0m"
	lines := plainScreen(20)
	bar := ""
	for i, label := range []string{"Help", "Menu", "View", "Edit", "Copy", "Quit"} {
		bar += fmt.Sprintf("%s %d%s%-6s", black, i+1, cyan, label)
	}
	lines[10] = bar + reset
	annotations := Annotate(strings.Join(lines, "\n") + "\n")

	var blackAnnotations, cyanAnnotations []Annotation
	for _, a := range annotations {
		if a.Row != 10 {
			continue
		}
		if strings.Contains(a.Label, "black") {
			blackAnnotations = append(blackAnnotations, a)
		}
		if strings.Contains(a.Label, "cyan") {
			cyanAnnotations = append(cyanAnnotations, a)
		}
	}
	if len(blackAnnotations) != 1 || !strings.Contains(blackAnnotations[0].Text, "1") {
		t.Errorf("hotkey numbers missing: %v", blackAnnotations)
	}
	if len(cyanAnnotations) < 1 || !strings.Contains(cyanAnnotations[0].Text, "Help") {
		t.Errorf("labels missing: %v", cyanAnnotations)
	}
}

func TestCommaFormattingSingleVsMulti(t *testing.T) {
	lines := plainScreen(20)
	lines[5] = "\x1b[42m  Contiguous Text Here  \x1b[0m"
	annotations := Annotate(strings.Join(lines, "\n") + "\n")
	for _, a := range annotations {
		if a.Row == 5 && a.Label == "bg:green" && strings.Contains(a.Text, ",") {
			t.Errorf("single segment should have no comma: %q", a.Text)
		}
	}

	lines[5] = "\x1b[42m  First  \x1b[0m          \x1b[42m  Second  \x1b[0m"
	annotations = Annotate(strings.Join(lines, "\n") + "\n")
	var hit bool
	for _, a := range annotations {
		if a.Row == 5 && a.Label == "bg:green" {
			if !strings.Contains(a.Text, ",") ||
				!strings.Contains(a.Text, "First") || !strings.Contains(a.Text, "Second") {
				t.Errorf("disjoint segments should be comma-joined: %q", a.Text)
			}
			hit = true
		}
	}
	if !hit {
		t.Error("no green annotation for disjoint segments")
	}
}

func TestAnnotationTextNeverTruncated(t *testing.T) {
	lines := make([]string, 20)
	for i := range lines {
		lines[i] = strings.Repeat(" ", 200)
	}
	lines[10] = "\x1b[42m" + strings.Repeat("A", 200) + "\x1b[0m"
	annotations := Annotate(strings.Join(lines, "\n") + "\n")
	var hit bool
	for _, a := range annotations {
		if a.Row == 10 && len(a.Text) == 200 {
			hit = true
		}
	}
	if !hit {
		t.Errorf("expected full 200-char text: %v", annotations)
	}
}

func TestTrimTrailingBlanks(t *testing.T) {
	lines := []string{"one", "", "two", "   ", ""}
	got := TrimTrailingBlanks(lines)
	want := []string{"one", "", "two"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReportRender(t *testing.T) {
	report := &Report{
		Lines:       []string{"hello", "world"},
		FirstRow:    7,
		Annotate:    true,
		CursorRow:   8,
		CursorCol:   1,
		BellCleared: true,
		Annotations: []Annotation{
			{Row: 6, Text: "  HIT  ", Label: "bg:green"},
			{Row: 0, Text: "early", Label: "bg:red"},
		},
	}
	out := report.Render()

	if !strings.Contains(out, "  7│ hello") {
		t.Errorf("missing numbered line: %q", out)
	}
	if !strings.Contains(out, "Annotations:\nCursor: 8,1\n") {
		t.Errorf("cursor should lead the annotation block: %q", out)
	}
	if !strings.Contains(out, "Bell: yes (cleared)") {
		t.Errorf("missing bell line: %q", out)
	}
	if !strings.Contains(out, "[bg:green]   HIT  ") {
		t.Errorf("missing highlight row: %q", out)
	}
	// The row-0 annotation is outside the 7..8 window.
	if strings.Contains(out, "early") {
		t.Errorf("out-of-window annotation leaked: %q", out)
	}
	if strings.Contains(out, "Screen: alternate") {
		t.Errorf("alternate line should be absent: %q", out)
	}
	if idx := strings.Index(out, "Cursor:"); idx > strings.Index(out, "[bg:green]") {
		t.Error("cursor must precede highlights")
	}
}
