package screen

import (
	"fmt"
	"strings"
)

// TrimTrailingBlanks removes trailing rows that are empty or contain
// only whitespace. Leading and interior blank rows are preserved, so
// row indices of the remaining lines are unchanged.
func TrimTrailingBlanks(lines []string) []string {
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[:end]
}

// SplitLines splits a capture into physical rows, dropping the
// terminating newline tmux appends.
func SplitLines(capture string) []string {
	return strings.Split(strings.TrimSuffix(capture, "\n"), "\n")
}

// NumberLine formats one screen line with its 1-based row number. The
// number field is three columns wide; larger numbers widen the field
// naturally.
func NumberLine(n int, line string) string {
	return fmt.Sprintf("%3d│ %s", n, line)
}

// Report is a fully assembled capture for output: screen lines plus
// the annotation block.
type Report struct {
	// Lines are the display rows; FirstRow is the 1-based row number
	// of Lines[0] (greater than 1 when a tail window is shown).
	Lines    []string
	FirstRow int

	// Numbered prefixes every line with its row number. Annotated mode
	// always numbers, so annotation rows can be matched to lines.
	Numbered bool

	// Annotate appends the annotation block.
	Annotate bool

	// CursorRow and CursorCol are 1-based.
	CursorRow, CursorCol int

	// Alternate marks an active alternate screen.
	Alternate bool

	// BellCleared reports that a bell was pending and has been
	// acknowledged by this capture.
	BellCleared bool

	Annotations []Annotation
}

// Render assembles the report. Annotation rows are filtered to the
// visible window and carry the same absolute row numbers as the screen
// lines above them.
func (r *Report) Render() string {
	var b strings.Builder
	numbered := r.Numbered || r.Annotate
	firstRow := r.FirstRow
	if firstRow < 1 {
		firstRow = 1
	}

	for i, line := range r.Lines {
		if numbered {
			b.WriteString(NumberLine(firstRow+i, line))
		} else {
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}

	if !r.Annotate {
		return b.String()
	}

	b.WriteString("\nAnnotations:\n")
	fmt.Fprintf(&b, "Cursor: %d,%d\n", r.CursorRow, r.CursorCol)
	if r.Alternate {
		b.WriteString("Screen: alternate\n")
	}
	if r.BellCleared {
		b.WriteString("Bell: yes (cleared)\n")
	}
	lastRow := firstRow + len(r.Lines) - 1
	for _, a := range r.Annotations {
		rowNum := a.Row + 1
		if rowNum < firstRow || rowNum > lastRow {
			continue
		}
		b.WriteString(NumberLine(rowNum, fmt.Sprintf("[%s] %s", a.Label, a.Text)))
		b.WriteByte('\n')
	}
	return b.String()
}
