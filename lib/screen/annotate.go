package screen

import (
	"sort"
	"strings"
)

// Annotation describes one highlighted region. Row is the 0-based
// screen row; Text is the highlighted text, never truncated; Label
// names the background color ("bg:green", "bg:rgb(0,0,95)").
type Annotation struct {
	Row   int
	Text  string
	Label string
}

// Tuning for the highlight signals. Runs are horizontal spans sharing
// one background color.
const (
	// flankMinWidth is the minimum width of the colored runs on both
	// sides of a flanked run before it counts as a dialog button.
	flankMinWidth = 3

	// flankedMaxWidth is the maximum width of a run considered for
	// flank detection; wider runs are panels, not buttons.
	flankedMaxWidth = 16

	// barMinRuns is the run count at which a row is treated as a menu
	// or hotkey bar and every run group is annotated.
	barMinRuns = 6
)

type run struct {
	bg    RGB
	text  string
	start int // column of first cell
	width int // cells (runes)
}

// Annotate parses a raw capture and returns highlight annotations for
// everything that looks deliberately highlighted: short background
// runs, runs that break a structural panel color, and bar rows.
// Structural backgrounds (panel colors covering much of the screen)
// produce no annotations themselves.
func Annotate(raw string) []Annotation {
	rows := ParseRaw(raw)
	if len(rows) == 0 {
		return nil
	}

	rowRuns := make([][]run, len(rows))
	maxWidth := 0
	for i, segs := range rows {
		rowRuns[i] = mergeRuns(segs)
		if w := rowWidth(rowRuns[i]); w > maxWidth {
			maxWidth = w
		}
	}
	if maxWidth == 0 {
		return nil
	}

	structural := structuralColors(rowRuns, len(rows), maxWidth)
	dominant := columnDominant(rowRuns, maxWidth)

	// found maps (row, label) to the best text seen so far; per row and
	// label the longest candidate wins.
	type key struct {
		row   int
		label string
	}
	found := make(map[key]string)
	record := func(row int, label, text string) {
		k := key{row, label}
		if len(text) > len(found[k]) {
			found[k] = text
		}
	}

	for rowIdx, runs := range rowRuns {
		// Signals A and B: non-structural colored runs, grouped by
		// label and comma-joined so disjoint highlights on one row
		// stay one annotation.
		groups := make(map[string][]string)
		var order []string
		for _, r := range runs {
			if r.bg == defaultBg || structural[r.bg] {
				continue
			}
			short := r.width*2 <= maxWidth
			breaksPanel := differsFromDominant(r, dominant)
			if !short && !breaksPanel {
				continue
			}
			label := Label(r.bg)
			if _, seen := groups[label]; !seen {
				order = append(order, label)
			}
			groups[label] = append(groups[label], r.text)
		}
		for _, label := range order {
			record(rowIdx, label, strings.Join(groups[label], ","))
		}

		// Signal C, bar mode: a row fragmented into many runs is a
		// menu or hotkey bar; annotate every run group, short hotkey
		// runs included.
		if len(runs) >= barMinRuns {
			barGroups := make(map[string][]string)
			var barOrder []string
			for _, r := range runs {
				label := Label(r.bg)
				if _, seen := barGroups[label]; !seen {
					barOrder = append(barOrder, label)
				}
				barGroups[label] = append(barGroups[label], r.text)
			}
			for _, label := range barOrder {
				record(rowIdx, label, strings.Join(barGroups[label], ","))
			}
			continue
		}

		// Signal C, flanked runs: a short run whose both neighbors are
		// wide runs of a different background reads as a focused
		// button inside a dialog.
		flankGroups := make(map[string][]string)
		var flankOrder []string
		for i, r := range runs {
			if i == 0 || i == len(runs)-1 || r.width > flankedMaxWidth {
				continue
			}
			left, right := runs[i-1], runs[i+1]
			if left.bg == r.bg || right.bg == r.bg {
				continue
			}
			if left.width < flankMinWidth || right.width < flankMinWidth {
				continue
			}
			label := Label(r.bg)
			if _, seen := flankGroups[label]; !seen {
				flankOrder = append(flankOrder, label)
			}
			flankGroups[label] = append(flankGroups[label], r.text)
		}
		for _, label := range flankOrder {
			record(rowIdx, label, strings.Join(flankGroups[label], ","))
		}
	}

	annotations := make([]Annotation, 0, len(found))
	for k, text := range found {
		annotations = append(annotations, Annotation{Row: k.row, Text: text, Label: k.label})
	}
	sort.Slice(annotations, func(i, j int) bool {
		if annotations[i].Row != annotations[j].Row {
			return annotations[i].Row < annotations[j].Row
		}
		return annotations[i].Label < annotations[j].Label
	})
	return annotations
}

// mergeRuns collapses a row's segments into background runs, joining
// adjacent segments that share a background even when the foreground
// or weight differs.
func mergeRuns(segs []Segment) []run {
	var runs []run
	col := 0
	for _, seg := range segs {
		width := len([]rune(seg.Text))
		if width == 0 {
			continue
		}
		if n := len(runs); n > 0 && runs[n-1].bg == seg.Bg {
			runs[n-1].text += seg.Text
			runs[n-1].width += width
		} else {
			runs = append(runs, run{bg: seg.Bg, text: seg.Text, start: col, width: width})
		}
		col += width
	}
	return runs
}

func rowWidth(runs []run) int {
	w := 0
	for _, r := range runs {
		w += r.width
	}
	return w
}

// structuralColors identifies panel backgrounds: colors that cover at
// least half the screen width on at least half the rows. A TUI's panel
// fill matches; a single selected row does not.
func structuralColors(rowRuns [][]run, totalRows, maxWidth int) map[RGB]bool {
	coverageRows := make(map[RGB]int)
	for _, runs := range rowRuns {
		perColor := make(map[RGB]int)
		for _, r := range runs {
			if r.bg == defaultBg {
				continue
			}
			perColor[r.bg] += r.width
		}
		for color, width := range perColor {
			if width*2 >= maxWidth {
				coverageRows[color]++
			}
		}
	}

	structural := make(map[RGB]bool)
	for color, count := range coverageRows {
		if count*2 >= totalRows {
			structural[color] = true
		}
	}
	return structural
}

// columnDominant returns, per column, the background color present in
// the most rows. This is the backdrop a highlight is judged against.
func columnDominant(rowRuns [][]run, maxWidth int) []RGB {
	counts := make([]map[RGB]int, maxWidth)
	for i := range counts {
		counts[i] = make(map[RGB]int)
	}
	for _, runs := range rowRuns {
		for _, r := range runs {
			for col := r.start; col < r.start+r.width && col < maxWidth; col++ {
				counts[col][r.bg]++
			}
		}
	}

	dominant := make([]RGB, maxWidth)
	for col, perColor := range counts {
		best, bestCount := defaultBg, 0
		for color, count := range perColor {
			if count > bestCount {
				best, bestCount = color, count
			}
		}
		dominant[col] = best
	}
	return dominant
}

// differsFromDominant reports whether the run's background differs
// from the dominant backdrop over the majority of its span.
func differsFromDominant(r run, dominant []RGB) bool {
	differing := 0
	for col := r.start; col < r.start+r.width && col < len(dominant); col++ {
		if dominant[col] != r.bg {
			differing++
		}
	}
	return differing*2 > r.width
}
