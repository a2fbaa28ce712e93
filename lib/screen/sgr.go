// Package screen parses raw tmux pane captures and renders them for
// automated callers. The annotation engine turns SGR color state into
// row annotations describing TUI highlights (selected items, dialog
// buttons, menu bars) that are invisible in a plain text capture.
package screen

import (
	"fmt"
	"strconv"
	"strings"
)

// RGB is a 24-bit color.
type RGB struct {
	R, G, B uint8
}

// Default terminal colors. Captures carry no theme information, so the
// conventional white-on-black palette is assumed; only relative
// differences matter to the annotation engine.
var (
	defaultFg = RGB{170, 170, 170}
	defaultBg = RGB{0, 0, 0}
)

// basicColors is the VGA palette for SGR 40-47 (and 30-37).
var basicColors = [8]RGB{
	{0, 0, 0},       // black
	{170, 0, 0},     // red
	{0, 170, 0},     // green
	{170, 85, 0},    // yellow
	{0, 0, 170},     // blue
	{170, 0, 170},   // magenta
	{0, 170, 170},   // cyan
	{170, 170, 170}, // white
}

// brightColors is the palette for SGR 100-107 (and 90-97).
var brightColors = [8]RGB{
	{85, 85, 85},
	{255, 85, 85},
	{85, 255, 85},
	{255, 255, 85},
	{85, 85, 255},
	{255, 85, 255},
	{85, 255, 255},
	{255, 255, 255},
}

var colorNames = [8]string{
	"black", "red", "green", "yellow", "blue", "magenta", "cyan", "white",
}

// Label returns the annotation label for a background color:
// "bg:<name>" for exact matches against the basic and bright palettes,
// "bg:rgb(r,g,b)" otherwise.
func Label(c RGB) string {
	for i, basic := range basicColors {
		if c == basic {
			return "bg:" + colorNames[i]
		}
	}
	for i, bright := range brightColors {
		if c == bright {
			return "bg:bright-" + colorNames[i]
		}
	}
	return fmt.Sprintf("bg:rgb(%d,%d,%d)", c.R, c.G, c.B)
}

// Color256 maps an xterm 256-color index to RGB. Indices 0-15 use the
// basic and bright palettes, 16-231 the 6x6x6 cube, 232-255 the
// grayscale ramp.
func Color256(n int) RGB {
	switch {
	case n < 0 || n > 255:
		return defaultBg
	case n < 8:
		return basicColors[n]
	case n < 16:
		return brightColors[n-8]
	case n < 232:
		cube := func(v int) uint8 {
			if v == 0 {
				return 0
			}
			return uint8(55 + 40*v)
		}
		n -= 16
		return RGB{cube(n / 36), cube(n / 6 % 6), cube(n % 6)}
	default:
		gray := uint8(8 + 10*(n-232))
		return RGB{gray, gray, gray}
	}
}

// Segment is a horizontal run of text sharing one effective style.
// Reverse video has already been resolved: Bg is the color actually
// painted behind the text.
type Segment struct {
	Text string
	Fg   RGB
	Bg   RGB
	Bold bool
}

type sgrState struct {
	fg, bg  RGB
	bold    bool
	reverse bool
}

func (s *sgrState) reset() {
	s.fg = defaultFg
	s.bg = defaultBg
	s.bold = false
	s.reverse = false
}

func (s *sgrState) effective() (fg, bg RGB) {
	if s.reverse {
		return s.bg, s.fg
	}
	return s.fg, s.bg
}

// ParseRaw parses a raw capture (capture-pane -e output) into rows of
// styled segments. SGR state carries across line boundaries: a color
// set on one row still applies on the next until changed, exactly as
// the terminal painted it. Non-SGR escape sequences are discarded.
func ParseRaw(raw string) [][]Segment {
	var rows [][]Segment
	var row []Segment
	var text strings.Builder

	state := sgrState{}
	state.reset()
	segFg, segBg := state.effective()
	segBold := state.bold

	flush := func() {
		if text.Len() > 0 {
			row = append(row, Segment{text.String(), segFg, segBg, segBold})
			text.Reset()
		}
	}
	syncStyle := func() {
		fg, bg := state.effective()
		if fg != segFg || bg != segBg || state.bold != segBold {
			flush()
			segFg, segBg, segBold = fg, bg, state.bold
		}
	}

	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == 0x1b:
			i += consumeEscape(runes[i:], &state)
			syncStyle()
		case r == '\n':
			flush()
			rows = append(rows, row)
			row = nil
		case r < 0x20 && r != '\t':
			// Bare control characters (BEL, CR) carry no content.
		default:
			text.WriteRune(r)
		}
	}
	flush()
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

// consumeEscape processes the escape sequence starting at runes[0]
// (which is ESC) and returns how many additional runes to skip. SGR
// sequences update the state; everything else is skipped unchanged.
func consumeEscape(runes []rune, state *sgrState) int {
	if len(runes) < 2 {
		return 0
	}
	switch runes[1] {
	case '[':
		// CSI: parameters then a final byte in @-~.
		j := 2
		for j < len(runes) && !(runes[j] >= '@' && runes[j] <= '~') {
			j++
		}
		if j >= len(runes) {
			return len(runes) - 1
		}
		if runes[j] == 'm' {
			applySGR(string(runes[2:j]), state)
		}
		return j
	case ']':
		// OSC: terminated by BEL or ST (ESC \).
		j := 2
		for j < len(runes) {
			if runes[j] == 0x07 {
				return j
			}
			if runes[j] == 0x1b && j+1 < len(runes) && runes[j+1] == '\\' {
				return j + 1
			}
			j++
		}
		return len(runes) - 1
	default:
		return 1
	}
}

func applySGR(params string, state *sgrState) {
	if params == "" {
		state.reset()
		return
	}
	fields := strings.Split(params, ";")
	codes := make([]int, 0, len(fields))
	for _, f := range fields {
		// Colon sub-parameters (ISO 8613-6 style) are normalized to
		// their leading value; tmux emits semicolons.
		if idx := strings.IndexByte(f, ':'); idx >= 0 {
			f = f[:idx]
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			n = 0
		}
		codes = append(codes, n)
	}

	for i := 0; i < len(codes); i++ {
		switch c := codes[i]; {
		case c == 0:
			state.reset()
		case c == 1:
			state.bold = true
		case c == 22:
			state.bold = false
		case c == 7:
			state.reverse = true
		case c == 27:
			state.reverse = false
		case c >= 30 && c <= 37:
			state.fg = basicColors[c-30]
		case c == 38:
			if color, consumed, ok := extendedColor(codes[i+1:]); ok {
				state.fg = color
				i += consumed
			}
		case c == 39:
			state.fg = defaultFg
		case c >= 40 && c <= 47:
			state.bg = basicColors[c-40]
		case c == 48:
			if color, consumed, ok := extendedColor(codes[i+1:]); ok {
				state.bg = color
				i += consumed
			}
		case c == 49:
			state.bg = defaultBg
		case c >= 90 && c <= 97:
			state.fg = brightColors[c-90]
		case c >= 100 && c <= 107:
			state.bg = brightColors[c-100]
		}
	}
}

// extendedColor decodes the arguments following SGR 38/48: either
// "5;<index>" or "2;<r>;<g>;<b>". Returns the color, how many codes
// were consumed, and whether decoding succeeded.
func extendedColor(codes []int) (RGB, int, bool) {
	if len(codes) >= 2 && codes[0] == 5 {
		return Color256(codes[1]), 2, true
	}
	if len(codes) >= 4 && codes[0] == 2 {
		return RGB{uint8(codes[1]), uint8(codes[2]), uint8(codes[3])}, 4, true
	}
	return RGB{}, 0, false
}
