package tmux

import "fmt"

// MouseButton is a clickable button. Scroll is not a button; use
// SendMouseScroll.
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseMiddle
	MouseRight
)

// ParseMouseButton maps the CLI button names.
func ParseMouseButton(name string) (MouseButton, error) {
	switch name {
	case "left":
		return MouseLeft, nil
	case "middle":
		return MouseMiddle, nil
	case "right":
		return MouseRight, nil
	}
	return 0, fmt.Errorf("invalid choice %q for button (choose from left, middle, right)", name)
}

// MouseEncoding selects the escape-sequence dialect the target
// program was told to expect. SGR (1006) is what modern full-screen
// programs enable; X10 is the legacy fallback with its 223-cell
// coordinate limit.
type MouseEncoding string

const (
	EncodingSGR MouseEncoding = "sgr"
	EncodingX10 MouseEncoding = "x10"
)

// ParseMouseEncoding maps the CLI encoding names.
func ParseMouseEncoding(name string) (MouseEncoding, error) {
	switch name {
	case "", "sgr":
		return EncodingSGR, nil
	case "x10":
		return EncodingX10, nil
	}
	return "", fmt.Errorf("invalid choice %q for mouse encoding (choose from sgr, x10)", name)
}

// SendMouseClick synthesizes a press+release at the zero-based cell
// (x, y). The bytes go through send-keys -H so tmux cannot reinterpret
// the escape sequence as keys.
func (s *Server) SendMouseClick(sessionName string, x, y int, button MouseButton, enc MouseEncoding) error {
	var event []byte
	switch enc {
	case EncodingX10:
		event = append(event, x10Event(int(button), x, y)...)
		event = append(event, x10Event(3, x, y)...) // 3 = release
	default:
		event = append(event, sgrEvent(int(button), x, y, true)...)
		event = append(event, sgrEvent(int(button), x, y, false)...)
	}
	return s.SendBytes(sessionName, event)
}

// SendMouseScroll synthesizes count wheel events at (x, y). Positive
// count scrolls down, negative up.
func (s *Server) SendMouseScroll(sessionName string, x, y, count int, enc MouseEncoding) error {
	code := 65 // wheel down
	if count < 0 {
		code = 64
		count = -count
	}
	var event []byte
	for i := 0; i < count; i++ {
		switch enc {
		case EncodingX10:
			event = append(event, x10Event(code, x, y)...)
		default:
			event = append(event, sgrEvent(code, x, y, true)...)
		}
	}
	return s.SendBytes(sessionName, event)
}

func sgrEvent(code, x, y int, press bool) []byte {
	suffix := byte('m')
	if press {
		suffix = 'M'
	}
	return []byte(fmt.Sprintf("\x1b[<%d;%d;%d%c", code, x+1, y+1, suffix))
}

// x10Event encodes one legacy event. Coordinates clamp at 223, the
// largest cell the single-byte encoding can carry.
func x10Event(code, x, y int) []byte {
	col := x + 1
	row := y + 1
	if col > 223 {
		col = 223
	}
	if row > 223 {
		row = 223
	}
	return []byte{0x1b, '[', 'M', byte(32 + code), byte(32 + col), byte(32 + row)}
}
