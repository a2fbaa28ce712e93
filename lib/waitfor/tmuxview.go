package waitfor

import (
	"strconv"

	"github.com/EliasOenal/term-cli/lib/tmux"
)

// TmuxView adapts one tmux session to the PaneView interface.
type TmuxView struct {
	Server  *tmux.Server
	Session string
}

func (v *TmuxView) Screen() (string, error) {
	return v.Server.CapturePane(v.Session, tmux.CaptureOptions{})
}

func (v *TmuxView) ScreenWithHistory(lines int) (string, error) {
	return v.Server.CapturePane(v.Session, tmux.CaptureOptions{
		JoinWraps: true,
		Start:     "-" + strconv.Itoa(lines),
	})
}

func (v *TmuxView) Cursor() (col, row int, err error) {
	return v.Server.CursorPos(v.Session)
}

func (v *TmuxView) AlternateScreen() (bool, error) {
	return v.Server.AlternateScreen(v.Session)
}
