package session

import (
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/EliasOenal/term-cli/lib/cli"
	"github.com/EliasOenal/term-cli/lib/handoff"
	"github.com/EliasOenal/term-cli/lib/lockstate"
)

// ProcessLister returns a process table in "pid ppid comm" rows.
type ProcessLister func() ([]byte, error)

func realPS() ([]byte, error) {
	return exec.Command("ps", "-eo", "pid=,ppid=,comm=").Output()
}

// Status describes one session for the status report.
type Status struct {
	Name       string
	Running    bool // a foreground process is active beyond the shell
	Cols, Rows int
	Attached   bool
	Locked     bool
	Alternate  bool
	Foreground string // command name of the foreground process, when running
	Tree       []string
	Windows    int
	Created    time.Time
	Request    *handoff.Record
}

// Status collects the full state of one session.
func (m *Manager) Status(name string) (*Status, error) {
	if !m.Server.HasSession(name) {
		return nil, cli.InvalidInputf("Session '%s' does not exist", name)
	}

	sessions, err := m.Server.ListSessions()
	if err != nil {
		return nil, err
	}
	st := &Status{Name: name}
	for _, info := range sessions {
		if info.Name == name {
			st.Cols = info.Cols
			st.Rows = info.Rows
			st.Attached = info.Attached
			st.Created = info.Created
			break
		}
	}

	if st.Locked, err = lockstate.IsLocked(m.Server, name); err != nil {
		return nil, err
	}
	if st.Alternate, err = m.Server.AlternateScreen(name); err != nil {
		return nil, err
	}
	coord := &handoff.Coordinator{Server: m.Server, Clock: m.Clock}
	if st.Request, err = coord.Status(name); err != nil {
		return nil, err
	}

	windows, err := m.Server.Run("list-windows", "-t", "="+name, "-F", "#{window_index}")
	if err != nil {
		return nil, err
	}
	st.Windows = len(strings.Fields(windows))

	panePID, err := m.Server.PanePID(name)
	if err != nil {
		return nil, err
	}
	ps := m.PS
	if ps == nil {
		ps = realPS
	}
	table, err := ps()
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}
	procs := parseProcessTable(string(table))
	st.Tree = renderTree(procs, panePID)
	st.Foreground = foregroundCommand(procs, panePID)
	st.Running = st.Foreground != ""
	return st, nil
}

// Render formats the status report.
func (st *Status) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\n", st.Name)
	state := "idle"
	if st.Running {
		state = "running"
	}
	fmt.Fprintf(&b, "State: %s\n", state)
	fmt.Fprintf(&b, "Size: %dx%d\n", st.Cols, st.Rows)
	fmt.Fprintf(&b, "Attached: %s\n", yesNo(st.Attached))
	fmt.Fprintf(&b, "Locked: %s\n", yesNo(st.Locked))
	screen := "normal"
	if st.Alternate {
		screen = "alternate"
	}
	fmt.Fprintf(&b, "Screen: %s\n", screen)
	if st.Running {
		fmt.Fprintf(&b, "Foreground: %s\n", st.Foreground)
	}
	if st.Request != nil {
		fmt.Fprintf(&b, "Request: %s\n", st.Request.Message)
	}
	b.WriteString("Processes:\n")
	for _, line := range st.Tree {
		fmt.Fprintf(&b, "  %s\n", line)
	}
	fmt.Fprintf(&b, "Windows: %d\n", st.Windows)
	fmt.Fprintf(&b, "Created: %s\n", st.Created.Format("2006-01-02 15:04:05"))
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

type process struct {
	pid, ppid int
	comm      string
}

func parseProcessTable(table string) []process {
	var procs []process
	for _, line := range strings.Split(table, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		ppid, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		procs = append(procs, process{pid: pid, ppid: ppid, comm: strings.Join(fields[2:], " ")})
	}
	return procs
}

func childrenOf(procs []process, pid int) []process {
	var kids []process
	for _, p := range procs {
		if p.ppid == pid {
			kids = append(kids, p)
		}
	}
	sort.Slice(kids, func(i, j int) bool { return kids[i].pid < kids[j].pid })
	return kids
}

func commOf(procs []process, pid int) string {
	for _, p := range procs {
		if p.pid == pid {
			return p.comm
		}
	}
	return "?"
}

// foregroundCommand returns the command of the most recently spawned
// direct child of the pane shell, or "" when the shell is alone.
func foregroundCommand(procs []process, shellPID int) string {
	kids := childrenOf(procs, shellPID)
	if len(kids) == 0 {
		return ""
	}
	return kids[len(kids)-1].comm
}

// renderTree draws the pane process tree rooted at the shell:
//
//	└─ bash (1234)
//	   └─ sleep (1240)
func renderTree(procs []process, rootPID int) []string {
	lines := []string{fmt.Sprintf("└─ %s (%d)", commOf(procs, rootPID), rootPID)}
	lines = append(lines, renderChildren(procs, rootPID, "   ")...)
	return lines
}

func renderChildren(procs []process, pid int, indent string) []string {
	kids := childrenOf(procs, pid)
	var lines []string
	for i, kid := range kids {
		connector := "├─"
		childIndent := indent + "│  "
		if i == len(kids)-1 {
			connector = "└─"
			childIndent = indent + "   "
		}
		lines = append(lines, fmt.Sprintf("%s%s %s (%d)", indent, connector, kid.comm, kid.pid))
		lines = append(lines, renderChildren(procs, kid.pid, childIndent)...)
	}
	return lines
}
