package emulator

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ezrec/alpha/cpu"
)

var (
	ErrCommandUnknown  = errors.New(f("unknown command"))
	ErrArgumentInvalid = errors.New(f("invalid argument"))
)

// Debugger is a line oriented interactive front end to an Emulator.
type Debugger struct {
	*Emulator
	Prompt string // Shown before each command is read.
}

type command struct {
	name  string
	alias string
	args  string
	help  string
	fn    func(dbg *Debugger, out io.Writer, args []string) (quit bool, err error)
}

var commands []command

func init() {
	commands = []command{
		{"step", "s", "[n]", f("execute n instructions (default 1)"), (*Debugger).cmdStep},
		{"continue", "c", "", f("run until halt or breakpoint"), (*Debugger).cmdContinue},
		{"run", "r", "", f("reset, then continue"), (*Debugger).cmdRun},
		{"break", "b", "[line]", f("set a breakpoint, or list breakpoints"), (*Debugger).cmdBreak},
		{"delete", "d", "line", f("delete a breakpoint"), (*Debugger).cmdDelete},
		{"state", "i", "", f("show machine state"), (*Debugger).cmdState},
		{"list", "l", "", f("list the program"), (*Debugger).cmdList},
		{"reset", "", "", f("reset the machine"), (*Debugger).cmdReset},
		{"help", "h", "", f("show this help"), (*Debugger).cmdHelp},
		{"quit", "q", "", f("leave the debugger"), (*Debugger).cmdQuit},
	}
}

func lookup(name string) (cmd command, ok bool) {
	for _, cmd = range commands {
		if name == cmd.name || (len(cmd.alias) != 0 && name == cmd.alias) {
			ok = true
			return
		}
	}
	return
}

// Run reads and executes commands until 'quit' or end of input.
// An empty line repeats the previous command.
func (dbg *Debugger) Run(in io.Reader, out io.Writer) (err error) {
	scanner := bufio.NewScanner(in)

	var last []string
	for {
		fmt.Fprint(out, dbg.Prompt)
		if !scanner.Scan() {
			err = scanner.Err()
			return
		}

		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			args = last
		}
		if len(args) == 0 {
			continue
		}
		last = args

		cmd, ok := lookup(args[0])
		if !ok {
			fmt.Fprintf(out, "%v: %v\n", ErrCommandUnknown, args[0])
			continue
		}

		quit, cerr := cmd.fn(dbg, out, args[1:])
		if cerr != nil {
			fmt.Fprintln(out, cerr)
		}
		if quit {
			return
		}
	}
}

// Where writes the next source line to be executed.
func (dbg *Debugger) Where(out io.Writer) {
	if dbg.Machine.Halted() {
		fmt.Fprintln(out, f("halted after %d ticks", dbg.Machine.Ticks()))
		return
	}

	lineno := dbg.LineNo()
	if lineno == 0 {
		fmt.Fprintln(out, f("end of program"))
		return
	}

	text := strings.TrimSpace(dbg.Program.Source[lineno-1])
	fmt.Fprintf(out, "%4d: %v\n", lineno, text)
}

// State writes the machine state as a table.
func (dbg *Debugger) State(out io.Writer) {
	m := dbg.Machine

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{f("register"), f("value")})
	tw.AppendRow(table.Row{"ip", m.Ip()})
	tw.AppendRow(table.Row{"line", dbg.LineNo()})
	tw.AppendRow(table.Row{"ticks", m.Ticks()})
	tw.AppendRow(table.Row{"halted", m.Halted()})
	tw.AppendSeparator()
	for n, value := range m.Accumulators() {
		tw.AppendRow(table.Row{cpu.Accumulator{Index: n}.String(), value})
	}
	tw.AppendSeparator()
	for n, value := range m.MemoryCells() {
		cell := cpu.MemoryCell{Index: cpu.Constant{Value: int32(n)}}
		tw.AppendRow(table.Row{cell.String(), value})
	}
	tw.AppendSeparator()
	tw.AppendRow(table.Row{"stack", fmt.Sprint(m.Stack())})
	tw.AppendRow(table.Row{"calls", fmt.Sprint(m.CallStack())})

	fmt.Fprintln(out, tw.Render())
}

func (dbg *Debugger) cmdStep(out io.Writer, args []string) (quit bool, err error) {
	count := 1
	if len(args) > 0 {
		count, err = strconv.Atoi(args[0])
		if err != nil || count <= 0 {
			err = fmt.Errorf("%w: %v", ErrArgumentInvalid, args[0])
			return
		}
	}

	for range count {
		var done bool
		done, err = dbg.Tick()
		if err != nil || done {
			break
		}
	}

	dbg.Where(out)
	return
}

func (dbg *Debugger) cmdContinue(out io.Writer, args []string) (quit bool, err error) {
	stop, err := dbg.Continue()
	if err != nil {
		return
	}

	if stop == STOP_BREAKPOINT {
		fmt.Fprintln(out, f("breakpoint at line %d", dbg.LineNo()))
	}
	dbg.Where(out)
	return
}

func (dbg *Debugger) cmdRun(out io.Writer, args []string) (quit bool, err error) {
	err = dbg.Reset()
	if err != nil {
		return
	}

	return dbg.cmdContinue(out, args)
}

func (dbg *Debugger) cmdBreak(out io.Writer, args []string) (quit bool, err error) {
	if len(args) == 0 {
		for _, lineno := range dbg.Breakpoints() {
			fmt.Fprintf(out, "%4d\n", lineno)
		}
		return
	}

	lineno, err := strconv.Atoi(args[0])
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrArgumentInvalid, args[0])
		return
	}

	err = dbg.SetBreakpoint(lineno)
	return
}

func (dbg *Debugger) cmdDelete(out io.Writer, args []string) (quit bool, err error) {
	if len(args) != 1 {
		err = ErrArgumentInvalid
		return
	}

	lineno, err := strconv.Atoi(args[0])
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrArgumentInvalid, args[0])
		return
	}

	dbg.ClearBreakpoint(lineno)
	return
}

func (dbg *Debugger) cmdState(out io.Writer, args []string) (quit bool, err error) {
	dbg.State(out)
	return
}

func (dbg *Debugger) cmdList(out io.Writer, args []string) (quit bool, err error) {
	breaks := map[int]bool{}
	for _, lineno := range dbg.Breakpoints() {
		breaks[lineno] = true
	}

	for ip, text := range dbg.Program.Listing() {
		cursor := "  "
		if ip == dbg.Machine.Ip() && !dbg.Machine.Halted() {
			cursor = "=>"
		}
		lineno := dbg.Program.Line(ip)
		mark := " "
		if breaks[lineno] && lineno != 0 {
			mark = "*"
		}
		fmt.Fprintf(out, "%s%s %4d: %v\n", cursor, mark, lineno, text)
	}
	return
}

func (dbg *Debugger) cmdReset(out io.Writer, args []string) (quit bool, err error) {
	err = dbg.Reset()
	if err != nil {
		return
	}
	dbg.Where(out)
	return
}

func (dbg *Debugger) cmdHelp(out io.Writer, args []string) (quit bool, err error) {
	for _, cmd := range commands {
		name := cmd.name
		if len(cmd.alias) != 0 {
			name += ", " + cmd.alias
		}
		fmt.Fprintf(out, "%-12s %-8s %v\n", name, cmd.args, cmd.help)
	}
	return
}

func (dbg *Debugger) cmdQuit(out io.Writer, args []string) (quit bool, err error) {
	quit = true
	return
}
