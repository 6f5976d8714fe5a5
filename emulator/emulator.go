// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"slices"

	"github.com/ezrec/alpha/config"
	"github.com/ezrec/alpha/cpu"
	"github.com/ezrec/alpha/internal"
)

// Stop is the reason Continue returned.
type Stop int

//go:generate go tool stringer -linecomment -type=Stop
const (
	STOP_HALTED     = Stop(0) // halted
	STOP_BREAKPOINT = Stop(1) // breakpoint
)

// Tracer observes each instruction before it executes.
type Tracer interface {
	Trace(ip int, in cpu.Instruction)
}

// Emulator state. Machine + program + configuration.
type Emulator struct {
	Verbose      bool           // If set, enables verbose logging.
	*cpu.Machine                // Reference to the machine.
	Program      *cpu.Program   // Reference to the currently loaded program.
	Config       *config.Config // Machine configuration.
	Tracer       Tracer         // If set, observes every executed instruction.
	MaxTicks     int            // If non-zero, the tick budget since a reset.

	breakpoints map[int]bool
}

// NewEmulator creates a new emulator. A nil configuration selects the
// defaults.
func NewEmulator(cfg *config.Config) (emu *Emulator) {
	if cfg == nil {
		cfg = config.Default()
	}

	emu = &Emulator{
		Config:      cfg,
		MaxTicks:    cfg.MaxTicks,
		breakpoints: map[int]bool{},
	}

	for _, line := range cfg.Breakpoints {
		emu.breakpoints[line] = true
	}

	emu.Machine = cpu.NewMachine(nil, cfg.Accumulators, cfg.MemoryCells)

	return
}

// Defines returns an iterator over all of the defines.
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.Concat2(internal.Sorted2(map[string]string{
		"STACK_LIMIT": fmt.Sprint(emu.Config.StackLimit),
	}),
		emu.Machine.Defines(),
	)
}

// Assembler returns an assembler for the emulator's machine geometry,
// with the emulator defines predefined.
func (emu *Emulator) Assembler() (asm *cpu.Assembler) {
	asm = &cpu.Assembler{
		Verbose:      emu.Verbose,
		Accumulators: emu.Config.Accumulators,
		MemoryCells:  emu.Config.MemoryCells,
	}
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}
	return
}

// Load assembles a program and resets the emulator to run it.
func (emu *Emulator) Load(r io.Reader) (err error) {
	prog, err := emu.Assembler().Parse(r)
	if err != nil {
		return
	}

	emu.Program = prog

	err = emu.Reset()
	return
}

// Reset the machine, and preload the configured state.
func (emu *Emulator) Reset() (err error) {
	if emu.Program == nil {
		err = cpu.ErrNoProgram
		return
	}

	cfg := emu.Config

	emu.Machine = cpu.NewMachine(emu.Program, cfg.Accumulators, cfg.MemoryCells)
	emu.Machine.Verbose = emu.Verbose
	emu.Machine.SetStackLimit(cfg.StackLimit)

	for index, value := range internal.Sorted2(cfg.Accumulator) {
		err = emu.Machine.SetAccumulator(index, value)
		if err != nil {
			return
		}
	}

	for index, value := range internal.Sorted2(cfg.Memory) {
		err = emu.Machine.SetMemoryCell(index, value)
		if err != nil {
			return
		}
	}

	if emu.Verbose {
		log.Printf("emulator: reset, %d instructions", emu.Program.Len())
	}

	return
}

// LineNo returns the source line number of the next instruction, or 0
// if there is none.
func (emu *Emulator) LineNo() int {
	return emu.Program.Line(emu.Machine.Ip())
}

// SetBreakpoint stops Continue before the instruction on a source line.
func (emu *Emulator) SetBreakpoint(lineno int) (err error) {
	if emu.Program != nil {
		if _, ok := emu.Program.Ip(lineno); !ok {
			err = fmt.Errorf("%w: %d", ErrNoInstruction, lineno)
			return
		}
	}
	emu.breakpoints[lineno] = true
	return
}

// ClearBreakpoint removes a breakpoint.
func (emu *Emulator) ClearBreakpoint(lineno int) {
	delete(emu.breakpoints, lineno)
}

// Breakpoints returns the breakpoint line numbers, in ascending order.
func (emu *Emulator) Breakpoints() []int {
	return slices.Sorted(maps.Keys(emu.breakpoints))
}

// Tick performs a single step of the machine.
func (emu *Emulator) Tick() (done bool, err error) {
	if emu.Machine.Halted() {
		done = true
		return
	}

	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Err: err}
		}
	}()

	if emu.MaxTicks > 0 && emu.Machine.Ticks() >= emu.MaxTicks {
		err = ErrTickLimit
		return
	}

	emu.Machine.Verbose = emu.Verbose

	ip := emu.Machine.Ip()
	if in, ok := emu.Program.Fetch(ip); ok && emu.Tracer != nil {
		emu.Tracer.Trace(ip, in)
	}

	outcome, err := emu.Machine.Step()
	if err != nil {
		return
	}

	done = outcome == cpu.HALTED
	return
}

// Continue runs until the machine halts, or a breakpoint is reached
// after at least one step.
func (emu *Emulator) Continue() (stop Stop, err error) {
	for {
		var done bool
		done, err = emu.Tick()
		if err != nil {
			return
		}
		if done {
			stop = STOP_HALTED
			return
		}
		if emu.breakpoints[emu.LineNo()] {
			stop = STOP_BREAKPOINT
			return
		}
	}
}

// Run runs until the machine halts, ignoring breakpoints.
func (emu *Emulator) Run() (err error) {
	for {
		var done bool
		done, err = emu.Tick()
		if err != nil || done {
			return
		}
	}
}
