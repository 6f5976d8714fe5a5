package cpu

import (
	"fmt"
	"iter"
	"log"
	"slices"
	"strings"

	"github.com/ezrec/alpha/internal"
)

// Outcome is the result of a single step.
type Outcome int

//go:generate go tool stringer -linecomment -type=Outcome
const (
	RAN    = Outcome(0) // ran
	HALTED = Outcome(1) // halted
)

// Machine executes a Program over accumulators, memory cells and a stack.
//
// A runtime error leaves the machine state as it was before the failing
// step; the error is returned as an *ErrFault carrying the instruction
// index. Stepping a halted machine does nothing and reports HALTED.
type Machine struct {
	Verbose bool // Set to enable verbose logging.

	program     *Program
	ip          int
	halted      bool
	accumulator []int32
	memory      []int32
	stack       Stack
	calls       Stack
	ticks       int
}

// NewMachine creates a machine for a program, with zeroed accumulators
// and memory cells.
func NewMachine(prog *Program, accumulators, memoryCells int) (m *Machine) {
	m = &Machine{
		program:     prog,
		accumulator: make([]int32, max(accumulators, 0)),
		memory:      make([]int32, max(memoryCells, 0)),
	}

	return
}

// Defines returns the machine geometry as assembler constants.
func (m *Machine) Defines() iter.Seq2[string, string] {
	return internal.Sorted2(map[string]string{
		"ACCUMULATORS": fmt.Sprint(len(m.accumulator)),
		"MEMORY_CELLS": fmt.Sprint(len(m.memory)),
	})
}

// Reset returns the machine to its initial state.
func (m *Machine) Reset() {
	if m.Verbose {
		log.Printf("machine: reset")
	}

	clear(m.accumulator)
	clear(m.memory)
	m.stack.Reset()
	m.calls.Reset()
	m.ip = 0
	m.halted = false
	m.ticks = 0
}

// Program returns the program being executed.
func (m *Machine) Program() *Program {
	return m.program
}

// Ip returns the index of the next instruction to execute.
func (m *Machine) Ip() int {
	return m.ip
}

// Halted returns true once the machine has stopped.
func (m *Machine) Halted() bool {
	return m.halted
}

// Ticks returns the number of instructions executed since reset.
func (m *Machine) Ticks() int {
	return m.ticks
}

// Accumulators returns a copy of the accumulators.
func (m *Machine) Accumulators() []int32 {
	return slices.Clone(m.accumulator)
}

// MemoryCells returns a copy of the memory cells.
func (m *Machine) MemoryCells() []int32 {
	return slices.Clone(m.memory)
}

// Stack returns a copy of the stack, bottom first.
func (m *Machine) Stack() []int32 {
	return m.stack.Values()
}

// CallStack returns a copy of the pending return addresses, oldest first.
func (m *Machine) CallStack() []int32 {
	return m.calls.Values()
}

// SetStackLimit bounds the depth of the value and call stacks.
func (m *Machine) SetStackLimit(limit int) {
	m.stack.Limit = limit
	m.calls.Limit = limit
}

// Accumulator returns the value of accumulator index.
func (m *Machine) Accumulator(index int) (value int32, err error) {
	if index < 0 || index >= len(m.accumulator) {
		err = ErrOutOfRange
		return
	}
	value = m.accumulator[index]
	return
}

// SetAccumulator presets accumulator index.
func (m *Machine) SetAccumulator(index int, value int32) (err error) {
	if index < 0 || index >= len(m.accumulator) {
		err = ErrOutOfRange
		return
	}
	m.accumulator[index] = value
	return
}

// MemoryCell returns the value of memory cell index.
func (m *Machine) MemoryCell(index int) (value int32, err error) {
	if index < 0 || index >= len(m.memory) {
		err = ErrOutOfRange
		return
	}
	value = m.memory[index]
	return
}

// SetMemoryCell presets memory cell index.
func (m *Machine) SetMemoryCell(index int, value int32) (err error) {
	if index < 0 || index >= len(m.memory) {
		err = ErrOutOfRange
		return
	}
	m.memory[index] = value
	return
}

// String returns the current machine state as a string.
func (m *Machine) String() (text string) {
	text += fmt.Sprintf("%6s: %d\n", "ip", m.ip)
	text += fmt.Sprintf("%6s: %v\n", "halted", m.halted)
	for n, val := range m.accumulator {
		text += fmt.Sprintf("%6s: %d\n", Accumulator{n}.String(), val)
	}
	for n, val := range m.memory {
		text += fmt.Sprintf("%6s: %d\n", MemoryCell{Constant{int32(n)}}.String(), val)
	}
	var stack []string
	for _, val := range m.stack.Data {
		stack = append(stack, fmt.Sprint(val))
	}
	text += fmt.Sprintf("%6s: [%v]\n", "stack", strings.Join(stack, " "))

	return
}

// Run steps the machine until it halts or faults.
func (m *Machine) Run() (err error) {
	for !m.halted {
		_, err = m.Step()
		if err != nil {
			return
		}
	}
	return
}

// Step executes a single instruction.
func (m *Machine) Step() (outcome Outcome, err error) {
	if m.halted {
		outcome = HALTED
		return
	}

	in, ok := m.program.Fetch(m.ip)
	if !ok {
		// Ran off the end of the program.
		if m.Verbose {
			log.Printf("%03d: end of program", m.ip)
		}
		m.halted = true
		outcome = HALTED
		return
	}

	if m.Verbose {
		log.Printf("%03d: %v", m.ip, in)
	}

	next, halt, err := m.execute(in)
	if err != nil {
		err = &ErrFault{Ip: m.ip, Instruction: in, Err: err}
		return
	}

	m.ticks++
	if halt {
		m.halted = true
		outcome = HALTED
		return
	}

	m.ip = next
	outcome = RAN
	return
}

// jump returns the next ip for a taken jump.
func (m *Machine) jump(target Jump) (next int, halt bool) {
	if target == JumpHalt {
		return m.ip, true
	}
	return int(target), false
}

// execute applies a single instruction. All operands are read and all
// targets checked before any state is written.
func (m *Machine) execute(in Instruction) (next int, halt bool, err error) {
	next = m.ip + 1

	switch in := in.(type) {
	case Assign:
		var value int32
		value, err = m.read(in.Source)
		if err != nil {
			return
		}
		var store func(int32)
		store, err = m.target(in.Target)
		if err != nil {
			return
		}
		store(value)
	case Calc:
		var left, right, value int32
		left, err = m.read(in.Left)
		if err != nil {
			return
		}
		right, err = m.read(in.Right)
		if err != nil {
			return
		}
		var store func(int32)
		store, err = m.target(in.Target)
		if err != nil {
			return
		}
		value, err = in.Op.Calc(left, right)
		if err != nil {
			return
		}
		store(value)
	case Goto:
		next, halt = m.jump(in.Target)
	case JumpIf:
		var left, right int32
		left, err = m.read(in.Left)
		if err != nil {
			return
		}
		right, err = m.read(in.Right)
		if err != nil {
			return
		}
		if in.Cmp.Compare(left, right) {
			next, halt = m.jump(in.Target)
		}
	case Push:
		var value int32
		value, err = m.Accumulator(in.Accumulator)
		if err != nil {
			return
		}
		if !m.stack.Push(value) {
			err = ErrStackFull
			return
		}
	case Pop:
		if in.Accumulator < 0 || in.Accumulator >= len(m.accumulator) {
			err = ErrOutOfRange
			return
		}
		value, ok := m.stack.Pop()
		if !ok {
			err = ErrStackEmpty
			return
		}
		m.accumulator[in.Accumulator] = value
	case StackOp:
		if m.stack.Len() < 2 {
			err = ErrStackEmpty
			return
		}
		data := m.stack.Data
		var value int32
		value, err = in.Op.Calc(data[len(data)-2], data[len(data)-1])
		if err != nil {
			return
		}
		m.stack.Pop()
		m.stack.Pop()
		m.stack.Push(value)
	case Call:
		if m.calls.Full() {
			err = ErrStackFull
			return
		}
		m.calls.Push(int32(m.ip + 1))
		next, halt = m.jump(in.Target)
	case Return:
		ret, ok := m.calls.Pop()
		if !ok {
			err = ErrCallStackEmpty
			return
		}
		next = int(ret)
	case Halt:
		halt = true
	default:
		err = ErrInstructionInvalid(fmt.Sprint(in))
	}

	return
}

// address resolves a memory cell operand to its index.
func (m *Machine) address(cell MemoryCell) (index int, err error) {
	value, err := m.read(cell.Index)
	if err != nil {
		return
	}
	index = int(value)
	if index < 0 || index >= len(m.memory) {
		err = ErrOutOfRange
	}
	return
}

// read gets the value of an operand.
func (m *Machine) read(op Operand) (value int32, err error) {
	switch op := op.(type) {
	case Constant:
		value = op.Value
	case Accumulator:
		value, err = m.Accumulator(op.Index)
	case MemoryCell:
		var index int
		index, err = m.address(op)
		if err != nil {
			return
		}
		value = m.memory[index]
	default:
		err = ErrTargetInvalid
	}
	return
}

// target resolves a writable operand into a store function.
func (m *Machine) target(op Operand) (store func(int32), err error) {
	switch op := op.(type) {
	case Accumulator:
		if op.Index < 0 || op.Index >= len(m.accumulator) {
			err = ErrOutOfRange
			return
		}
		store = func(value int32) { m.accumulator[op.Index] = value }
	case MemoryCell:
		var index int
		index, err = m.address(op)
		if err != nil {
			return
		}
		store = func(value int32) { m.memory[index] = value }
	default:
		err = ErrTargetInvalid
	}
	return
}
