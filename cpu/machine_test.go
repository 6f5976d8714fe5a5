package cpu

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newMachine(t *testing.T, accumulators, memoryCells int, program ...string) *Machine {
	t.Helper()

	asm := &Assembler{Accumulators: accumulators, MemoryCells: memoryCells}
	prog := doTranslate(t, asm, program)

	return NewMachine(prog, accumulators, memoryCells)
}

func TestMachineExample(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, 4, 0,
		"a0 := 5",
		"a1 := 3",
		"if a0 > a1 then goto L",
		"a2 := 0",
		"L: a2 := 1",
		"ENDE",
	)

	err := m.Run()
	assert.NoError(err)
	assert.True(m.Halted())
	assert.Equal([]int32{5, 3, 1, 0}, m.Accumulators())
	assert.Equal(5, m.Ticks())
}

func TestMachineDivide(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, 4, 0,
		"a0 := 7",
		"a1 := 2",
		"a2 := a0 ÷ a1",
		"a0 := -7",
		"a3 := a0 / a1",
	)

	assert.NoError(m.Run())
	a2, _ := m.Accumulator(2)
	a3, _ := m.Accumulator(3)
	assert.Equal(int32(3), a2)
	assert.Equal(int32(-3), a3)
}

func TestMachineDivideByZero(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, 2, 0,
		"a0 := 7",
		"a0 := a0 ÷ 0",
		"a1 := 1",
	)

	outcome, err := m.Step()
	assert.NoError(err)
	assert.Equal(RAN, outcome)

	for range 2 {
		_, err = m.Step()
		assert.ErrorIs(err, ErrDivideByZero)

		var fault *ErrFault
		if assert.ErrorAs(err, &fault) {
			assert.Equal(1, fault.Ip)
			assert.Equal(Calc{Accumulator{0}, Accumulator{0}, OP_DIV, Constant{0}}, fault.Instruction)
		}
		assert.Contains(err.Error(), "ip 1 'α0 := α0 / 0'")

		assert.Equal(1, m.Ip())
		assert.False(m.Halted())
		assert.Equal([]int32{7, 0}, m.Accumulators())
		assert.Equal(1, m.Ticks())
	}

	err = m.Run()
	assert.ErrorIs(err, ErrDivideByZero)
}

func TestMachineOverflow(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, 2, 0,
		"a0 := 2147483647",
		"a1 := a0 * 2",
		"a0 := a0 + 1",
	)

	_, err := m.Step()
	assert.NoError(err)

	_, err = m.Step()
	assert.ErrorIs(err, ErrOverflow)
	assert.Equal([]int32{2147483647, 0}, m.Accumulators())

	m = newMachine(t, 1, 0,
		"a0 := -2147483647",
		"a0 := a0 - 1",
		"a0 := a0 - 1",
	)
	_, err = m.Step()
	assert.NoError(err)
	_, err = m.Step()
	assert.NoError(err)
	_, err = m.Step()
	assert.ErrorIs(err, ErrOverflow)
	assert.Equal([]int32{-2147483648}, m.Accumulators())
}

func TestMachinePushPop(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, 2, 0,
		"a0 := 11",
		"a1 := 22",
		"push a1",
		"push a0",
		"pop a0",
	)

	for range 4 {
		_, err := m.Step()
		assert.NoError(err)
	}
	assert.Equal([]int32{22, 11}, m.Stack())

	_, err := m.Step()
	assert.NoError(err)
	assert.Equal([]int32{22}, m.Stack())
	assert.Equal([]int32{11, 22}, m.Accumulators())
}

func TestMachinePopEmpty(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, 1, 1,
		"a0 := 7",
		"pop a0",
	)

	_, err := m.Step()
	assert.NoError(err)

	outcome, err := m.Step()
	assert.ErrorIs(err, ErrStackEmpty)
	assert.Equal(RAN, outcome)
	assert.Equal(1, m.Ip())
	assert.False(m.Halted())
	assert.Equal([]int32{7}, m.Accumulators())
	assert.Equal([]int32{0}, m.MemoryCells())
	assert.Empty(m.Stack())
}

func TestMachineStackOp(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, 3, 0,
		"a0 := 6",
		"a1 := 4",
		"push a0",
		"push a1",
		"stack -",
		"pop a2",
	)

	assert.NoError(m.Run())
	a2, _ := m.Accumulator(2)
	assert.Equal(int32(2), a2)
	assert.Empty(m.Stack())

	m = newMachine(t, 1, 0,
		"push a0",
		"stack ×",
	)
	_, err := m.Step()
	assert.NoError(err)
	_, err = m.Step()
	assert.ErrorIs(err, ErrStackEmpty)
	assert.Equal([]int32{0}, m.Stack())

	m = newMachine(t, 1, 0,
		"push a0",
		"push a0",
		"stack /",
	)
	err = m.Run()
	assert.ErrorIs(err, ErrDivideByZero)
	assert.Equal([]int32{0, 0}, m.Stack())
}

func TestMachineStackLimit(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, 1, 0,
		"push a0",
		"push a0",
		"push a0",
	)
	m.SetStackLimit(2)

	err := m.Run()
	assert.ErrorIs(err, ErrStackFull)
	assert.Equal(2, m.Ip())
	assert.Len(m.Stack(), 2)

	m = newMachine(t, 1, 0,
		"L: call L",
	)
	m.SetStackLimit(4)

	err = m.Run()
	assert.ErrorIs(err, ErrStackFull)
	assert.Equal([]int32{1, 1, 1, 1}, m.CallStack())
}

func TestMachineCallReturn(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, 1, 0,
		"a0 := 1",
		"call double",
		"call double",
		"goto ENDE",
		"",
		"double: a0 := a0 + a0",
		"return",
	)

	assert.NoError(m.Run())
	assert.True(m.Halted())
	assert.Equal([]int32{4}, m.Accumulators())
	assert.Empty(m.CallStack())
	assert.Equal(8, m.Ticks())

	m = newMachine(t, 1, 0,
		"return",
	)
	err := m.Run()
	assert.ErrorIs(err, ErrCallStackEmpty)
	assert.Equal(0, m.Ip())
}

func TestMachineHalt(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, 1, 0,
		"goto ENDE",
		"a0 := 1",
	)
	outcome, err := m.Step()
	assert.NoError(err)
	assert.Equal(HALTED, outcome)
	assert.True(m.Halted())
	assert.Equal(0, m.Ip())
	assert.Equal([]int32{0}, m.Accumulators())

	m = newMachine(t, 1, 0,
		"a0 := 1",
		"ENDE",
		"a0 := 2",
	)
	assert.NoError(m.Run())
	assert.Equal(1, m.Ip())
	assert.Equal(2, m.Ticks())
	assert.Equal([]int32{1}, m.Accumulators())

	// Halted machines stay halted.
	outcome, err = m.Step()
	assert.NoError(err)
	assert.Equal(HALTED, outcome)
	assert.Equal(1, m.Ip())
	assert.Equal(2, m.Ticks())
}

func TestMachineEndOfProgram(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, 1, 0,
		"a0 := 1",
	)

	outcome, err := m.Step()
	assert.NoError(err)
	assert.Equal(RAN, outcome)
	assert.False(m.Halted())

	outcome, err = m.Step()
	assert.NoError(err)
	assert.Equal(HALTED, outcome)
	assert.True(m.Halted())
	assert.Equal(1, m.Ip())
	assert.Equal(1, m.Ticks())

	m = NewMachine(&Program{}, 1, 1)
	outcome, err = m.Step()
	assert.NoError(err)
	assert.Equal(HALTED, outcome)

	m = NewMachine(nil, 1, 1)
	assert.NoError(m.Run())
	assert.True(m.Halted())
}

func TestMachineMemory(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, 2, 5,
		"ρ(0) := 2",
		"ρ(ρ(0)) := 9",
		"a1 := ρ(ρ(0))",
		"a0 := 4",
		"ρ(a0) := a1 + ρ(0)",
	)

	assert.NoError(m.Run())
	assert.Equal([]int32{2, 0, 9, 0, 11}, m.MemoryCells())
	assert.Equal([]int32{4, 9}, m.Accumulators())
}

func TestMachineOutOfRange(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, 1, 5,
		"a0 := 10",
		"ρ(a0) := 1",
	)

	err := m.Run()
	assert.ErrorIs(err, ErrOutOfRange)
	assert.Equal(1, m.Ip())
	assert.Equal([]int32{0, 0, 0, 0, 0}, m.MemoryCells())

	m = newMachine(t, 1, 5,
		"a0 := -1",
		"a0 := ρ(a0)",
	)
	err = m.Run()
	assert.ErrorIs(err, ErrOutOfRange)
	assert.Equal([]int32{-1}, m.Accumulators())

	// Unbounded translation, bounded machine.
	prog := doTranslate(t, &Assembler{}, []string{
		"a1 := 3",
		"a5 := a1",
	})
	m = NewMachine(prog, 2, 0)
	err = m.Run()
	assert.ErrorIs(err, ErrOutOfRange)
	assert.Equal(1, m.Ip())
	assert.Equal([]int32{0, 3}, m.Accumulators())

	prog = doTranslate(t, &Assembler{}, []string{
		"push a3",
	})
	m = NewMachine(prog, 2, 0)
	assert.ErrorIs(m.Run(), ErrOutOfRange)

	prog = doTranslate(t, &Assembler{}, []string{
		"push a0",
		"pop a3",
	})
	m = NewMachine(prog, 2, 0)
	assert.ErrorIs(m.Run(), ErrOutOfRange)
	assert.Equal([]int32{0}, m.Stack())
}

func sumProgram() []string {
	return []string{
		"a0 := 0  # sum",
		"a1 := 1  # index",
		"loop: a0 := a0 + a1",
		"a1 := a1 + 1",
		"if a1 <= 10 then goto loop",
		"ρ(0) := a0",
	}
}

func TestMachineLoop(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, 2, 1, sumProgram()...)
	assert.NoError(m.Run())

	cell, err := m.MemoryCell(0)
	assert.NoError(err)
	assert.Equal(int32(55), cell)
}

func TestMachineDeterminism(t *testing.T) {
	assert := assert.New(t)

	run := newMachine(t, 2, 1, sumProgram()...)
	assert.NoError(run.Run())

	step := newMachine(t, 2, 1, sumProgram()...)
	for {
		outcome, err := step.Step()
		assert.NoError(err)
		if err != nil || outcome == HALTED {
			break
		}
	}

	assert.Equal(run.String(), step.String())
	assert.Equal(run.Ticks(), step.Ticks())

	step.Reset()
	assert.Equal(0, step.Ip())
	assert.Equal(0, step.Ticks())
	assert.False(step.Halted())
	assert.Equal([]int32{0}, step.MemoryCells())

	assert.NoError(step.Run())
	assert.Equal(run.String(), step.String())
}

func TestMachineAccessors(t *testing.T) {
	assert := assert.New(t)

	m := NewMachine(nil, 2, 3)

	assert.NoError(m.SetAccumulator(1, 5))
	assert.ErrorIs(m.SetAccumulator(2, 5), ErrOutOfRange)
	assert.ErrorIs(m.SetAccumulator(-1, 5), ErrOutOfRange)
	assert.NoError(m.SetMemoryCell(2, 6))
	assert.ErrorIs(m.SetMemoryCell(3, 6), ErrOutOfRange)

	value, err := m.Accumulator(1)
	assert.NoError(err)
	assert.Equal(int32(5), value)
	_, err = m.Accumulator(2)
	assert.ErrorIs(err, ErrOutOfRange)

	value, err = m.MemoryCell(2)
	assert.NoError(err)
	assert.Equal(int32(6), value)
	_, err = m.MemoryCell(-1)
	assert.ErrorIs(err, ErrOutOfRange)

	acc := m.Accumulators()
	acc[1] = 100
	mem := m.MemoryCells()
	mem[2] = 100
	assert.Equal([]int32{0, 5}, m.Accumulators())
	assert.Equal([]int32{0, 0, 6}, m.MemoryCells())

	defines := maps.Collect(m.Defines())
	assert.Equal(map[string]string{
		"ACCUMULATORS": "2",
		"MEMORY_CELLS": "3",
	}, defines)

	assert.Nil(m.Program())
	m.Reset()
	assert.Equal([]int32{0, 0}, m.Accumulators())
	assert.Equal([]int32{0, 0, 0}, m.MemoryCells())
}

func TestMachineString(t *testing.T) {
	assert := assert.New(t)

	m := newMachine(t, 1, 1,
		"a0 := 3",
		"push a0",
	)
	assert.NoError(m.Run())

	expected := "" +
		"    ip: 2\n" +
		"halted: true\n" +
		"    α0: 3\n" +
		"  ρ(0): 0\n" +
		" stack: [3]\n"
	assert.Equal(expected, m.String())
}
