package cpu

import (
	"fmt"
)

// Operand is a value source or destination of an instruction.
//
// The set of operands is closed: Accumulator, MemoryCell and Constant.
type Operand interface {
	fmt.Stringer
	operand()
}

// Accumulator references the accumulator αN.
type Accumulator struct {
	Index int
}

// MemoryCell references the memory cell ρ(N). The index is itself an
// operand, so it is either known at assembly time (a Constant) or
// computed when the instruction executes.
type MemoryCell struct {
	Index Operand
}

// Constant is an integer literal.
type Constant struct {
	Value int32
}

func (Accumulator) operand() {}
func (MemoryCell) operand()  {}
func (Constant) operand()    {}

func (op Accumulator) String() string {
	return fmt.Sprintf("α%d", op.Index)
}

func (op MemoryCell) String() string {
	return fmt.Sprintf("ρ(%v)", op.Index)
}

func (op Constant) String() string {
	return fmt.Sprintf("%d", op.Value)
}

// Writable returns true if the operand can be the target of an assignment.
func Writable(op Operand) bool {
	switch op.(type) {
	case Accumulator, MemoryCell:
		return true
	}
	return false
}

// StaticIndex returns the memory cell index if it is known at assembly time.
func (op MemoryCell) StaticIndex() (index int, ok bool) {
	c, ok := op.Index.(Constant)
	if !ok {
		return
	}
	index = int(c.Value)
	return
}
