package cpu

import (
	"fmt"
	"math"
)

// Op is an arithmetic operator.
type Op int

//go:generate go tool stringer -linecomment -type=Op
const (
	OP_ADD = Op(0) // +
	OP_SUB = Op(1) // -
	OP_MUL = Op(2) // *
	OP_DIV = Op(3) // /
)

// opMap maps operator spellings to operators.
var opMap = map[string]Op{
	"+": OP_ADD,
	"-": OP_SUB,
	"−": OP_SUB,
	"*": OP_MUL,
	"×": OP_MUL,
	"/": OP_DIV,
	"÷": OP_DIV,
}

// Calc computes 'x op y' over int32.
// Division truncates toward zero.
func (op Op) Calc(x, y int32) (value int32, err error) {
	var v int64
	switch op {
	case OP_ADD:
		v = int64(x) + int64(y)
	case OP_SUB:
		v = int64(x) - int64(y)
	case OP_MUL:
		v = int64(x) * int64(y)
	case OP_DIV:
		if y == 0 {
			err = ErrDivideByZero
			return
		}
		v = int64(x) / int64(y)
	default:
		err = ErrOperatorInvalid
		return
	}

	if v > math.MaxInt32 || v < math.MinInt32 {
		err = ErrOverflow
		return
	}

	value = int32(v)
	return
}

// Cmp is a comparison operator.
type Cmp int

//go:generate go tool stringer -linecomment -type=Cmp
const (
	CMP_LT = Cmp(0) // <
	CMP_LE = Cmp(1) // <=
	CMP_EQ = Cmp(2) // =
	CMP_NE = Cmp(3) // !=
	CMP_GE = Cmp(4) // >=
	CMP_GT = Cmp(5) // >
)

// cmpMap maps comparison spellings to comparisons.
var cmpMap = map[string]Cmp{
	"<":  CMP_LT,
	"<=": CMP_LE,
	"=<": CMP_LE,
	"≤":  CMP_LE,
	"=":  CMP_EQ,
	"==": CMP_EQ,
	"!=": CMP_NE,
	"≠":  CMP_NE,
	">=": CMP_GE,
	"=>": CMP_GE,
	"≥":  CMP_GE,
	">":  CMP_GT,
}

// Compare evaluates 'x cmp y'.
func (cmp Cmp) Compare(x, y int32) bool {
	switch cmp {
	case CMP_LT:
		return x < y
	case CMP_LE:
		return x <= y
	case CMP_EQ:
		return x == y
	case CMP_NE:
		return x != y
	case CMP_GE:
		return x >= y
	case CMP_GT:
		return x > y
	}
	return false
}

// Jump is a resolved jump target: an instruction index, or JumpHalt.
type Jump int

// JumpHalt is the target of the reserved ENDE/END labels.
const JumpHalt = Jump(-1)

// Reserved labels that resolve to JumpHalt.
var haltLabels = map[string]bool{
	"ENDE": true,
	"END":  true,
	"ende": true,
	"end":  true,
}

func (j Jump) String() string {
	if j == JumpHalt {
		return "ENDE"
	}
	return fmt.Sprintf("@%d", int(j))
}

// Instruction is a single Alpha-Notation statement.
//
// The set of instructions is closed; the Machine dispatches on the
// concrete type.
type Instruction interface {
	fmt.Stringer
	instruction()
}

// Assign copies Source into Target.
type Assign struct {
	Target Operand
	Source Operand
}

// Calc stores 'Left Op Right' into Target.
type Calc struct {
	Target Operand
	Left   Operand
	Op     Op
	Right  Operand
}

// Goto jumps unconditionally.
type Goto struct {
	Target Jump
}

// JumpIf jumps when 'Left Cmp Right' holds.
type JumpIf struct {
	Left   Operand
	Cmp    Cmp
	Right  Operand
	Target Jump
}

// Push copies an accumulator onto the stack.
type Push struct {
	Accumulator int
}

// Pop moves the top of the stack into an accumulator.
type Pop struct {
	Accumulator int
}

// StackOp replaces the two topmost stack values with 'left Op right',
// where right is the topmost value.
type StackOp struct {
	Op Op
}

// Call pushes the return address onto the call stack and jumps.
type Call struct {
	Target Jump
}

// Return jumps to the address on top of the call stack.
type Return struct{}

// Halt stops the machine.
type Halt struct{}

func (Assign) instruction()  {}
func (Calc) instruction()    {}
func (Goto) instruction()    {}
func (JumpIf) instruction()  {}
func (Push) instruction()    {}
func (Pop) instruction()     {}
func (StackOp) instruction() {}
func (Call) instruction()    {}
func (Return) instruction()  {}
func (Halt) instruction()    {}

func (in Assign) String() string {
	return fmt.Sprintf("%v := %v", in.Target, in.Source)
}

func (in Calc) String() string {
	return fmt.Sprintf("%v := %v %v %v", in.Target, in.Left, in.Op, in.Right)
}

func (in Goto) String() string {
	return fmt.Sprintf("goto %v", in.Target)
}

func (in JumpIf) String() string {
	return fmt.Sprintf("if %v %v %v then goto %v", in.Left, in.Cmp, in.Right, in.Target)
}

func (in Push) String() string {
	return fmt.Sprintf("push %v", Accumulator{in.Accumulator})
}

func (in Pop) String() string {
	return fmt.Sprintf("pop %v", Accumulator{in.Accumulator})
}

func (in StackOp) String() string {
	return fmt.Sprintf("stack %v", in.Op)
}

func (in Call) String() string {
	return fmt.Sprintf("call %v", in.Target)
}

func (Return) String() string {
	return "return"
}

func (Halt) String() string {
	return "ENDE"
}

// withTarget returns a copy of a jump instruction aimed at target.
func withTarget(in Instruction, target Jump) Instruction {
	switch in := in.(type) {
	case Goto:
		in.Target = target
		return in
	case JumpIf:
		in.Target = target
		return in
	case Call:
		in.Target = target
		return in
	}
	return in
}
