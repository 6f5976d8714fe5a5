package cpu

import (
	"errors"

	"github.com/ezrec/alpha/translate"
)

var f = translate.From

var (
	// Machine errors
	ErrDivideByZero   = errors.New(f("division by zero"))
	ErrOutOfRange     = errors.New(f("index out of range"))
	ErrOverflow       = errors.New(f("integer overflow"))
	ErrStackEmpty     = errors.New(f("stack empty"))
	ErrStackFull      = errors.New(f("stack full"))
	ErrCallStackEmpty = errors.New(f("call stack empty"))
	ErrNoProgram      = errors.New(f("no program loaded"))

	// Assembler error categories
	ErrStatementInvalid = errors.New(f("statement invalid"))
	ErrOperandInvalid   = errors.New(f("operand invalid"))
	ErrLabelDuplicate   = errors.New(f("label duplicated"))
	ErrLabelUndefined   = errors.New(f("label undefined"))

	// Assembler details
	ErrLabelReserved   = errors.New(f("label reserved"))
	ErrLabelSyntax     = errors.New(f("label syntax"))
	ErrTargetInvalid   = errors.New(f("target invalid"))
	ErrValueMissing    = errors.New(f("value missing"))
	ErrExtraTokens     = errors.New(f("excessive tokens"))
	ErrOperatorInvalid = errors.New(f("operator invalid"))
	ErrCompareInvalid  = errors.New(f("comparison invalid"))
)

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

func (el ErrLabelMissing) Is(err error) bool {
	return err == ErrLabelUndefined
}

type ErrInstructionInvalid string

func (err ErrInstructionInvalid) Error() string {
	return f("'%v' does not begin a statement", string(err))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseValue string

func (err ErrParseValue) Error() string {
	return f("'%v' is not an accumulator, memory cell or constant", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

// ErrFault is a runtime error raised by the instruction at Ip.
type ErrFault struct {
	Ip          int
	Instruction Instruction
	Err         error
}

func (err *ErrFault) Error() string {
	return f("ip %d '%v' %v", err.Ip, err.Instruction, err.Err)
}

func (err *ErrFault) Unwrap() error {
	return err.Err
}
