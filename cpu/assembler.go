// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
	"golang.org/x/text/unicode/norm"
)

// Assembler translates Alpha-Notation source into a Program.
//
// Source lines are stripped of comments ('#' or '//'); lines left blank
// occupy no instruction address. A line may begin with any number of
// 'label:' prefixes, which designate the next emitted instruction.
type Assembler struct {
	Verbose      bool // If set, verbosely logs the assembler actions.
	Accumulators int  // If non-zero, the number of accumulators available.
	MemoryCells  int  // If non-zero, the number of memory cells available.
	CollectAll   bool // If set, reports every line error instead of the first.

	predefine map[string]string
	Label     map[string]int    // Map of labels to instruction indexes.
	Equate    map[string]string // Map of constants usable in values and $(...).
}

// Predefine defines a new constant or redefines an existing one.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// MAX_LINE_LENGTH is the longest source line Parse accepts.
const MAX_LINE_LENGTH = 1 << 20

var (
	reToken       = regexp.MustCompile(`:=|<=|>=|=<|=>|==|!=|[\pL_][\pL\pN_]*|\d+|\S`)
	reIdentifier  = regexp.MustCompile(`^[\pL_][\pL\pN_]*$`)
	reAccumulator = regexp.MustCompile(`^(?:a|α)(\d+)$`)
	reNumber      = regexp.MustCompile(`^\d+$`)
)

func syntaxError(err error) error {
	return errors.Join(ErrStatementInvalid, err)
}

func operandError(err error) error {
	return errors.Join(ErrOperandInvalid, err)
}

// stripComment removes a trailing '#' or '//' comment, whichever is first.
func stripComment(line string) string {
	cut := len(line)
	if n := strings.Index(line, "#"); n >= 0 {
		cut = n
	}
	if n := strings.Index(line, "//"); n >= 0 && n < cut {
		cut = n
	}
	return line[:cut]
}

// parenEval does compile-time $(...) evaluations.
func (asm *Assembler) parenEval(expr string) (value int32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		v64, perr := strconv.ParseInt(str, 0, 64)
		if perr != nil {
			// Non-integer constants are not visible to expressions.
			continue
		}
		pred[key] = starlark.MakeInt64(v64)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok || st_int64 > math.MaxInt32 || st_int64 < math.MinInt32 {
		err = ErrParseNumber(expr)
		return
	}
	value = int32(st_int64)
	return
}

// tokenize splits a comment-free line into tokens, replacing $(...)
// expressions by their values.
func (asm *Assembler) tokenize(line string) (tokens []string, err error) {
	var text strings.Builder
	for {
		start := strings.Index(line, "$(")
		if start < 0 {
			text.WriteString(line)
			break
		}
		text.WriteString(line[:start])

		// Find the matching close parenthesis.
		end := -1
		depth := 0
		for n, r := range line[start+1:] {
			switch r {
			case '(':
				depth++
			case ')':
				depth--
			}
			if depth == 0 {
				end = start + 1 + n
				break
			}
		}
		if end < 0 {
			err = operandError(ErrParseExpression(line[start+2:]))
			return
		}

		var value int32
		value, err = asm.parenEval(line[start+2 : end])
		if err != nil {
			err = operandError(err)
			return
		}
		if value < 0 {
			fmt.Fprintf(&text, " - %d ", -int64(value))
		} else {
			fmt.Fprintf(&text, " %d ", value)
		}

		line = line[end+1:]
	}

	tokens = reToken.FindAllString(text.String(), -1)
	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(nil, MAX_LINE_LENGTH)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	err = scanner.Err()
	if err != nil {
		err = &ErrSyntax{LineNo: len(lines) + 1, Err: err}
		return
	}

	return asm.Translate(lines)
}

// Translate translates source lines into a Program.
func (asm *Assembler) Translate(lines []string) (prog *Program, err error) {
	var errs []error

	fail := func(lineno int, line string, e error) bool {
		errs = append(errs, &ErrSyntax{LineNo: lineno, Line: line, Err: e})
		return !asm.CollectAll
	}

	defer func() {
		if len(errs) != 0 {
			slices.SortStableFunc(errs, func(a, b error) int {
				return a.(*ErrSyntax).LineNo - b.(*ErrSyntax).LineNo
			})
			prog = nil
			err = errors.Join(errs...)
		}
	}()

	asm.Label = make(map[string]int, 16)
	asm.Equate = map[string]string{
		"LINENO":       "0",
		"ACCUMULATORS": strconv.Itoa(asm.Accumulators),
		"MEMORY_CELLS": strconv.Itoa(asm.MemoryCells),
	}
	maps.Copy(asm.Equate, asm.predefine)

	prog = &Program{
		Label:  asm.Label,
		Source: lines,
	}

	// Comment and blank elision, label discovery and instruction build.
	for n, text := range lines {
		lineno := n + 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		line := strings.TrimSpace(stripComment(norm.NFC.String(text)))
		if len(line) == 0 {
			continue
		}

		asm.Equate["LINENO"] = strconv.Itoa(lineno)
		tokens, terr := asm.tokenize(line)
		if terr != nil {
			if fail(lineno, text, terr) {
				return
			}
			continue
		}

		tokens, lerr := asm.parseLabels(tokens, prog.Len())
		if lerr != nil {
			if fail(lineno, text, lerr) {
				return
			}
			continue
		}

		if len(tokens) == 0 {
			// Label only line.
			continue
		}

		p := &parser{asm: asm, tokens: tokens}
		in, link, perr := p.statement()
		if perr != nil {
			if fail(lineno, text, perr) {
				return
			}
			in, link = Halt{}, ""
		}
		prog.Instructions = append(prog.Instructions, in)
		prog.LineNo = append(prog.LineNo, lineno)
		prog.Link = append(prog.Link, link)
	}

	// Final linking of jump labels.
	for ip, label := range prog.Link {
		if len(label) == 0 {
			continue
		}
		target := JumpHalt
		if !haltLabels[label] {
			index, ok := asm.Label[label]
			if !ok {
				lineno := prog.LineNo[ip]
				if fail(lineno, lines[lineno-1], ErrLabelMissing(label)) {
					return
				}
				continue
			}
			target = Jump(index)
		}
		prog.Instructions[ip] = withTarget(prog.Instructions[ip], target)
	}

	return
}

// parseLabels records the leading 'label:' tokens as designating the
// instruction at ip, and returns the remaining tokens.
func (asm *Assembler) parseLabels(tokens []string, ip int) (rest []string, err error) {
	rest = tokens
	for len(rest) >= 2 && rest[1] == ":" {
		label := rest[0]
		if !reIdentifier.MatchString(label) {
			err = syntaxError(ErrLabelSyntax)
			return
		}
		if haltLabels[label] {
			err = errors.Join(ErrLabelDuplicate, ErrLabelReserved)
			return
		}
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}
		asm.Label[label] = ip
		rest = rest[2:]
	}
	return
}

// parser matches the tokens of a single statement.
type parser struct {
	asm    *Assembler
	tokens []string
	pos    int
}

func (p *parser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *parser) next() (tok string) {
	tok = p.peek()
	if len(tok) != 0 {
		p.pos++
	}
	return
}

func (p *parser) more() bool {
	return p.pos < len(p.tokens)
}

func (p *parser) expect(keyword string) (err error) {
	tok := p.next()
	if !strings.EqualFold(tok, keyword) {
		if len(tok) == 0 {
			err = syntaxError(ErrValueMissing)
		} else {
			err = syntaxError(errors.New(f("expected '%v', found '%v'", keyword, tok)))
		}
	}
	return
}

func (p *parser) done() (err error) {
	if p.more() {
		err = syntaxError(ErrExtraTokens)
	}
	return
}

// statement matches one of the statement forms.
func (p *parser) statement() (in Instruction, link string, err error) {
	head := p.peek()

	if len(p.tokens) == 1 && haltLabels[head] {
		in = Halt{}
		return
	}

	switch strings.ToLower(head) {
	case "goto":
		p.next()
		link, err = p.label()
		if err == nil {
			err = p.done()
		}
		in = Goto{}
	case "call":
		p.next()
		link, err = p.label()
		if err == nil {
			err = p.done()
		}
		in = Call{}
	case "return":
		p.next()
		err = p.done()
		in = Return{}
	case "push":
		p.next()
		var acc int
		acc, err = p.optionalAccumulator()
		in = Push{Accumulator: acc}
	case "pop":
		p.next()
		var acc int
		acc, err = p.optionalAccumulator()
		in = Pop{Accumulator: acc}
	case "stack":
		p.next()
		var op Op
		op, err = p.op()
		if err == nil {
			err = p.done()
		}
		in = StackOp{Op: op}
	case "if":
		p.next()
		in, link, err = p.jumpIf()
	default:
		in, err = p.assignment()
	}

	return
}

// jumpIf matches 'if V cmp V then goto L'; 'then' may be omitted.
func (p *parser) jumpIf() (in Instruction, link string, err error) {
	var jmp JumpIf

	jmp.Left, err = p.value()
	if err != nil {
		return
	}
	jmp.Cmp, err = p.cmp()
	if err != nil {
		return
	}
	jmp.Right, err = p.value()
	if err != nil {
		return
	}
	if strings.EqualFold(p.peek(), "then") {
		p.next()
	}
	err = p.expect("goto")
	if err != nil {
		return
	}
	link, err = p.label()
	if err != nil {
		return
	}
	err = p.done()
	in = jmp
	return
}

// assignment matches 'T := V' and 'T := V op V'.
func (p *parser) assignment() (in Instruction, err error) {
	target, err := p.value()
	if err != nil {
		if errors.Is(err, ErrOperandInvalid) && p.peek() == ":=" {
			return
		}
		err = syntaxError(ErrInstructionInvalid(p.tokens[0]))
		return
	}
	if p.peek() != ":=" {
		err = syntaxError(ErrInstructionInvalid(p.tokens[0]))
		return
	}
	if !Writable(target) {
		err = operandError(ErrTargetInvalid)
		return
	}
	p.next()

	left, err := p.value()
	if err != nil {
		return
	}
	if !p.more() {
		in = Assign{Target: target, Source: left}
		return
	}

	op, err := p.op()
	if err != nil {
		return
	}
	right, err := p.value()
	if err != nil {
		return
	}
	err = p.done()
	in = Calc{Target: target, Left: left, Op: op, Right: right}
	return
}

func (p *parser) label() (label string, err error) {
	label = p.next()
	if len(label) == 0 {
		err = syntaxError(ErrValueMissing)
		return
	}
	if !reIdentifier.MatchString(label) {
		err = syntaxError(ErrLabelSyntax)
	}
	return
}

func (p *parser) op() (op Op, err error) {
	tok := p.next()
	op, ok := opMap[tok]
	if !ok {
		err = syntaxError(ErrOperatorInvalid)
	}
	return
}

func (p *parser) cmp() (cmp Cmp, err error) {
	tok := p.next()
	cmp, ok := cmpMap[tok]
	if !ok {
		err = syntaxError(ErrCompareInvalid)
	}
	return
}

func (p *parser) optionalAccumulator() (index int, err error) {
	if !p.more() {
		return
	}
	value, err := p.value()
	if err != nil {
		return
	}
	acc, ok := value.(Accumulator)
	if !ok {
		err = operandError(ErrTargetInvalid)
		return
	}
	index = acc.Index
	err = p.done()
	return
}

// value matches an accumulator, memory cell or constant.
func (p *parser) value() (value Operand, err error) {
	asm := p.asm
	tok := p.next()

	switch {
	case len(tok) == 0:
		err = syntaxError(ErrValueMissing)
	case reAccumulator.MatchString(tok):
		digits := reAccumulator.FindStringSubmatch(tok)[1]
		index, perr := strconv.Atoi(digits)
		if perr != nil {
			err = operandError(ErrParseNumber(digits))
			return
		}
		if asm.Accumulators > 0 && index >= asm.Accumulators {
			err = operandError(ErrOutOfRange)
			return
		}
		value = Accumulator{Index: index}
	case (tok == "ρ" || tok == "p") && p.peek() == "(":
		p.next()
		var index Operand
		index, err = p.value()
		if err != nil {
			return
		}
		err = p.expect(")")
		if err != nil {
			return
		}
		cell := MemoryCell{Index: index}
		if n, ok := cell.StaticIndex(); ok {
			if n < 0 {
				err = operandError(ErrParseValue(fmt.Sprint(n)))
				return
			}
			if asm.MemoryCells > 0 && n >= asm.MemoryCells {
				err = operandError(ErrOutOfRange)
				return
			}
		}
		value = cell
	case (tok == "-" || tok == "−") && reNumber.MatchString(p.peek()):
		digits := p.next()
		v64, perr := strconv.ParseInt("-"+digits, 10, 32)
		if perr != nil {
			err = operandError(ErrParseNumber("-" + digits))
			return
		}
		value = Constant{Value: int32(v64)}
	case reNumber.MatchString(tok):
		v64, perr := strconv.ParseInt(tok, 10, 32)
		if perr != nil {
			err = operandError(ErrParseNumber(tok))
			return
		}
		value = Constant{Value: int32(v64)}
	case !reIdentifier.MatchString(tok):
		err = syntaxError(ErrParseValue(tok))
	default:
		equate, ok := asm.Equate[tok]
		if !ok {
			err = operandError(ErrParseValue(tok))
			return
		}
		v64, perr := strconv.ParseInt(equate, 0, 32)
		if perr != nil {
			err = operandError(ErrParseNumber(equate))
			return
		}
		value = Constant{Value: int32(v64)}
	}

	return
}
