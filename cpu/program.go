package cpu

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Program is a translated Alpha-Notation source.
type Program struct {
	Instructions []Instruction  // Instructions, addressed by index.
	Label        map[string]int // Map of labels to instruction indexes.
	LineNo       []int          // Source line number of each instruction.
	Link         []string       // Label name of each jump instruction, if any.
	Source       []string       // Source lines, as given.
}

// Len returns the number of instructions.
func (prog *Program) Len() int {
	if prog == nil {
		return 0
	}
	return len(prog.Instructions)
}

// Fetch returns the instruction at ip.
func (prog *Program) Fetch(ip int) (in Instruction, ok bool) {
	if ip < 0 || ip >= prog.Len() {
		return
	}
	return prog.Instructions[ip], true
}

// Line returns the source line number for the instruction at ip,
// or 0 if ip does not address an instruction.
func (prog *Program) Line(ip int) int {
	if prog == nil || ip < 0 || ip >= len(prog.LineNo) {
		return 0
	}
	return prog.LineNo[ip]
}

// Ip returns the instruction index emitted for a source line.
func (prog *Program) Ip(lineno int) (ip int, ok bool) {
	ip, ok = slices.BinarySearch(prog.LineNo, lineno)
	return
}

// Labels returns the labels attached to the instruction at ip, sorted.
func (prog *Program) Labels(ip int) (labels []string) {
	for label, index := range prog.Label {
		if index == ip {
			labels = append(labels, label)
		}
	}
	slices.Sort(labels)
	return
}

// Format returns the canonical text of the instruction at ip, using
// label names for jump targets.
func (prog *Program) Format(ip int) string {
	in, ok := prog.Fetch(ip)
	if !ok {
		return ""
	}

	text := in.String()
	if ip < len(prog.Link) && len(prog.Link[ip]) != 0 {
		jump := strings.LastIndex(text, " ")
		text = text[:jump+1] + prog.Link[ip]
	}

	return text
}

// Listing iterates the canonical, label-prefixed text of each instruction.
// Labels that designate the end of the program are listed on their own.
func (prog *Program) Listing() iter.Seq2[int, string] {
	return func(yield func(ip int, text string) bool) {
		for ip := range prog.Len() + 1 {
			var prefix string
			for _, label := range prog.Labels(ip) {
				prefix += label + ": "
			}
			text := strings.TrimSpace(prefix + prog.Format(ip))
			if ip == prog.Len() && len(text) == 0 {
				return
			}
			if !yield(ip, text) {
				return
			}
		}
	}
}

// String returns the program listing, one instruction per line.
func (prog *Program) String() (text string) {
	for ip, line := range prog.Listing() {
		text += fmt.Sprintf("%3d: %v\n", ip, line)
	}
	return
}
