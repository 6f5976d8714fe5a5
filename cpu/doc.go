// Package cpu implements the translator and execution engine for
// Alpha-Notation, a small teaching assembly language.
//
// The machine consists of a fixed number of accumulators (α0, α1, ...),
// a fixed number of integer memory cells (ρ(0), ρ(1), ...), a value stack,
// a call stack, and an instruction pointer into the translated Program.
//
// The Assembler turns source lines into a Program whose jump targets are
// resolved instruction indexes; comment and blank lines take no address.
// The Machine executes the Program one instruction per Step.
package cpu
