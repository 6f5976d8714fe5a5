// Package config describes the geometry and initial state of a machine.
package config

import (
	"fmt"
	"maps"
	"slices"

	"golang.org/x/text/language"
)

const (
	DEFAULT_ACCUMULATORS = 4
	DEFAULT_MEMORY_CELLS = 16
)

// Config is a machine configuration.
type Config struct {
	Accumulators int           // Number of accumulators.
	MemoryCells  int           // Number of memory cells.
	StackLimit   int           // Stack depth limit, 0 for unbounded.
	MaxTicks     int           // Tick budget for a run, 0 for unbounded.
	Accumulator  map[int]int32 // Initial accumulator values.
	Memory       map[int]int32 // Initial memory cell values.
	Breakpoints  []int         // Source line breakpoints.
	Language     string        // Message language, as a BCP 47 tag.
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Accumulators: DEFAULT_ACCUMULATORS,
		MemoryCells:  DEFAULT_MEMORY_CELLS,
		Accumulator:  map[int]int32{},
		Memory:       map[int]int32{},
	}
}

// Validate checks the configuration for consistency.
func (cfg *Config) Validate() (err error) {
	fail := func(field string, e error) error {
		return &ErrField{Field: field, Err: e}
	}

	switch {
	case cfg.Accumulators <= 0:
		return fail("accumulators", ErrNotPositive)
	case cfg.MemoryCells <= 0:
		return fail("memory_cells", ErrNotPositive)
	case cfg.StackLimit < 0:
		return fail("stack_limit", ErrNegative)
	case cfg.MaxTicks < 0:
		return fail("max_ticks", ErrNegative)
	}

	for _, index := range slices.Sorted(maps.Keys(cfg.Accumulator)) {
		if index < 0 || index >= cfg.Accumulators {
			return fail(fmt.Sprintf("accumulator[%d]", index), ErrIndexRange)
		}
	}

	for _, index := range slices.Sorted(maps.Keys(cfg.Memory)) {
		if index < 0 || index >= cfg.MemoryCells {
			return fail(fmt.Sprintf("memory[%d]", index), ErrIndexRange)
		}
	}

	for _, line := range cfg.Breakpoints {
		if line <= 0 {
			return fail("breakpoints", ErrNotPositive)
		}
	}

	if len(cfg.Language) != 0 {
		_, err = language.Parse(cfg.Language)
		if err != nil {
			return fail("language", err)
		}
	}

	return
}
