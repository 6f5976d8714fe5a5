package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ezrec/alpha/cpu"
	"github.com/ezrec/alpha/translate"
)

var errCheckFailed = errors.New(translate.From("check failed"))

var checkCmd = &cobra.Command{
	Use:   "check source...",
	Short: "Translate programs, reporting every error",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		failed := false
		for _, path := range args {
			prog, perr := assemble(path, true)
			if perr == nil {
				if options.verbose {
					fmt.Fprintf(cmd.OutOrStdout(), "%v: %d instructions\n", path, prog.Len())
				}
				continue
			}

			failed = true
			errs := []error{perr}
			if joined, ok := perr.(interface{ Unwrap() []error }); ok {
				errs = joined.Unwrap()
			}
			for _, e := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "%v: %v\n", path, e)
			}
		}

		if failed {
			err = errCheckFailed
		}
		return
	},
}

var fmtCmd = &cobra.Command{
	Use:   "fmt source",
	Short: "Print the canonical listing of a program",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		prog, err := assemble(args[0], false)
		if err != nil {
			return
		}

		for _, text := range prog.Listing() {
			fmt.Fprintln(cmd.OutOrStdout(), text)
		}
		return
	},
}

// assemble translates a source file for the configured machine.
func assemble(path string, collectAll bool) (prog *cpu.Program, err error) {
	inf, err := openSource(path)
	if err != nil {
		return
	}
	defer inf.Close()

	asm := newEmulator().Assembler()
	asm.CollectAll = collectAll

	prog, err = asm.Parse(inf)
	return
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(fmtCmd)
}
