package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/ezrec/alpha/emulator"
)

var dumpState bool

var runCmd = &cobra.Command{
	Use:   "run source",
	Short: "Run a program to completion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		emu := newEmulator()

		err = load(emu, args[0])
		if err != nil {
			return
		}

		if dumpState {
			atexit.Register(func() {
				dbg := &emulator.Debugger{Emulator: emu}
				dbg.Where(os.Stderr)
				dbg.State(os.Stderr)
			})
		}

		err = emu.Run()
		return
	},
}

var debugCmd = &cobra.Command{
	Use:   "debug source",
	Short: "Step through a program interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		emu := newEmulator()

		err = load(emu, args[0])
		if err != nil {
			return
		}

		dbg := &emulator.Debugger{Emulator: emu, Prompt: "(alpha) "}
		dbg.Where(cmd.OutOrStdout())
		err = dbg.Run(cmd.InOrStdin(), cmd.OutOrStdout())
		return
	},
}

func load(emu *emulator.Emulator, path string) (err error) {
	inf, err := openSource(path)
	if err != nil {
		return
	}
	defer inf.Close()

	err = emu.Load(inf)
	return
}

func init() {
	runCmd.Flags().BoolVar(&dumpState, "dump", false, "dump the machine state on exit")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(debugCmd)
}
