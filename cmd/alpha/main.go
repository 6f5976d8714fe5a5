// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/ezrec/alpha/config"
	"github.com/ezrec/alpha/emulator"
	"github.com/ezrec/alpha/translate"
)

var options struct {
	config   string
	verbose  bool
	language string
	maxTicks int
}

var machineConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "alpha",
	Short: "Alpha-Notation interpreter",
	Long: `Alpha translates and runs Alpha-Notation programs: accumulators α0..αN,
memory cells ρ(0)..ρ(M), a value stack, labels and conditional jumps.

The machine geometry and initial state are read from a TOML, YAML or
Starlark configuration file given with --config.
`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&options.config, "config", "c", "", "machine configuration (.toml, .yaml, .star)")
	flags.BoolVarP(&options.verbose, "verbose", "v", false, "verbose mode")
	flags.StringVar(&options.language, "lang", "", "message language (BCP 47)")
	flags.IntVarP(&options.maxTicks, "max-ticks", "m", 0, "tick budget, overrides the configuration")
}

func setup(cmd *cobra.Command, args []string) (err error) {
	machineConfig = config.Default()
	if len(options.config) != 0 {
		machineConfig, err = config.Load(options.config)
		if err != nil {
			return
		}
	}

	if cmd.Flags().Changed("max-ticks") {
		machineConfig.MaxTicks = options.maxTicks
	}

	lang := machineConfig.Language
	if len(options.language) != 0 {
		lang = options.language
	}
	if len(lang) != 0 {
		err = translate.SetLanguage(lang)
	}

	return
}

// newEmulator creates an emulator from the command line configuration.
func newEmulator() (emu *emulator.Emulator) {
	emu = emulator.NewEmulator(machineConfig)
	emu.Verbose = options.verbose
	return
}

// openSource opens a program source, '-' being standard input.
func openSource(path string) (file *os.File, err error) {
	if path == "-" {
		file = os.Stdin
		return
	}
	return os.Open(path)
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		log.Print(err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
