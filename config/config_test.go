package config_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ezrec/alpha/config"
)

var _ = Describe("Config", func() {
	var cfg *config.Config

	BeforeEach(func() {
		cfg = config.Default()
	})

	Describe("Default", func() {
		It("should have four accumulators and sixteen memory cells", func() {
			Expect(cfg.Accumulators).To(Equal(4))
			Expect(cfg.MemoryCells).To(Equal(16))
			Expect(cfg.StackLimit).To(BeZero())
			Expect(cfg.MaxTicks).To(BeZero())
			Expect(cfg.Accumulator).To(BeEmpty())
			Expect(cfg.Memory).To(BeEmpty())
			Expect(cfg.Validate()).To(Succeed())
		})
	})

	Describe("Validate", func() {
		It("should reject a machine without accumulators", func() {
			cfg.Accumulators = 0
			err := cfg.Validate()
			Expect(err).To(MatchError(config.ErrConfigInvalid))
			Expect(err).To(MatchError(config.ErrNotPositive))
			Expect(err.Error()).To(ContainSubstring("accumulators"))
		})

		It("should reject a machine without memory", func() {
			cfg.MemoryCells = -3
			Expect(cfg.Validate()).To(MatchError(config.ErrNotPositive))
		})

		It("should reject negative limits", func() {
			cfg.StackLimit = -1
			Expect(cfg.Validate()).To(MatchError(config.ErrNegative))

			cfg.StackLimit = 0
			cfg.MaxTicks = -1
			Expect(cfg.Validate()).To(MatchError(config.ErrNegative))
		})

		It("should reject preloads out of range", func() {
			cfg.Accumulator[4] = 1
			err := cfg.Validate()
			Expect(err).To(MatchError(config.ErrIndexRange))
			Expect(err.Error()).To(ContainSubstring("accumulator[4]"))

			delete(cfg.Accumulator, 4)
			cfg.Memory[-1] = 1
			Expect(cfg.Validate()).To(MatchError(config.ErrIndexRange))
		})

		It("should reject breakpoints before the first line", func() {
			cfg.Breakpoints = []int{3, 0}
			Expect(cfg.Validate()).To(MatchError(config.ErrNotPositive))
		})

		It("should reject malformed languages", func() {
			cfg.Language = "not a language"
			Expect(cfg.Validate()).To(MatchError(config.ErrConfigInvalid))

			cfg.Language = "de-DE"
			Expect(cfg.Validate()).To(Succeed())
		})
	})

	Describe("LoadTOML", func() {
		It("should overlay the defaults", func() {
			cfg, err := config.LoadTOML(strings.NewReader(`
accumulators = 2
stack_limit = 8
breakpoints = [3, 5]
language = "en-GB"

[accumulator]
1 = -7

[memory]
0 = 10
15 = 20
`))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Accumulators).To(Equal(2))
			Expect(cfg.MemoryCells).To(Equal(16))
			Expect(cfg.StackLimit).To(Equal(8))
			Expect(cfg.Breakpoints).To(Equal([]int{3, 5}))
			Expect(cfg.Language).To(Equal("en-GB"))
			Expect(cfg.Accumulator).To(Equal(map[int]int32{1: -7}))
			Expect(cfg.Memory).To(Equal(map[int]int32{0: 10, 15: 20}))
		})

		It("should reject unknown fields", func() {
			_, err := config.LoadTOML(strings.NewReader("registers = 3\n"))
			Expect(err).To(MatchError(config.ErrFieldUnknown))
			Expect(err).To(MatchError(config.ErrConfigInvalid))
		})

		It("should reject non-integer indices", func() {
			_, err := config.LoadTOML(strings.NewReader("[memory]\nx = 1\n"))
			Expect(err).To(MatchError(config.ErrConfigInvalid))
		})

		It("should reject malformed documents", func() {
			_, err := config.LoadTOML(strings.NewReader("accumulators = = 3\n"))
			Expect(err).To(MatchError(config.ErrConfigInvalid))
		})

		It("should validate the result", func() {
			_, err := config.LoadTOML(strings.NewReader("[memory]\n16 = 1\n"))
			Expect(err).To(MatchError(config.ErrIndexRange))
		})
	})

	Describe("LoadYAML", func() {
		It("should overlay the defaults", func() {
			cfg, err := config.LoadYAML(strings.NewReader(`
memory_cells: 5
max_ticks: 1000
accumulator:
  0: 3
memory:
  4: -1
`))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Accumulators).To(Equal(4))
			Expect(cfg.MemoryCells).To(Equal(5))
			Expect(cfg.MaxTicks).To(Equal(1000))
			Expect(cfg.Accumulator).To(Equal(map[int]int32{0: 3}))
			Expect(cfg.Memory).To(Equal(map[int]int32{4: -1}))
		})

		It("should accept an empty document", func() {
			cfg, err := config.LoadYAML(strings.NewReader(""))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.Default()))
		})

		It("should reject unknown fields", func() {
			_, err := config.LoadYAML(strings.NewReader("registers: 3\n"))
			Expect(err).To(MatchError(config.ErrConfigInvalid))
		})
	})

	Describe("LoadStarlark", func() {
		It("should read the script globals", func() {
			cfg, err := config.LoadStarlark("squares.star", `
accumulators = 2
memory_cells = 8

def _square(n):
    return n * n

memory = {i: _square(i) for i in range(memory_cells)}
breakpoints = [1, 2]
`)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Accumulators).To(Equal(2))
			Expect(cfg.MemoryCells).To(Equal(8))
			Expect(cfg.Memory).To(HaveLen(8))
			Expect(cfg.Memory).To(HaveKeyWithValue(7, int32(49)))
			Expect(cfg.Breakpoints).To(Equal([]int{1, 2}))
		})

		It("should ignore functions", func() {
			cfg, err := config.LoadStarlark("fn.star", `
def helper():
    pass

accumulators = 1
`)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Accumulators).To(Equal(1))
		})

		It("should reject unknown globals", func() {
			_, err := config.LoadStarlark("bad.star", "registers = 3\n")
			Expect(err).To(MatchError(config.ErrFieldUnknown))
			Expect(err.Error()).To(ContainSubstring("registers"))
		})

		It("should reject values of the wrong type", func() {
			_, err := config.LoadStarlark("bad.star", "memory = [1, 2]\n")
			Expect(err).To(MatchError(config.ErrWrongType))

			_, err = config.LoadStarlark("bad.star", "language = 42\n")
			Expect(err).To(MatchError(config.ErrWrongType))

			_, err = config.LoadStarlark("bad.star", "accumulators = 'four'\n")
			Expect(err).To(MatchError(config.ErrConfigInvalid))
		})

		It("should report script errors", func() {
			_, err := config.LoadStarlark("bad.star", "accumulators = 1 +\n")
			Expect(err).To(MatchError(config.ErrConfigInvalid))

			_, err = config.LoadStarlark("bad.star", "accumulators = 1 // 0\n")
			Expect(err).To(MatchError(config.ErrConfigInvalid))
		})
	})

	Describe("Load", func() {
		var dir string

		BeforeEach(func() {
			var err error
			dir, err = os.MkdirTemp("", "alpha-config")
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(os.RemoveAll, dir)
		})

		write := func(name, text string) string {
			path := filepath.Join(dir, name)
			Expect(os.WriteFile(path, []byte(text), 0o644)).To(Succeed())
			return path
		}

		It("should select the format by extension", func() {
			for name, text := range map[string]string{
				"machine.toml": "accumulators = 3\n",
				"machine.yaml": "accumulators: 3\n",
				"machine.YML":  "accumulators: 3\n",
				"machine.star": "accumulators = 1 + 2\n",
			} {
				cfg, err := config.Load(write(name, text))
				Expect(err).NotTo(HaveOccurred(), name)
				Expect(cfg.Accumulators).To(Equal(3), name)
			}
		})

		It("should reject unknown formats", func() {
			_, err := config.Load(write("machine.json", "{}"))
			Expect(err).To(MatchError(config.ErrFormatUnknown))
		})

		It("should report missing files", func() {
			_, err := config.Load(filepath.Join(dir, "missing.toml"))
			Expect(err).To(MatchError(os.ErrNotExist))
		})
	})
})
