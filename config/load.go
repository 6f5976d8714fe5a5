package config

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
	"gopkg.in/yaml.v3"
)

// document is the on-disk form of a Config. Absent fields keep their
// default values.
type document[K comparable] struct {
	Accumulators *int        `toml:"accumulators" yaml:"accumulators"`
	MemoryCells  *int        `toml:"memory_cells" yaml:"memory_cells"`
	StackLimit   *int        `toml:"stack_limit" yaml:"stack_limit"`
	MaxTicks     *int        `toml:"max_ticks" yaml:"max_ticks"`
	Accumulator  map[K]int32 `toml:"accumulator" yaml:"accumulator"`
	Memory       map[K]int32 `toml:"memory" yaml:"memory"`
	Breakpoints  []int       `toml:"breakpoints" yaml:"breakpoints"`
	Language     *string     `toml:"language" yaml:"language"`
}

func (doc *document[K]) apply(cfg *Config, index func(K) (int, error)) (err error) {
	set := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	set(&cfg.Accumulators, doc.Accumulators)
	set(&cfg.MemoryCells, doc.MemoryCells)
	set(&cfg.StackLimit, doc.StackLimit)
	set(&cfg.MaxTicks, doc.MaxTicks)

	if doc.Language != nil {
		cfg.Language = *doc.Language
	}
	if doc.Breakpoints != nil {
		cfg.Breakpoints = doc.Breakpoints
	}

	preload := func(field string, dst map[int]int32, src map[K]int32) error {
		for key, value := range src {
			n, err := index(key)
			if err != nil {
				return &ErrField{Field: field, Err: err}
			}
			dst[n] = value
		}
		return nil
	}

	err = preload("accumulator", cfg.Accumulator, doc.Accumulator)
	if err != nil {
		return
	}

	err = preload("memory", cfg.Memory, doc.Memory)
	return
}

// Load reads a configuration file, selecting the format by extension.
func Load(path string) (cfg *Config, err error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".toml", ".yaml", ".yml":
		var file *os.File
		file, err = os.Open(path)
		if err != nil {
			return
		}
		defer file.Close()
		if ext == ".toml" {
			cfg, err = LoadTOML(file)
		} else {
			cfg, err = LoadYAML(file)
		}
	case ".star":
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return
		}
		cfg, err = LoadStarlark(path, data)
	default:
		err = errors.Join(ErrFormatUnknown, errors.New(path))
	}

	return
}

// LoadTOML reads a TOML configuration.
func LoadTOML(r io.Reader) (cfg *Config, err error) {
	var doc document[string]

	md, err := toml.NewDecoder(r).Decode(&doc)
	if err != nil {
		err = errors.Join(ErrConfigInvalid, err)
		return
	}

	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		err = &ErrField{Field: undecoded[0].String(), Err: ErrFieldUnknown}
		return
	}

	cfg = Default()
	err = doc.apply(cfg, strconv.Atoi)
	if err != nil {
		cfg = nil
		return
	}

	err = cfg.Validate()
	if err != nil {
		cfg = nil
	}
	return
}

// LoadYAML reads a YAML configuration.
func LoadYAML(r io.Reader) (cfg *Config, err error) {
	var doc document[int]

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err = dec.Decode(&doc)
	if errors.Is(err, io.EOF) {
		err = nil
	}
	if err != nil {
		err = errors.Join(ErrConfigInvalid, err)
		return
	}

	cfg = Default()
	err = doc.apply(cfg, func(n int) (int, error) { return n, nil })
	if err != nil {
		cfg = nil
		return
	}

	err = cfg.Validate()
	if err != nil {
		cfg = nil
	}
	return
}

// LoadStarlark executes a Starlark configuration script, and reads the
// configuration from its globals. Globals starting with '_', and
// functions, are ignored.
func LoadStarlark(name string, src any) (cfg *Config, err error) {
	thread := &starlark.Thread{Name: name}
	opts := syntax.FileOptions{
		Set:             true,
		While:           true,
		TopLevelControl: true,
		GlobalReassign:  true,
	}

	globals, err := starlark.ExecFileOptions(&opts, thread, name, src, nil)
	if err != nil {
		err = errors.Join(ErrConfigInvalid, err)
		return
	}

	cfg = Default()
	for _, key := range globals.Keys() {
		value := globals[key]
		if strings.HasPrefix(key, "_") {
			continue
		}
		if _, ok := value.(starlark.Callable); ok {
			continue
		}

		err = starlarkField(cfg, key, value)
		if err != nil {
			err = &ErrField{Field: key, Err: err}
			cfg = nil
			return
		}
	}

	err = cfg.Validate()
	if err != nil {
		cfg = nil
	}
	return
}

func starlarkField(cfg *Config, key string, value starlark.Value) (err error) {
	switch key {
	case "accumulators":
		cfg.Accumulators, err = starlark.AsInt32(value)
	case "memory_cells":
		cfg.MemoryCells, err = starlark.AsInt32(value)
	case "stack_limit":
		cfg.StackLimit, err = starlark.AsInt32(value)
	case "max_ticks":
		cfg.MaxTicks, err = starlark.AsInt32(value)
	case "accumulator":
		err = starlarkPreload(cfg.Accumulator, value)
	case "memory":
		err = starlarkPreload(cfg.Memory, value)
	case "breakpoints":
		iter := starlark.Iterate(value)
		if iter == nil {
			err = ErrWrongType
			return
		}
		defer iter.Done()
		cfg.Breakpoints = nil
		var item starlark.Value
		for iter.Next(&item) {
			var line int
			line, err = starlark.AsInt32(item)
			if err != nil {
				return
			}
			cfg.Breakpoints = append(cfg.Breakpoints, line)
		}
	case "language":
		var ok bool
		cfg.Language, ok = starlark.AsString(value)
		if !ok {
			err = ErrWrongType
		}
	default:
		err = ErrFieldUnknown
	}

	return
}

func starlarkPreload(dst map[int]int32, value starlark.Value) (err error) {
	dict, ok := value.(*starlark.Dict)
	if !ok {
		err = ErrWrongType
		return
	}

	for _, item := range dict.Items() {
		var index, v int
		index, err = starlark.AsInt32(item[0])
		if err != nil {
			return
		}
		v, err = starlark.AsInt32(item[1])
		if err != nil {
			return
		}
		dst[index] = int32(v)
	}

	return
}
