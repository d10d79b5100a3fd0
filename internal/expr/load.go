package expr

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Compiler builds an Evaluator for a mapping.
type Compiler func(m *Mapping, opts Options) (Evaluator, error)

var (
	enginesMu sync.RWMutex
	engines   = map[string]Compiler{
		EngineJSONata: compileJSONata,
	}
)

// RegisterEngine makes an engine available to Load and Compile. It panics
// on a duplicate name, like database/sql drivers.
func RegisterEngine(name string, c Compiler) {
	enginesMu.Lock()
	defer enginesMu.Unlock()

	if _, dup := engines[name]; dup {
		panic("expr: engine registered twice: " + name)
	}

	engines[name] = c
}

// Engines returns the registered engine names, sorted.
func Engines() []string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()

	names := make([]string, 0, len(engines))
	for n := range engines {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

// Load reads a mapping file and compiles it. An empty engine is inferred
// from the file extension.
func Load(path, engine string, opts Options) (Evaluator, *Mapping, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read mapping: %w", err)
	}

	if engine == "" {
		engine = EngineFor(path)
	}

	m := &Mapping{Engine: engine, Path: path, Text: text}

	ev, err := Compile(m, opts)
	if err != nil {
		return nil, nil, err
	}

	return ev, m, nil
}

// Compile builds an Evaluator for m. Failures are returned as a
// *TransformError with Op "compile".
func Compile(m *Mapping, opts Options) (Evaluator, error) {
	enginesMu.RLock()
	c, ok := engines[m.Engine]
	enginesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown mapping engine %q (registered: %v)", m.Engine, Engines())
	}

	ev, err := c(m, opts)
	if err != nil {
		var te *TransformError
		if errors.As(err, &te) {
			return nil, err
		}

		return nil, &TransformError{Op: "compile", Mapping: m.Name(), Err: err}
	}

	return ev, nil
}
