// Package expr defines the contract between the pipeline and the mapping
// expression engines, and provides the JSONata engine.
//
// An Evaluator turns one input record into one candidate record. Engines
// are pure: the same input yields the same output, and an Evaluator may be
// shared by concurrent workers.
package expr

import (
	"fmt"
	"path/filepath"
	"strings"

	"als-transform/internal/subjectid"
)

// Engine names.
const (
	EngineJSONata  = "jsonata"
	EngineFieldMap = "fieldmap"
)

// Evaluator applies a compiled mapping expression to one input record.
//
// A non-nil error is always a *TransformError.
type Evaluator interface {
	Evaluate(input any) (any, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(input any) (any, error)

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(input any) (any, error) {
	return f(input)
}

// KeyOrderer is implemented by evaluators whose candidates have a fixed
// top-level key order.
type KeyOrderer interface {
	KeyOrder() []string
}

// Mapping is a mapping expression bound to one source system and one
// target schema.
type Mapping struct {
	// Source names the source system (cpath, prevent, ...).
	Source string
	// Target names the target schema or class.
	Target string
	// Engine is EngineJSONata or EngineFieldMap.
	Engine string
	// Path is the file the expression came from, if any.
	Path string
	// Text is the raw expression.
	Text []byte
}

// Name identifies the mapping in errors and logs.
func (m *Mapping) Name() string {
	switch {
	case m.Source != "" && m.Target != "":
		return m.Source + "->" + m.Target
	case m.Path != "":
		return filepath.Base(m.Path)
	default:
		return m.Engine
	}
}

// Options tune engine behavior.
type Options struct {
	// SubjectIDStyle formats $globalSubjectId / globalSubjectId.
	SubjectIDStyle subjectid.Style
}

// EngineFor picks an engine from a file extension.
func EngineFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return EngineFieldMap
	default:
		return EngineJSONata
	}
}

// TransformError reports a mapping expression that could not be compiled
// or could not be applied to a record.
type TransformError struct {
	// Op is "compile" or "evaluate".
	Op string
	// Mapping names the expression.
	Mapping string
	// Path locates the failing part of the input, when known.
	Path string
	Err  error
}

func (e *TransformError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "transform %s", e.Op)

	if e.Mapping != "" {
		fmt.Fprintf(&b, " %s", e.Mapping)
	}

	if e.Path != "" {
		fmt.Fprintf(&b, " at %s", e.Path)
	}

	fmt.Fprintf(&b, ": %v", e.Err)

	return b.String()
}

func (e *TransformError) Unwrap() error {
	return e.Err
}
