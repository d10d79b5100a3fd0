package mapping

import (
	"errors"
	"fmt"
	"slices"

	"als-transform/internal/expr"
	"als-transform/internal/subjectid"
)

func init() {
	expr.RegisterEngine(expr.EngineFieldMap, Compile)
}

// Engine evaluates a compiled field map. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	name  string
	rules []rule
	keys  []string
}

type rule struct {
	field     *FieldMapping
	target    FieldPath
	sources   []FieldPath
	transform *Transform
}

// errMissingSource marks an absent source that has no fallback.
var errMissingSource = errors.New("missing source field")

// Compile builds an Engine from a field-map expression. The mapping's
// Source and Target are filled from the file header when unset.
func Compile(m *expr.Mapping, opts expr.Options) (expr.Evaluator, error) {
	mf, err := Parse(m.Text)
	if err != nil {
		return nil, err
	}

	if m.Source == "" {
		m.Source = mf.Source
	}

	if m.Target == "" {
		m.Target = mf.Target
	}

	return New(mf, m.Name(), opts)
}

// New validates mf and prepares it for evaluation.
func New(mf *MappingFile, name string, opts expr.Options) (*Engine, error) {
	style := opts.SubjectIDStyle
	if style == "" {
		style = subjectid.DefaultStyle
	}

	NormalizeMappingFile(mf)

	reg := BuildRegistry(mf, style)

	diags := Validate(mf, reg)
	if err := diags.Err(); err != nil {
		return nil, err
	}

	e := &Engine{name: name, rules: make([]rule, 0, len(mf.Fields))}

	for i := range mf.Fields {
		fm := &mf.Fields[i]

		target, err := ParsePath(fm.Target)
		if err != nil {
			return nil, err
		}

		sources, err := ParsePaths(fm.Source)
		if err != nil {
			return nil, err
		}

		r := rule{field: fm, target: target, sources: sources}
		if fm.Transform != "" {
			r.transform = reg.Get(fm.Transform)
		}

		e.rules = append(e.rules, r)

		if root := target.Root(); !slices.Contains(e.keys, root) {
			e.keys = append(e.keys, root)
		}
	}

	return e, nil
}

// KeyOrder returns the top-level target fields in rule order.
func (e *Engine) KeyOrder() []string {
	return e.keys
}

// Evaluate maps one input record. Rules run in file order and the first
// failure is returned as a *expr.TransformError.
func (e *Engine) Evaluate(input any) (any, error) {
	out := map[string]any{}

	for i := range e.rules {
		r := &e.rules[i]

		val, ok, path, err := r.value(input)
		if err != nil {
			return nil, &expr.TransformError{Op: "evaluate", Mapping: e.name, Path: path, Err: err}
		}

		if !ok {
			continue
		}

		if err := r.target.Set(out, val); err != nil {
			return nil, &expr.TransformError{Op: "evaluate", Mapping: e.name, Path: r.field.Target, Err: err}
		}
	}

	return out, nil
}

// value resolves one rule. It returns the path to blame on error.
func (r *rule) value(input any) (any, bool, string, error) {
	fm := r.field

	args := make([]any, 0, len(r.sources))

	for _, src := range r.sources {
		v, ok := src.Resolve(input)
		if ok {
			args = append(args, v)
			continue
		}

		switch {
		case fm.HasDefault():
			return deepCopy(fm.Default), true, "", nil
		case fm.Optional:
			return nil, false, "", nil
		default:
			return nil, false, src.String(), errMissingSource
		}
	}

	if r.transform != nil {
		v, err := r.transform.Apply(args, fm.Params)
		if err != nil {
			return nil, false, fm.Target, fmt.Errorf("transform %w", err)
		}

		if v == nil && fm.HasDefault() {
			return deepCopy(fm.Default), true, "", nil
		}

		return deepCopy(v), v != nil, "", nil
	}

	if len(args) == 0 {
		return deepCopy(fm.Default), fm.HasDefault(), "", nil
	}

	return deepCopy(args[0]), true, "", nil
}
