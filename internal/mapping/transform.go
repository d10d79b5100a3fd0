package mapping

import (
	"fmt"
	"maps"
	"sort"

	"als-transform/internal/subjectid"
)

// TransformFunc computes a target value from the resolved source values.
type TransformFunc func(args []any, params map[string]any) (any, error)

// Builtin is a transform implementation the YAML can refer to by name.
type Builtin struct {
	Name string
	// Unary builtins take exactly one source value, mapped over arrays.
	Unary       bool
	Description string
	Fn          TransformFunc
}

// TransformRegistry holds the transforms a mapping file may use: every
// builtin under its own name plus the file's declared transforms.
type TransformRegistry struct {
	transforms map[string]*Transform
}

// Transform is a builtin bound to fixed parameters.
type Transform struct {
	Def     *TransformDef
	Builtin *Builtin
}

// NewTransformRegistry creates a registry holding the builtins.
func NewTransformRegistry(style subjectid.Style) *TransformRegistry {
	r := &TransformRegistry{transforms: make(map[string]*Transform)}

	for _, b := range builtins(style) {
		r.transforms[b.Name] = &Transform{
			Def:     &TransformDef{Name: b.Name, Func: b.Name, Description: b.Description},
			Builtin: b,
		}
	}

	return r
}

// BuildRegistry builds a transform registry from a MappingFile. Declared
// transforms whose func does not resolve are left out; Validate reports
// them as unknown_func.
func BuildRegistry(mf *MappingFile, style subjectid.Style) *TransformRegistry {
	registry := NewTransformRegistry(style)

	for i := range mf.Transforms {
		def := &mf.Transforms[i]
		if b := registry.builtin(def); b != nil {
			registry.transforms[def.Name] = &Transform{Def: def, Builtin: b}
		}
	}

	return registry
}

// Add registers a declared transform.
func (r *TransformRegistry) Add(def *TransformDef) error {
	b := r.builtin(def)
	if b == nil {
		return fmt.Errorf("transform %q: unknown func %q", def.Name, funcName(def))
	}

	r.transforms[def.Name] = &Transform{Def: def, Builtin: b}

	return nil
}

// builtin resolves the func def calls, or returns nil.
func (r *TransformRegistry) builtin(def *TransformDef) *Builtin {
	if base, ok := r.transforms[funcName(def)]; ok {
		return base.Builtin
	}

	return nil
}

func funcName(def *TransformDef) string {
	if def.Func == "" {
		return def.Name
	}

	return def.Func
}

// Get returns a transform by name, or nil if not found.
func (r *TransformRegistry) Get(name string) *Transform {
	return r.transforms[name]
}

// Has returns true if a transform with the given name exists.
func (r *TransformRegistry) Has(name string) bool {
	_, exists := r.transforms[name]
	return exists
}

// Names returns all transform names, sorted.
func (r *TransformRegistry) Names() []string {
	names := make([]string, 0, len(r.transforms))
	for name := range r.transforms {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Apply runs the transform. Field-level params override declared ones.
func (t *Transform) Apply(args []any, params map[string]any) (any, error) {
	merged := make(map[string]any, len(t.Def.Params)+len(params))
	maps.Copy(merged, t.Def.Params)
	maps.Copy(merged, params)

	if t.Builtin.Unary && len(args) != 1 {
		return nil, fmt.Errorf("%s takes exactly one source value, got %d", t.Def.Name, len(args))
	}

	out, err := t.Builtin.Fn(args, merged)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.Def.Name, err)
	}

	return out, nil
}
