package mapping

import (
	"strconv"
	"strings"
)

// MappingFile represents the root of a YAML field-map definition.
type MappingFile struct {
	// Version of the file format.
	Version string `yaml:"version,omitempty"`

	// Source names the source system the file maps from.
	Source string `yaml:"source,omitempty"`

	// Target names the target schema or class.
	Target string `yaml:"target,omitempty"`

	// OneToOne is the shorthand for straight copies: keys are target
	// paths, values are source paths. Applied first, in file order.
	OneToOne OrderedPairs `yaml:"121,omitempty"`

	// Fields defines explicit field mappings with full control.
	Fields []FieldMapping `yaml:"fields,omitempty"`

	// Transforms declares named, parameterized transforms.
	Transforms []TransformDef `yaml:"transforms,omitempty"`
}

// FieldMapping defines how one target field is populated.
type FieldMapping struct {
	// Target is the target field path ("creator", "contact.email").
	Target string `yaml:"target"`

	// Source is the source path or paths. Empty means the value comes
	// from Default or from a transform without arguments.
	Source StringOrArray `yaml:"source,omitempty"`

	// Default is used when the source is absent or null.
	Default any `yaml:"default,omitempty"`

	// Transform names a declared transform or a built-in.
	Transform string `yaml:"transform,omitempty"`

	// Params are passed to the transform, overriding the declared ones.
	Params map[string]any `yaml:"params,omitempty"`

	// Optional skips the field when the source is absent.
	Optional bool `yaml:"optional,omitempty"`
}

// Cardinality represents the mapping cardinality.
type Cardinality int

const (
	CardinalityConstant  Cardinality = iota // 0:1 - default or generated value
	CardinalityOneToOne                     // 1:1 - single source to target
	CardinalityManyToOne                    // N:1 - multiple sources to target
)

// String returns a human-readable representation of the cardinality.
func (c Cardinality) String() string {
	switch c {
	case CardinalityConstant:
		return "0:1"
	case CardinalityOneToOne:
		return "1:1"
	case CardinalityManyToOne:
		return "N:1"
	default:
		return "unknown"
	}
}

// GetCardinality returns the cardinality of this field mapping.
func (fm *FieldMapping) GetCardinality() Cardinality {
	switch len(fm.Source) {
	case 0:
		return CardinalityConstant
	case 1:
		return CardinalityOneToOne
	default:
		return CardinalityManyToOne
	}
}

// NeedsTransform returns true if this mapping requires a transform function.
func (fm *FieldMapping) NeedsTransform() bool {
	return fm.Source.IsMultiple()
}

// HasDefault reports whether a default value was given.
func (fm *FieldMapping) HasDefault() bool {
	return fm.Default != nil
}

// TransformDef declares a named transform: a built-in function plus fixed
// parameters.
type TransformDef struct {
	// Name is the transform identifier used in field mappings.
	Name string `yaml:"name"`

	// Func is the built-in to call. Defaults to Name.
	Func string `yaml:"func,omitempty"`

	// Params are fixed parameters for every call.
	Params map[string]any `yaml:"params,omitempty"`

	// Description is an optional human-readable description.
	Description string `yaml:"description,omitempty"`
}

// PathSegment represents a parsed segment of a field path.
type PathSegment struct {
	// Name is the field name.
	Name string

	// IsSlice collects over every array element ("tags[]").
	IsSlice bool

	// Index selects one array element ("files[0]"); -1 when unset.
	Index int
}

// FieldPath represents a parsed field path like "contacts[].name".
type FieldPath struct {
	Segments []PathSegment
}

// String returns the path as a string.
func (p FieldPath) String() string {
	var sb strings.Builder

	for i, seg := range p.Segments {
		if i > 0 {
			sb.WriteString(".")
		}

		sb.WriteString(seg.Name)

		switch {
		case seg.IsSlice:
			sb.WriteString("[]")
		case seg.Index >= 0:
			sb.WriteString("[")
			sb.WriteString(strconv.Itoa(seg.Index))
			sb.WriteString("]")
		}
	}

	return sb.String()
}

// IsPlain reports whether no segment indexes into an array.
func (p FieldPath) IsPlain() bool {
	for _, seg := range p.Segments {
		if !seg.isPlain() {
			return false
		}
	}

	return true
}

// Root returns the first segment's field name.
func (p FieldPath) Root() string {
	if len(p.Segments) == 0 {
		return ""
	}

	return p.Segments[0].Name
}

func (s PathSegment) isPlain() bool {
	return !s.IsSlice && s.Index < 0
}
