package schema

import (
	"fmt"
	"slices"
)

// Schema is the subset of a JSON Schema node the validator understands.
type Schema struct {
	// Types holds the accepted JSON type names; empty accepts anything.
	Types []string
	// Enum holds the permissible values; empty means unconstrained.
	Enum []any
	// CaseInsensitive relaxes enum matching for strings.
	CaseInsensitive bool
	// Properties are kept in declaration order.
	Properties []*Property
	// Required lists required property names in declaration order.
	Required []string
	// AdditionalProperties is nil when undeclared (allowed).
	AdditionalProperties *bool
	// Items describes array elements.
	Items *Schema
}

// Property is a named property schema.
type Property struct {
	Name   string
	Schema *Schema
}

// Property returns the schema declared for name, or nil.
func (s *Schema) Property(name string) *Schema {
	for _, p := range s.Properties {
		if p.Name == name {
			return p.Schema
		}
	}

	return nil
}

// PropertyNames returns declared property names in order.
func (s *Schema) PropertyNames() []string {
	names := make([]string, len(s.Properties))
	for i, p := range s.Properties {
		names[i] = p.Name
	}

	return names
}

// IsRequired reports whether name is listed in required.
func (s *Schema) IsRequired(name string) bool {
	return slices.Contains(s.Required, name)
}

// Closed reports whether undeclared properties are rejected.
func (s *Schema) Closed() bool {
	return s.AdditionalProperties != nil && !*s.AdditionalProperties
}

// IsObject reports whether the node constrains object members.
func (s *Schema) IsObject() bool {
	return len(s.Properties) > 0 || len(s.Required) > 0 || s.AdditionalProperties != nil
}

// LoadError is returned when a schema document cannot be read, parsed or
// compiled. It is always fatal before any record is processed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load schema: %v", e.Err)
	}

	return fmt.Sprintf("load schema %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
