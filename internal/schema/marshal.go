package schema

import (
	"bytes"
	"encoding/json"
)

// Marshal renders s as indented JSON Schema, keeping property order.
// A schema that refers back to itself is written as {} at the point of
// recursion.
func Marshal(s *Schema) ([]byte, error) {
	raw, err := s.MarshalJSON()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}

	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler.
func (s *Schema) MarshalJSON() ([]byte, error) {
	e := &encoder{active: map[*Schema]bool{}}
	if err := e.schema(s); err != nil {
		return nil, err
	}

	return e.buf.Bytes(), nil
}

type encoder struct {
	buf    bytes.Buffer
	active map[*Schema]bool
}

func (e *encoder) schema(s *Schema) error {
	if s == nil || e.active[s] {
		e.buf.WriteString("{}")
		return nil
	}

	e.active[s] = true
	defer delete(e.active, s)

	e.buf.WriteByte('{')

	first := true
	key := func(name string) {
		if !first {
			e.buf.WriteByte(',')
		}

		first = false

		k, _ := json.Marshal(name)
		e.buf.Write(k)
		e.buf.WriteByte(':')
	}

	value := func(v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}

		e.buf.Write(b)

		return nil
	}

	switch len(s.Types) {
	case 0:
	case 1:
		key("type")
		if err := value(s.Types[0]); err != nil {
			return err
		}
	default:
		key("type")
		if err := value(s.Types); err != nil {
			return err
		}
	}

	if len(s.Enum) > 0 {
		key("enum")
		if err := value(s.Enum); err != nil {
			return err
		}
	}

	if s.CaseInsensitive {
		key("x-case-insensitive")
		e.buf.WriteString("true")
	}

	if len(s.Properties) > 0 {
		key("properties")
		e.buf.WriteByte('{')

		for i, p := range s.Properties {
			if i > 0 {
				e.buf.WriteByte(',')
			}

			k, _ := json.Marshal(p.Name)
			e.buf.Write(k)
			e.buf.WriteByte(':')

			if err := e.schema(p.Schema); err != nil {
				return err
			}
		}

		e.buf.WriteByte('}')
	}

	if len(s.Required) > 0 {
		key("required")
		if err := value(s.Required); err != nil {
			return err
		}
	}

	if s.AdditionalProperties != nil {
		key("additionalProperties")
		if err := value(*s.AdditionalProperties); err != nil {
			return err
		}
	}

	if s.Items != nil {
		key("items")
		if err := e.schema(s.Items); err != nil {
			return err
		}
	}

	e.buf.WriteByte('}')

	return nil
}
