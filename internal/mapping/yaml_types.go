package mapping

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"als-transform/internal/common"
)

// StringOrArray is a type that can be unmarshaled from either a string or an array of strings.
// This allows YAML fields to accept both "field" and ["field1", "field2"].
type StringOrArray []string

// UnmarshalYAML implements custom YAML unmarshaling for StringOrArray.
// Accepts either a single string or an array of strings.
func (s *StringOrArray) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var str string

		err := node.Decode(&str)
		if err != nil {
			return err
		}

		if str != "" {
			*s = StringOrArray{str}
		} else {
			*s = StringOrArray{}
		}

		return nil

	case yaml.SequenceNode:
		var arr []string

		err := node.Decode(&arr)
		if err != nil {
			return err
		}

		*s = arr

		return nil

	default:
		return fmt.Errorf("line %d: expected string or array, got %v", node.Line, node.Kind)
	}
}

// IsEmpty returns true if the array is empty.
func (s StringOrArray) IsEmpty() bool {
	return common.IsEmpty(s)
}

// IsSingle returns true if the array has exactly one element.
func (s StringOrArray) IsSingle() bool {
	return common.IsSingle(s)
}

// IsMultiple returns true if the array has more than one element.
func (s StringOrArray) IsMultiple() bool {
	return common.IsMultiple(s)
}

// Pair is one key/value entry of an ordered YAML mapping.
type Pair struct {
	Key   string
	Value string
}

// OrderedPairs is a string-to-string YAML mapping that keeps file order.
type OrderedPairs []Pair

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *OrderedPairs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of target: source", node.Line)
	}

	pairs := make(OrderedPairs, 0, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		var k, v string

		if err := node.Content[i].Decode(&k); err != nil {
			return err
		}

		if err := node.Content[i+1].Decode(&v); err != nil {
			return fmt.Errorf("line %d: value of %q must be a string path", node.Content[i+1].Line, k)
		}

		pairs = append(pairs, Pair{Key: k, Value: v})
	}

	*o = pairs

	return nil
}

// Get returns the value for key.
func (o OrderedPairs) Get(key string) (string, bool) {
	for _, p := range o {
		if p.Key == key {
			return p.Value, true
		}
	}

	return "", false
}

// normalizeYAML turns values decoded by yaml.v3 into the shapes
// encoding/json produces, so defaults and params compare and marshal like
// record data.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeYAML(e)
		}

		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = normalizeYAML(e)
		}

		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeYAML(e)
		}

		return out
	default:
		return v
	}
}
