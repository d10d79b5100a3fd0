package schema

import (
	"reflect"
	"slices"
)

// Compose merges schema fragments left to right into a new schema.
//
// Keywords of later fragments override earlier ones; properties merge by
// name keeping first-seen order; required and enum lists are unioned;
// additionalProperties false wins over true. The inputs are not modified.
func Compose(fragments ...*Schema) *Schema {
	c := &composer{memo: map[[2]*Schema]*Schema{}}

	out := &Schema{}
	for _, f := range fragments {
		if f == nil {
			continue
		}

		out = c.merge(out, f)
	}

	return out
}

type composer struct {
	memo map[[2]*Schema]*Schema
}

func (c *composer) merge(a, b *Schema) *Schema {
	key := [2]*Schema{a, b}
	if m, ok := c.memo[key]; ok {
		return m
	}

	out := &Schema{}
	c.memo[key] = out

	out.Types = slices.Clone(a.Types)
	if len(b.Types) > 0 {
		out.Types = slices.Clone(b.Types)
	}

	out.Enum = unionValues(a.Enum, b.Enum)
	out.CaseInsensitive = a.CaseInsensitive || b.CaseInsensitive
	out.Required = unionStrings(a.Required, b.Required)

	switch {
	case a.Closed() || b.Closed():
		closed := false
		out.AdditionalProperties = &closed
	case b.AdditionalProperties != nil:
		out.AdditionalProperties = b.AdditionalProperties
	default:
		out.AdditionalProperties = a.AdditionalProperties
	}

	switch {
	case a.Items != nil && b.Items != nil:
		out.Items = c.merge(a.Items, b.Items)
	case b.Items != nil:
		out.Items = b.Items
	default:
		out.Items = a.Items
	}

	for _, p := range a.Properties {
		out.Properties = append(out.Properties, &Property{Name: p.Name, Schema: p.Schema})
	}

	for _, p := range b.Properties {
		idx := slices.IndexFunc(out.Properties, func(q *Property) bool { return q.Name == p.Name })
		if idx < 0 {
			out.Properties = append(out.Properties, &Property{Name: p.Name, Schema: p.Schema})
			continue
		}

		out.Properties[idx].Schema = c.merge(out.Properties[idx].Schema, p.Schema)
	}

	return out
}

func unionStrings(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}

	out := slices.Clone(a)
	for _, s := range b {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}

	return out
}

func unionValues(a, b []any) []any {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}

	out := slices.Clone(a)
	for _, v := range b {
		if !slices.ContainsFunc(out, func(e any) bool { return reflect.DeepEqual(e, v) }) {
			out = append(out, v)
		}
	}

	return out
}
