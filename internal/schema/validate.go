package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"als-transform/internal/common"
	"als-transform/internal/diagnostic"
	"als-transform/internal/match"
)

// DefaultSuggestionLimit caps did-you-mean suggestions per violation.
const DefaultSuggestionLimit = 3

// Options configure a Validator.
type Options struct {
	// Full appends "schema" violations from the complete JSON Schema pass.
	Full bool
	// CaseInsensitiveEnums relaxes string enum matching everywhere.
	CaseInsensitiveEnums bool
	// SuggestionLimit caps suggestions; zero uses DefaultSuggestionLimit.
	SuggestionLimit int
}

// Validator checks candidate records against one target schema. It is
// stateless after construction and safe for concurrent use.
type Validator struct {
	doc  *Document
	opts Options
}

// NewValidator returns a validator for doc.
func NewValidator(doc *Document, opts Options) *Validator {
	if opts.SuggestionLimit <= 0 {
		opts.SuggestionLimit = DefaultSuggestionLimit
	}

	return &Validator{doc: doc, opts: opts}
}

// Validate checks record and returns every violation found. Violations are
// ordered by schema declaration order, then undeclared required names,
// then undeclared record keys in sorted order.
func (v *Validator) Validate(record any) diagnostic.Result {
	return v.ValidateOrdered(record, nil)
}

// ValidateOrdered is Validate with the top-level key order of record known:
// undeclared top-level keys are reported in keys order, and keys missing
// from it follow in sorted order.
func (v *Validator) ValidateOrdered(record any, keys []string) diagnostic.Result {
	var res diagnostic.Result

	v.value(&res, v.doc.Root, record, "", "", keys, v.opts.CaseInsensitiveEnums)

	if v.opts.Full && v.doc.compiled != nil {
		res.Add(fullViolations(v.doc.compiled, record)...)
	}

	return res
}

func (v *Validator) value(res *diagnostic.Result, s *Schema, val any, path, name string, keys []string, ci bool) {
	ci = ci || s.CaseInsensitive

	actual := TypeOf(val)
	if len(s.Types) > 0 && !typeMatches(s.Types, actual) {
		res.Add(diagnostic.Type(path, s.Types, actual))
		return
	}

	if len(s.Enum) > 0 && !enumContains(s.Enum, val, ci) {
		res.Add(diagnostic.Enum(path, name, val, v.enumSuggestions(s.Enum, val)))
	}

	switch t := val.(type) {
	case []any:
		if s.Items == nil {
			return
		}

		for i, el := range t {
			v.value(res, s.Items, el, path+"/"+strconv.Itoa(i), name, nil, ci)
		}
	case map[string]any:
		if s.IsObject() {
			v.object(res, s, t, path, keys, ci)
		}
	}
}

func (v *Validator) object(res *diagnostic.Result, s *Schema, obj map[string]any, path string, keys []string, ci bool) {
	for _, p := range s.Properties {
		child := path + "/" + escapePointer(p.Name)

		val, ok := obj[p.Name]
		if !ok || val == nil {
			if s.IsRequired(p.Name) {
				res.Add(diagnostic.Required(child, p.Name))
			}

			continue
		}

		v.value(res, p.Schema, val, child, p.Name, nil, ci)
	}

	for _, name := range s.Required {
		if s.Property(name) != nil {
			continue
		}

		if val, ok := obj[name]; !ok || val == nil {
			res.Add(diagnostic.Required(path+"/"+escapePointer(name), name))
		}
	}

	if !s.Closed() {
		return
	}

	declared := s.PropertyNames()
	for _, k := range keyOrder(obj, keys) {
		if s.Property(k) != nil {
			continue
		}

		res.Add(diagnostic.AdditionalProperty(
			path+"/"+escapePointer(k), k,
			match.Suggest(k, declared, v.opts.SuggestionLimit),
		))
	}
}

// keyOrder lists the members of obj in keys order, then the rest sorted.
func keyOrder(obj map[string]any, keys []string) []string {
	if len(keys) == 0 {
		return common.SortedKeys(obj)
	}

	out := make([]string, 0, len(obj))
	seen := make(map[string]bool, len(obj))

	for _, k := range keys {
		if _, ok := obj[k]; ok && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}

	for _, k := range common.SortedKeys(obj) {
		if !seen[k] {
			out = append(out, k)
		}
	}

	return out
}

func (v *Validator) enumSuggestions(enum []any, val any) []string {
	str, ok := val.(string)
	if !ok {
		return nil
	}

	var names []string
	for _, e := range enum {
		if s, ok := e.(string); ok {
			names = append(names, s)
		}
	}

	return match.Suggest(str, names, v.opts.SuggestionLimit)
}

// TypeOf names the JSON type of a decoded value. Integral numbers report
// "integer".
func TypeOf(val any) string {
	switch t := val.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64:
		return numberType(t)
	case float32:
		return numberType(float64(t))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "integer"
	case json.Number:
		if _, err := t.Int64(); err == nil {
			return "integer"
		}

		f, _ := t.Float64()

		return numberType(f)
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", val)
	}
}

func numberType(f float64) string {
	if !math.IsInf(f, 0) && f == math.Trunc(f) {
		return "integer"
	}

	return "number"
}

func typeMatches(types []string, actual string) bool {
	for _, t := range types {
		if t == actual || (t == "number" && actual == "integer") {
			return true
		}
	}

	return false
}

func enumContains(enum []any, val any, ci bool) bool {
	for _, e := range enum {
		if equalValues(e, val) {
			return true
		}

		if ci {
			es, ok1 := e.(string)
			vs, ok2 := val.(string)

			if ok1 && ok2 && strings.EqualFold(es, vs) {
				return true
			}
		}
	}

	return false
}

func equalValues(a, b any) bool {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)

	if okA || okB {
		return okA && okB && fa == fb
	}

	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
