package mapping

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"als-transform/internal/subjectid"
)

func builtins(style subjectid.Style) []*Builtin {
	return []*Builtin{
		{Name: "join", Description: "join values with params.sep (default space)", Fn: joinFn(" ")},
		{Name: "concat", Description: "join values without a separator", Fn: joinFn("")},
		{Name: "list", Description: "collect values into an array", Fn: listFn},
		{Name: "first", Description: "first non-null value", Fn: firstFn},
		{Name: "lower", Unary: true, Fn: eachString(strings.ToLower)},
		{Name: "upper", Unary: true, Fn: eachString(strings.ToUpper)},
		{Name: "trim", Unary: true, Fn: eachString(strings.TrimSpace)},
		{Name: "split", Unary: true, Description: "split a string on params.sep (default comma)", Fn: splitFn},
		{Name: "toString", Unary: true, Fn: each(toString)},
		{Name: "toInteger", Unary: true, Fn: each(toInteger)},
		{Name: "toNumber", Unary: true, Fn: each(toNumber)},
		{Name: "toBool", Unary: true, Fn: each(toBool)},
		{Name: "lookup", Unary: true, Description: "map values through params.table", Fn: lookupFn},
		{Name: "globalSubjectId", Description: "format {source}{sep}{dataset}{sep}{subject}", Fn: globalSubjectIDFn(style)},
	}
}

// flatten expands array arguments and drops nulls.
func flatten(args []any) []any {
	out := make([]any, 0, len(args))

	for _, a := range args {
		switch t := a.(type) {
		case nil:
		case []any:
			out = append(out, flatten(t)...)
		default:
			out = append(out, t)
		}
	}

	return out
}

func joinFn(defaultSep string) TransformFunc {
	return func(args []any, params map[string]any) (any, error) {
		sep := defaultSep
		if s, ok := params["sep"].(string); ok {
			sep = s
		}

		var parts []string

		for _, v := range flatten(args) {
			s, ok := subjectid.Scalar(v)
			if !ok {
				return nil, fmt.Errorf("cannot join %T", v)
			}

			if s != "" {
				parts = append(parts, s)
			}
		}

		return strings.Join(parts, sep), nil
	}
}

func listFn(args []any, _ map[string]any) (any, error) {
	return flatten(args), nil
}

func firstFn(args []any, _ map[string]any) (any, error) {
	for _, v := range flatten(args) {
		if s, ok := v.(string); ok && s == "" {
			continue
		}

		return v, nil
	}

	return nil, nil
}

// each applies fn to a scalar or to every element of an array.
func each(fn func(any) (any, error)) TransformFunc {
	return func(args []any, _ map[string]any) (any, error) {
		return mapValue(args[0], fn)
	}
}

func mapValue(v any, fn func(any) (any, error)) (any, error) {
	arr, ok := v.([]any)
	if !ok {
		return fn(v)
	}

	out := make([]any, len(arr))

	for i, el := range arr {
		r, err := fn(el)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}

		out[i] = r
	}

	return out, nil
}

func eachString(fn func(string) string) TransformFunc {
	return each(func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}

		return fn(s), nil
	})
}

func splitFn(args []any, params map[string]any) (any, error) {
	sep := ","
	if s, ok := params["sep"].(string); ok && s != "" {
		sep = s
	}

	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", args[0])
	}

	out := []any{}

	for part := range strings.SplitSeq(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out, nil
}

func toString(v any) (any, error) {
	s, ok := subjectid.Scalar(v)
	if !ok {
		return nil, fmt.Errorf("cannot convert %T to string", v)
	}

	return s, nil
}

func toNumber(v any) (any, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", t)
		}

		return f, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to number", v)
	}
}

// toInteger yields an integral float64, the shape encoding/json decodes
// whole numbers into.
func toInteger(v any) (any, error) {
	n, err := toNumber(v)
	if err != nil {
		return nil, err
	}

	f := n.(float64)
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("not an integer: %v", v)
	}

	return f, nil
}

func toBool(v any) (any, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case float64:
		return t != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1":
			return true, nil
		case "false", "no", "n", "0", "":
			return false, nil
		}

		return nil, fmt.Errorf("not a boolean: %q", t)
	default:
		return nil, fmt.Errorf("cannot convert %T to boolean", v)
	}
}

func lookupFn(args []any, params map[string]any) (any, error) {
	table, ok := params["table"].(map[string]any)
	if !ok {
		return nil, errors.New("params.table must be a mapping")
	}

	ignoreCase, _ := params["ignoreCase"].(bool)
	fallback, hasFallback := params["default"]
	passthrough, _ := params["passthrough"].(bool)

	return mapValue(args[0], func(v any) (any, error) {
		key, ok := subjectid.Scalar(v)
		if !ok {
			return nil, fmt.Errorf("cannot look up %T", v)
		}

		if out, found := table[key]; found {
			return out, nil
		}

		if ignoreCase {
			for k, out := range table {
				if strings.EqualFold(k, key) {
					return out, nil
				}
			}
		}

		switch {
		case hasFallback:
			return fallback, nil
		case passthrough:
			return v, nil
		default:
			return nil, fmt.Errorf("no table entry for %q", key)
		}
	})
}

// globalSubjectIDFn takes source and dataset from params when given and the
// remaining parts from the source values.
func globalSubjectIDFn(style subjectid.Style) TransformFunc {
	return func(args []any, params map[string]any) (any, error) {
		st := style
		if s, ok := params["style"].(string); ok {
			parsed, err := subjectid.ParseStyle(s)
			if err != nil {
				return nil, err
			}

			st = parsed
		}

		var parts []any

		for _, key := range []string{"source", "dataset"} {
			if v, ok := params[key]; ok {
				parts = append(parts, v)
			}
		}

		parts = append(parts, args...)
		if len(parts) != 3 {
			return nil, fmt.Errorf("needs source, dataset and subject, got %d value(s)", len(parts))
		}

		return subjectid.FormatValues(st, parts[0], parts[1], parts[2])
	}
}
