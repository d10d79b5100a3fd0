package mapping

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ParsePath parses a field path string into a FieldPath.
// Supports: "field", "nested.field", "items[]", "items[].name", "items[2]".
func ParsePath(path string) (FieldPath, error) {
	if path == "" {
		return FieldPath{}, errors.New("empty path")
	}

	var segments []PathSegment

	for part := range strings.SplitSeq(path, ".") {
		if part == "" {
			return FieldPath{}, fmt.Errorf("invalid path %q: empty segment", path)
		}

		seg, err := parseSegment(part)
		if err != nil {
			return FieldPath{}, fmt.Errorf("invalid path %q: %w", path, err)
		}

		segments = append(segments, seg)
	}

	return FieldPath{Segments: segments}, nil
}

func parseSegment(part string) (PathSegment, error) {
	seg := PathSegment{Name: part, Index: -1}

	open := strings.IndexByte(part, '[')
	if open >= 0 {
		if !strings.HasSuffix(part, "]") {
			return PathSegment{}, fmt.Errorf("unterminated index in %q", part)
		}

		seg.Name = part[:open]
		inner := part[open+1 : len(part)-1]

		if inner == "" {
			seg.IsSlice = true
		} else {
			i, err := strconv.Atoi(inner)
			if err != nil || i < 0 {
				return PathSegment{}, fmt.Errorf("invalid index %q", inner)
			}

			seg.Index = i
		}
	}

	if seg.Name == "" {
		return PathSegment{}, errors.New("index without field name")
	}

	if strings.ContainsAny(seg.Name, "[]") {
		return PathSegment{}, fmt.Errorf("invalid field name %q", seg.Name)
	}

	return seg, nil
}

// ParsePaths parses multiple field paths from a StringOrArray.
func ParsePaths(paths StringOrArray) ([]FieldPath, error) {
	result := make([]FieldPath, 0, len(paths))

	for _, p := range paths {
		fp, err := ParsePath(p)
		if err != nil {
			return nil, err
		}

		result = append(result, fp)
	}

	return result, nil
}

// Resolve reads the value at p. A "[]" segment collects over the array,
// flattening nested collections; elements missing the rest of the path are
// skipped. The bool is false when nothing was found or the value is null.
func (p FieldPath) Resolve(v any) (any, bool) {
	out, ok, _ := resolve(v, p.Segments)
	if !ok || out == nil {
		return nil, false
	}

	return out, true
}

func resolve(v any, segs []PathSegment) (any, bool, bool) {
	if len(segs) == 0 {
		return v, true, false
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false, false
	}

	seg := segs[0]

	field, ok := obj[seg.Name]
	if !ok {
		return nil, false, false
	}

	switch {
	case seg.IsSlice:
		arr, ok := field.([]any)
		if !ok {
			return nil, false, false
		}

		collected := make([]any, 0, len(arr))

		for _, el := range arr {
			got, found, many := resolve(el, segs[1:])
			if !found || got == nil {
				continue
			}

			if nested, isArr := got.([]any); isArr && many {
				collected = append(collected, nested...)
			} else {
				collected = append(collected, got)
			}
		}

		return collected, true, true

	case seg.Index >= 0:
		arr, ok := field.([]any)
		if !ok || seg.Index >= len(arr) {
			return nil, false, false
		}

		return resolve(arr[seg.Index], segs[1:])

	default:
		return resolve(field, segs[1:])
	}
}

// Set writes val at p inside obj, creating intermediate objects. Only plain
// dotted paths can be set.
func (p FieldPath) Set(obj map[string]any, val any) error {
	if !p.IsPlain() {
		return fmt.Errorf("cannot assign to %q: target paths cannot index arrays", p)
	}

	cur := obj

	for i, seg := range p.Segments {
		if i == len(p.Segments)-1 {
			cur[seg.Name] = val
			return nil
		}

		next, exists := cur[seg.Name]
		if !exists {
			m := map[string]any{}
			cur[seg.Name] = m
			cur = m

			continue
		}

		m, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("cannot assign to %q: %q is not an object", p, seg.Name)
		}

		cur = m
	}

	return nil
}

// deepCopy clones decoded JSON so candidates never alias input records.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}

		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}

		return out
	default:
		return v
	}
}
