package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// resourceURL is the name the raw document is registered under with the
// full JSON Schema compiler.
const resourceURL = "schema.json"

// Document is a loaded target schema.
type Document struct {
	// Path is the file the schema was read from ("" for in-memory input).
	Path string
	// Class is the $defs entry the root was selected from, if any.
	Class string
	// Root is the resolved subset schema.
	Root *Schema

	compiled *jsonschema.Schema
}

// LoadOptions control how a schema document is resolved.
type LoadOptions struct {
	// Class selects $defs/<Class> as the validation root.
	Class string
}

// LoadFile reads and resolves a schema document from disk.
func LoadFile(path string, opts LoadOptions) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	doc, err := parse(data, opts)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	doc.Path = path

	return doc, nil
}

// Parse resolves a schema document held in memory.
func Parse(data []byte, opts LoadOptions) (*Document, error) {
	doc, err := parse(data, opts)
	if err != nil {
		return nil, &LoadError{Err: err}
	}

	return doc, nil
}

func parse(data []byte, opts LoadOptions) (*Document, error) {
	tree, err := decodeOrdered(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	root, ok := tree.(*object)
	if !ok {
		return nil, errors.New("schema document must be a JSON object")
	}

	r := &resolver{root: root, refs: map[string]*Schema{}, pending: map[*Schema]*deferred{}}

	at := "#"
	if opts.Class != "" {
		at, err = r.class(opts.Class)
		if err != nil {
			return nil, err
		}
	}

	s, err := r.ref(at)
	if err != nil {
		return nil, err
	}

	for _, p := range r.order {
		r.finalize(p)
	}

	compiled, err := compile(data, at)
	if err != nil {
		return nil, err
	}

	return &Document{Class: opts.Class, Root: s, compiled: compiled}, nil
}

// compile runs the document through a full JSON Schema compiler, which
// also checks it against its meta-schema.
func compile(data []byte, at string) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(resourceURL, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	url := resourceURL
	if at != "#" {
		url += at
	}

	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	return s, nil
}

type resolver struct {
	root *object
	refs map[string]*Schema

	// pending holds the schemas whose content depends on references that
	// may still be under construction. They are filled in by finalize
	// once the whole graph is built.
	pending map[*Schema]*deferred
	order   []*Schema
}

// deferred is the recipe for a pending schema: its parts composed left to
// right, then "null" added to the types when nullable is set.
type deferred struct {
	parts    []*Schema
	nullable bool
	state    int
}

const (
	unresolved = iota
	resolving
	resolved
)

func (r *resolver) later(s *Schema, d *deferred) *Schema {
	r.pending[s] = d
	r.order = append(r.order, s)

	return s
}

// finalize fills s from its recipe, parts first. A part already being
// resolved is part of a cycle and is used as it stands.
func (r *resolver) finalize(s *Schema) {
	d, ok := r.pending[s]
	if !ok || d.state != unresolved {
		return
	}

	d.state = resolving

	for _, p := range d.parts {
		r.finalize(p)
	}

	merged := d.parts[0]
	if len(d.parts) > 1 {
		merged = Compose(d.parts...)
	}

	out := *merged
	if d.nullable && len(out.Types) > 0 {
		out.Types = append(slices.Clone(out.Types), "null")
	}

	*s = out
	d.state = resolved
}

// class locates a class definition the way LinkML lays out its output.
func (r *resolver) class(name string) (string, error) {
	for _, defs := range []string{"$defs", "definitions"} {
		ptr := "#/" + defs + "/" + escapePointer(name)
		if _, err := r.lookup(ptr); err == nil {
			return ptr, nil
		}
	}

	return "", fmt.Errorf("class %q not found in $defs", name)
}

func (r *resolver) build(node any, at string) (*Schema, error) {
	switch n := node.(type) {
	case bool:
		// "true" accepts anything; "false" is left to the full pass.
		return &Schema{}, nil
	case *object:
		return r.buildObject(n, at)
	default:
		return nil, fmt.Errorf("%s: schema must be an object or boolean", at)
	}
}

func (r *resolver) buildObject(n *object, at string) (*Schema, error) {
	own, err := r.keywords(n, at)
	if err != nil {
		return nil, err
	}

	var parts []*Schema

	if v, ok := n.get("$ref"); ok {
		ref, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%s/$ref: must be a string", at)
		}

		target, err := r.ref(ref)
		if err != nil {
			return nil, fmt.Errorf("%s/$ref: %w", at, err)
		}

		parts = append(parts, target)
	}

	if v, ok := n.get("allOf"); ok {
		branches, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%s/allOf: must be an array", at)
		}

		for i, b := range branches {
			s, err := r.build(b, at+"/allOf/"+strconv.Itoa(i))
			if err != nil {
				return nil, err
			}

			parts = append(parts, s)
		}
	}

	for _, kw := range []string{"anyOf", "oneOf"} {
		v, ok := n.get(kw)
		if !ok {
			continue
		}

		s, err := r.nullable(v, at+"/"+kw)
		if err != nil {
			return nil, err
		}

		if s != nil {
			parts = append(parts, s)
		}
	}

	if len(parts) == 0 {
		return own, nil
	}

	if len(parts) == 1 && isEmpty(own) {
		return parts[0], nil
	}

	return r.later(&Schema{}, &deferred{parts: append(parts, own)}), nil
}

// nullable recognizes [{...}, {"type": "null"}]; other unions are left
// unconstrained here and only checked by the full pass.
func (r *resolver) nullable(v any, at string) (*Schema, error) {
	branches, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: must be an array", at)
	}

	var (
		other   any
		otherAt string
		nulls   int
	)

	for i, b := range branches {
		if isNullSchema(b) {
			nulls++
			continue
		}

		other, otherAt = b, at+"/"+strconv.Itoa(i)
	}

	if nulls == 0 || nulls+1 != len(branches) {
		return nil, nil
	}

	s, err := r.build(other, otherAt)
	if err != nil {
		return nil, err
	}

	return r.later(&Schema{}, &deferred{parts: []*Schema{s}, nullable: true}), nil
}

func isNullSchema(node any) bool {
	obj, ok := node.(*object)
	if !ok || len(obj.keys) != 1 {
		return false
	}

	t, _ := obj.get("type")

	return t == "null"
}

func isEmpty(s *Schema) bool {
	return len(s.Types) == 0 && len(s.Enum) == 0 && !s.CaseInsensitive &&
		len(s.Properties) == 0 && len(s.Required) == 0 &&
		s.AdditionalProperties == nil && s.Items == nil
}

func (r *resolver) keywords(n *object, at string) (*Schema, error) {
	s := &Schema{}

	if v, ok := n.get("type"); ok {
		types, err := stringList(v)
		if err != nil {
			return nil, fmt.Errorf("%s/type: %w", at, err)
		}

		s.Types = types
	}

	if v, ok := n.get("enum"); ok {
		values, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%s/enum: must be an array", at)
		}

		for _, e := range values {
			s.Enum = append(s.Enum, plain(e))
		}
	}

	if v, ok := n.get("const"); ok {
		s.Enum = append(s.Enum, plain(v))
	}

	if v, ok := n.get("x-case-insensitive"); ok {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%s/x-case-insensitive: must be a boolean", at)
		}

		s.CaseInsensitive = b
	}

	if v, ok := n.get("properties"); ok {
		props, ok := v.(*object)
		if !ok {
			return nil, fmt.Errorf("%s/properties: must be an object", at)
		}

		for _, name := range props.keys {
			ps, err := r.build(props.vals[name], at+"/properties/"+escapePointer(name))
			if err != nil {
				return nil, err
			}

			s.Properties = append(s.Properties, &Property{Name: name, Schema: ps})
		}
	}

	if v, ok := n.get("required"); ok {
		arr, isArr := v.([]any)
		if !isArr {
			return nil, fmt.Errorf("%s/required: must be an array of strings", at)
		}

		names, err := stringList(arr)
		if err != nil {
			return nil, fmt.Errorf("%s/required: %w", at, err)
		}

		s.Required = names
	}

	if v, ok := n.get("additionalProperties"); ok {
		if b, isBool := v.(bool); isBool {
			s.AdditionalProperties = &b
		}
	}

	if v, ok := n.get("items"); ok {
		if _, tuple := v.([]any); !tuple {
			items, err := r.build(v, at+"/items")
			if err != nil {
				return nil, err
			}

			if _, ok := r.pending[items]; ok || !isEmpty(items) {
				s.Items = items
			}
		}
	}

	return s, nil
}

// ref resolves a local JSON pointer. Recursive definitions share one
// *Schema, so the graph may contain cycles. The returned schema stays
// empty until finalize runs.
func (r *resolver) ref(ref string) (*Schema, error) {
	if !strings.HasPrefix(ref, "#") {
		return nil, fmt.Errorf("only local references are supported: %q", ref)
	}

	if s, ok := r.refs[ref]; ok {
		return s, nil
	}

	node, err := r.lookup(ref)
	if err != nil {
		return nil, err
	}

	d := &deferred{}
	placeholder := r.later(&Schema{}, d)
	r.refs[ref] = placeholder

	s, err := r.build(node, ref)
	if err != nil {
		return nil, err
	}

	d.parts = []*Schema{s}

	return placeholder, nil
}

func (r *resolver) lookup(ptr string) (any, error) {
	var node any = r.root

	rest := strings.TrimPrefix(ptr, "#")
	if rest == "" {
		return node, nil
	}

	if !strings.HasPrefix(rest, "/") {
		return nil, fmt.Errorf("unsupported reference %q", ptr)
	}

	for _, seg := range strings.Split(rest[1:], "/") {
		seg = unescapePointer(seg)

		switch n := node.(type) {
		case *object:
			v, ok := n.get(seg)
			if !ok {
				return nil, fmt.Errorf("unresolved reference %q", ptr)
			}

			node = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(n) {
				return nil, fmt.Errorf("unresolved reference %q", ptr)
			}

			node = n[i]
		default:
			return nil, fmt.Errorf("unresolved reference %q", ptr)
		}
	}

	return node, nil
}

func stringList(v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("expected string, got %v", e)
			}

			out = append(out, s)
		}

		return out, nil
	default:
		return nil, fmt.Errorf("expected string or array of strings, got %v", v)
	}
}

// plain converts decoded schema values to what encoding/json produces for
// record data, so enum members compare directly against record values.
func plain(v any) any {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}

		return f
	case *object:
		m := make(map[string]any, len(t.keys))
		for _, k := range t.keys {
			m[k] = plain(t.vals[k])
		}

		return m
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}

		return out
	default:
		return v
	}
}

func escapePointer(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1")
}

func unescapePointer(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~1", "/"), "~0", "~")
}
