package diagnostic

import (
	"fmt"
	"strings"
)

// Rule names the constraint a Violation broke.
type Rule string

const (
	RuleRequired           Rule = "required"
	RuleEnum               Rule = "enum"
	RuleType               Rule = "type"
	RuleAdditionalProperty Rule = "additionalProperty"
	// RuleSchema covers keywords outside the core subset, reported by the
	// full JSON Schema pass.
	RuleSchema Rule = "schema"
	// RuleTransform marks a record whose mapping expression failed. It only
	// appears in error logs, never in a validator Result.
	RuleTransform Rule = "transform"
)

// Rules lists every rule in reporting order.
var Rules = []Rule{
	RuleRequired,
	RuleEnum,
	RuleType,
	RuleAdditionalProperty,
	RuleSchema,
	RuleTransform,
}

// Violation is a single constraint failure inside a candidate record.
type Violation struct {
	// Path is a JSON pointer into the candidate record ("" is the root).
	Path string `json:"path"`
	// Rule is the violated constraint.
	Rule Rule `json:"rule"`
	// Detail is the human-readable description.
	Detail string `json:"detail"`

	Value       any      `json:"-"`
	Expected    string   `json:"-"`
	Actual      string   `json:"-"`
	Suggestions []string `json:"-"`
}

// String returns "path: [rule] detail".
func (v Violation) String() string {
	p := v.Path
	if p == "" {
		p = "<root>"
	}

	return fmt.Sprintf("%s: [%s] %s", p, v.Rule, v.Detail)
}

// Required builds a missing-field violation.
func Required(path, field string) Violation {
	return Violation{
		Path:   path,
		Rule:   RuleRequired,
		Detail: "missing required field: " + field,
	}
}

// Enum builds a permissible-value violation.
func Enum(path, field string, value any, suggestions []string) Violation {
	detail := fmt.Sprintf("value %s not in permissible set: %s", quote(value), field)
	if len(suggestions) > 0 {
		detail += fmt.Sprintf(" (did you mean %q?)", suggestions[0])
	}

	return Violation{
		Path:        path,
		Rule:        RuleEnum,
		Detail:      detail,
		Value:       value,
		Suggestions: suggestions,
	}
}

// Type builds a type-mismatch violation.
func Type(path string, expected []string, actual string) Violation {
	exp := strings.Join(expected, "|")

	return Violation{
		Path:     path,
		Rule:     RuleType,
		Detail:   fmt.Sprintf("expected %s, got %s", exp, actual),
		Expected: exp,
		Actual:   actual,
	}
}

// AdditionalProperty builds an undeclared-field violation.
func AdditionalProperty(path, field string, suggestions []string) Violation {
	detail := "field not declared in schema: " + field
	if len(suggestions) > 0 {
		detail += fmt.Sprintf(" (did you mean %q?)", suggestions[0])
	}

	return Violation{
		Path:        path,
		Rule:        RuleAdditionalProperty,
		Detail:      detail,
		Suggestions: suggestions,
	}
}

// Transform wraps an evaluation failure for error logs.
func Transform(err error) Violation {
	return Violation{
		Rule:   RuleTransform,
		Detail: err.Error(),
	}
}

func quote(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}

	return fmt.Sprintf("%v", v)
}

// Result is the outcome of validating one candidate record.
type Result struct {
	Violations []Violation `json:"violations"`
}

// Pass reports whether the record had no violations.
func (r Result) Pass() bool {
	return len(r.Violations) == 0
}

// Add appends violations in order.
func (r *Result) Add(v ...Violation) {
	r.Violations = append(r.Violations, v...)
}

// CountByRule tallies violations per rule.
func (r Result) CountByRule() map[Rule]int {
	out := make(map[Rule]int)
	for _, v := range r.Violations {
		out[v.Rule]++
	}

	return out
}

// Err returns nil for a passing result, otherwise an error listing every
// violation.
func (r Result) Err() error {
	if r.Pass() {
		return nil
	}

	parts := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		parts = append(parts, v.String())
	}

	return fmt.Errorf("%d violation(s): %s", len(r.Violations), strings.Join(parts, "; "))
}
