package schema

import (
	"errors"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"als-transform/internal/diagnostic"
)

// subsetKeywords are already reported by the ordered validator.
var subsetKeywords = map[string]bool{
	"required":             true,
	"type":                 true,
	"enum":                 true,
	"const":                true,
	"additionalProperties": true,
	"false":                true,
}

// fullViolations runs the compiled schema and keeps leaf errors for
// keywords outside the subset, sorted by instance path.
func fullViolations(compiled *jsonschema.Schema, record any) []diagnostic.Violation {
	err := compiled.Validate(record)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []diagnostic.Violation{{Rule: diagnostic.RuleSchema, Detail: err.Error()}}
	}

	var out []diagnostic.Violation

	walkLeaves(ve, func(leaf *jsonschema.ValidationError) {
		kw := keyword(leaf.KeywordLocation)
		if subsetKeywords[kw] {
			return
		}

		out = append(out, diagnostic.Violation{
			Path:   leaf.InstanceLocation,
			Rule:   diagnostic.RuleSchema,
			Detail: kw + ": " + leaf.Message,
		})
	})

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}

		return out[i].Detail < out[j].Detail
	})

	return out
}

func walkLeaves(e *jsonschema.ValidationError, fn func(*jsonschema.ValidationError)) {
	if len(e.Causes) == 0 {
		fn(e)
		return
	}

	for _, c := range e.Causes {
		walkLeaves(c, fn)
	}
}

func keyword(location string) string {
	if i := strings.LastIndex(location, "/"); i >= 0 {
		return location[i+1:]
	}

	return location
}
