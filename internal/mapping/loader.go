package mapping

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Parse parses YAML data into a MappingFile.
func Parse(data []byte) (*MappingFile, error) {
	var mf MappingFile

	err := yaml.Unmarshal(data, &mf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mapping YAML: %w", err)
	}

	applyDefaults(&mf)

	return &mf, nil
}

// applyDefaults fills in default values for optional fields.
func applyDefaults(mf *MappingFile) {
	if mf.Version == "" {
		mf.Version = "1"
	}

	for i := range mf.Transforms {
		t := &mf.Transforms[i]
		if t.Func == "" {
			t.Func = t.Name
		}

		t.Params = normalizeParams(t.Params)
	}

	for i := range mf.Fields {
		f := &mf.Fields[i]
		f.Default = normalizeYAML(f.Default)
		f.Params = normalizeParams(f.Params)
	}
}

func normalizeParams(p map[string]any) map[string]any {
	if p == nil {
		return nil
	}

	return normalizeYAML(p).(map[string]any)
}

// NormalizeMappingFile expands the 121 shorthand into Fields entries. They
// are prepended in file order so they are evaluated first.
func NormalizeMappingFile(mf *MappingFile) {
	if len(mf.OneToOne) == 0 {
		return
	}

	expanded := make([]FieldMapping, 0, len(mf.OneToOne)+len(mf.Fields))
	for _, p := range mf.OneToOne {
		expanded = append(expanded, FieldMapping{
			Target: p.Key,
			Source: StringOrArray{p.Value},
		})
	}

	mf.Fields = append(expanded, mf.Fields...)
	mf.OneToOne = nil
}
