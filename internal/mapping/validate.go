package mapping

import (
	"fmt"

	"als-transform/internal/diagnostic"
	"als-transform/internal/match"
)

// Validate checks a normalized mapping file against the transform registry.
// It is a structural check only; source paths are not checked against any
// data.
func Validate(mf *MappingFile, reg *TransformRegistry) *diagnostic.Diagnostics {
	res := &diagnostic.Diagnostics{}
	if mf == nil {
		res.AddError("mapping_is_nil", "mapping file is nil", "", "")
		return res
	}

	var scope string
	if mf.Source != "" || mf.Target != "" {
		scope = mf.Source + "->" + mf.Target
	}

	seenTransforms := map[string]struct{}{}

	for i := range mf.Transforms {
		def := &mf.Transforms[i]
		if def.Name == "" {
			res.AddError("missing_transform_name", "transform without a name", scope, "")
			continue
		}

		if _, ok := seenTransforms[def.Name]; ok {
			res.AddError("duplicate_transform", fmt.Sprintf("duplicate transform %q", def.Name), scope, def.Name)
			continue
		}

		seenTransforms[def.Name] = struct{}{}

		if reg == nil || !reg.Has(def.Func) || reg.Get(def.Func).Builtin == nil {
			msg := fmt.Sprintf("transform %q uses unknown func %q", def.Name, def.Func)
			res.AddError("unknown_func", msg+didYouMean(def.Func, reg), scope, def.Name)
		}
	}

	used := map[string]bool{}
	targets := map[string]struct{}{}

	for i := range mf.Fields {
		fm := &mf.Fields[i]
		validateFieldMapping(res, scope, fm, reg, targets)

		if fm.Transform != "" {
			used[fm.Transform] = true
		}
	}

	for i := range mf.Transforms {
		if name := mf.Transforms[i].Name; name != "" && !used[name] {
			res.AddWarning("unused_transform", fmt.Sprintf("transform %q is never used", name), scope, name)
		}
	}

	return res
}

func validateFieldMapping(
	res *diagnostic.Diagnostics,
	scope string,
	fm *FieldMapping,
	reg *TransformRegistry,
	targets map[string]struct{},
) {
	if fm.Target == "" {
		res.AddError("missing_target", "field mapping without a target", scope, "")
		return
	}

	validateTarget(res, scope, fm, targets)
	validateSources(res, scope, fm)
	validateTransform(res, scope, fm, reg)

	if fm.Source.IsEmpty() && fm.Transform == "" && !fm.HasDefault() {
		res.AddError("missing_value", "field has no source, default or transform", scope, fm.Target)
	}

	if fm.Optional && fm.HasDefault() {
		res.AddWarning("optional_with_default", "optional is ignored when a default is set", scope, fm.Target)
	}
}

func validateTarget(res *diagnostic.Diagnostics, scope string, fm *FieldMapping, targets map[string]struct{}) {
	fp, err := ParsePath(fm.Target)
	if err != nil {
		res.AddError("invalid_target_path", err.Error(), scope, fm.Target)
		return
	}

	if !fp.IsPlain() {
		res.AddError("invalid_target_path", "target paths cannot index arrays", scope, fm.Target)
		return
	}

	key := fp.String()
	if _, dup := targets[key]; dup {
		res.AddError("duplicate_target", "target mapped twice", scope, fm.Target)
		return
	}

	targets[key] = struct{}{}
}

func validateSources(res *diagnostic.Diagnostics, scope string, fm *FieldMapping) {
	for _, src := range fm.Source {
		if _, err := ParsePath(src); err != nil {
			res.AddError("invalid_source_path", err.Error(), scope, fm.Target)
		}
	}
}

func validateTransform(res *diagnostic.Diagnostics, scope string, fm *FieldMapping, reg *TransformRegistry) {
	if fm.Transform == "" {
		if fm.NeedsTransform() {
			res.AddError("missing_transform",
				fmt.Sprintf("%s mapping from %d sources requires a transform", fm.GetCardinality(), len(fm.Source)),
				scope, fm.Target)
		}

		return
	}

	if reg == nil || !reg.Has(fm.Transform) {
		msg := fmt.Sprintf("unknown transform %q", fm.Transform)
		res.AddError("unknown_transform", msg+didYouMean(fm.Transform, reg), scope, fm.Target)
		return
	}

	if t := reg.Get(fm.Transform); t.Builtin != nil && t.Builtin.Unary && !fm.Source.IsSingle() {
		res.AddError("transform_arity",
			fmt.Sprintf("transform %q takes exactly one source, got %d", fm.Transform, len(fm.Source)),
			scope, fm.Target)
	}
}

// didYouMean names the closest registered transform, if any.
func didYouMean(name string, reg *TransformRegistry) string {
	if reg == nil {
		return ""
	}

	if s := match.Suggest(name, reg.Names(), 1); len(s) > 0 {
		return fmt.Sprintf(" (did you mean %q?)", s[0])
	}

	return ""
}
