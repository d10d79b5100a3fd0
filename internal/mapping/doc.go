// Package mapping implements the field-map engine: declarative YAML files
// that say which source fields populate which target fields.
//
// The field-map engine is an alternative to JSONata for sources whose
// mapping is mostly renames, defaults and a handful of value transforms.
// A compiled field map implements expr.Evaluator.
//
// # Key capabilities
//
//   - "121" shorthand for straight copies (target: source)
//   - 1:1 and many:1 field mappings (many:1 requires a transform)
//   - literal defaults, used when the source is absent
//   - optional fields that are skipped when the source is absent
//   - named transforms with parameters, built on a registry of built-ins
//   - path expressions for nested shapes ("links.homepage", "tags[]",
//     "contacts[].name", "files[0]")
//
// # File format
//
//	version: "1"
//	source: cpath
//	target: Dataset
//	121:
//	  title: study_title
//	fields:
//	  - target: creator
//	    source: [pi_first_name, pi_last_name]
//	    transform: join
//	    params: {sep: " "}
//	  - target: source
//	    default: CPATH
//	  - target: url
//	    source: links.homepage
//	    optional: true
//	transforms:
//	  - name: speciesLookup
//	    func: lookup
//	    params:
//	      table: {human: Homo sapiens}
//
// "121" entries are expanded ahead of "fields" in file order, so evaluation
// and the first reported failure are deterministic.
//
// Static validation (Validate) runs when the file is compiled; any error
// diagnostic fails the load before a record is processed.
package mapping
