// Package schema loads target JSON Schema documents and validates candidate
// records against them.
//
// Only a subset of JSON Schema drives the structural checks:
//
//   - required
//   - properties.<name>.type (string or array of type names)
//   - properties.<name>.enum / const
//   - additionalProperties (boolean)
//   - items for array-valued properties
//
// Property declaration order is preserved from the source document so that
// violations come out in a stable, reviewable order. Local "$ref" pointers,
// "allOf" branches and the nullable "anyOf" pattern emitted by LinkML are
// resolved at load time; a class can be picked out of "$defs" the way
// gen-json-schema lays out its output.
//
// Every document is also compiled with a full JSON Schema implementation so
// that malformed schemas fail before any record is processed. That compiled
// form can optionally contribute "schema" violations for keywords outside
// the subset (pattern, format, bounds).
package schema
