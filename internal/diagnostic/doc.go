// Package diagnostic provides the structured findings produced while loading
// mappings and validating mapped records.
//
// Two shapes live here:
//   - Diagnostics: severity-graded messages about a mapping definition
//     (duplicate targets, unknown transforms, malformed paths)
//   - Result: the ordered list of Violations one candidate record produced
//     against a target schema
//
// A Violation names a JSON pointer into the record, the rule that failed and
// a human-readable detail. Violations are plain data; they never abort a run.
package diagnostic
