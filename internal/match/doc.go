// Package match ranks near-miss names so violations can carry a
// "did you mean" hint.
//
// Key functions:
//   - NormalizeIdent: folds case and separators so "subjectId",
//     "subject_id" and "Subject-ID" compare equal
//   - Levenshtein: edit distance over runes
//   - Suggest: ranks candidate names against an unknown one
package match
