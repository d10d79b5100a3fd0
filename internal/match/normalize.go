package match

import (
	"strings"
	"unicode"
)

// NormalizeIdent folds an identifier for fuzzy comparison: camelCase is
// split, everything is lower-cased and separators are dropped.
//
//	"subjectId"   -> "subjectid"
//	"subject_id"  -> "subjectid"
//	"DataUseCode" -> "datausecode"
func NormalizeIdent(s string) string {
	return strings.Join(TokenizeIdent(s), "")
}

// TokenizeIdent splits an identifier into lower-case tokens on separators
// and camelCase boundaries.
//
//	"studyURL"        -> ["study", "url"]
//	"XMLParser"       -> ["xml", "parser"]
//	"data_use-code"   -> ["data", "use", "code"]
func TokenizeIdent(s string) []string {
	if s == "" {
		return nil
	}

	var (
		tokens  []string
		current strings.Builder
	)

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, strings.ToLower(current.String()))
			current.Reset()
		}
	}

	runes := []rune(s)
	for i, r := range runes {
		if isSeparator(r) {
			flush()
			continue
		}

		if i > 0 && startsToken(runes, i) {
			flush()
		}

		current.WriteRune(r)
	}

	flush()

	return tokens
}

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == ' ' || r == '.'
}

// startsToken reports a camelCase boundary at i: lower->upper, or the last
// upper-case rune of an acronym followed by a lower-case rune.
func startsToken(runes []rune, i int) bool {
	r, prev := runes[i], runes[i-1]
	if !unicode.IsUpper(r) || isSeparator(prev) {
		return false
	}

	if !unicode.IsUpper(prev) {
		return true
	}

	return i+1 < len(runes) && unicode.IsLower(runes[i+1])
}
