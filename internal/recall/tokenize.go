package recall

import "strings"

// Tokenize lowercases the query and splits it on everything except
// ASCII alphanumerics and CJK ideographs. Tokens shorter than two
// runes are dropped, duplicates removed, order preserved.
func Tokenize(query string) []string {
	lower := strings.ToLower(query)

	var tokens []string
	var current []rune
	flush := func() {
		if len(current) >= 2 {
			tokens = append(tokens, string(current))
		}
		current = current[:0]
	}

	for _, r := range lower {
		if isTokenRune(r) {
			current = append(current, r)
		} else {
			flush()
		}
	}
	flush()

	seen := make(map[string]bool, len(tokens))
	deduped := tokens[:0]
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			deduped = append(deduped, t)
		}
	}
	return deduped
}

func isTokenRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r >= 0x4E00 && r <= 0x9FFF: // CJK Unified Ideographs
		return true
	case r >= 0x3400 && r <= 0x4DBF: // CJK Extension A
		return true
	case r >= 0xF900 && r <= 0xFAFF: // CJK Compatibility Ideographs
		return true
	}
	return false
}
