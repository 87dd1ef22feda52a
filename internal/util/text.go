package util

import "strings"

// Prefix returns at most n runes from the start of s.
func Prefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// SplitSentences splits on '.', '!' and '?', dropping the delimiters. Pieces
// are returned untrimmed and may be blank.
func SplitSentences(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
}

// AnswerTerms lowercases s and keeps whitespace-separated words longer than
// three runes. Duplicates are kept.
func AnswerTerms(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) > 3 {
			out = append(out, f)
		}
	}
	return out
}
