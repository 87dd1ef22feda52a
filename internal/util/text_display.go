package util

import (
	"sort"
	"strings"
	"unicode"
)

// EvidenceSnippet picks the sentence of chunkText that shares the most terms
// with query, appending the runner-up when it also matches.
func EvidenceSnippet(chunkText, query string, maxRunes int) string {
	chunkText = cleanSnippet(chunkText, 4000)
	if chunkText == "" {
		return ""
	}
	terms := queryTerms(query)
	sentences := sentencesWithDelims(chunkText)
	if len(terms) == 0 || len(sentences) == 0 {
		return cleanSnippet(chunkText, maxRunes)
	}

	type scored struct {
		sentence string
		score    int
	}
	list := make([]scored, 0, len(sentences))
	for _, s := range sentences {
		low := strings.ToLower(s)
		score := 0
		for _, term := range terms {
			if strings.Contains(low, term) {
				score++
			}
		}
		list = append(list, scored{sentence: s, score: score})
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].score == list[j].score {
			return len(list[i].sentence) < len(list[j].sentence)
		}
		return list[i].score > list[j].score
	})

	best := list[0].sentence
	if len(list) > 1 && list[1].score > 0 {
		return cleanSnippet(best+" "+list[1].sentence, maxRunes)
	}
	return cleanSnippet(best, maxRunes)
}

func sentencesWithDelims(s string) []string {
	out := make([]string, 0, 8)
	var b strings.Builder
	for _, r := range s {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if x := strings.TrimSpace(b.String()); x != "" {
				out = append(out, x)
			}
			b.Reset()
		}
	}
	if rest := strings.TrimSpace(b.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}

var snippetStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "to": {}, "of": {}, "in": {}, "on": {},
	"for": {}, "is": {}, "are": {}, "was": {}, "were": {}, "what": {}, "how": {}, "why": {},
	"which": {}, "that": {}, "this": {}, "with": {}, "from": {}, "does": {}, "patient": {},
}

func queryTerms(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	seen := map[string]struct{}{}
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ",.;:!?()[]{}\"'`")
		if len(f) < 3 {
			continue
		}
		if _, ok := snippetStopWords[f]; ok {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

func cleanSnippet(s string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = 300
	}
	s = SanitizeText(s)
	s = strings.Map(func(r rune) rune {
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) > maxRunes {
		return strings.TrimSpace(Prefix(s, maxRunes)) + "..."
	}
	return s
}
