package brain

import "strings"

// rawTokens splits text on whitespace, trims non-alphanumeric runes from
// both ends of each word, lowercases, and keeps words of length >= 2 — the
// exact tokenisation the bloom filter is populated with, grounded on
// original_source/src/lib.rs's process() step 6. Lowercasing here matters:
// recall's bloom pre-filter queries with invindex.Tokenize's lowercased
// tokens, so the add and query sides must fold case the same way or a
// capitalized word (sentence-initial, proper nouns) never hits.
func rawTokens(text string) []string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, w := range fields {
		trimmed := strings.TrimFunc(w, func(r rune) bool { return !isAlnum(r) })
		if len(trimmed) >= 2 {
			out = append(out, strings.ToLower(trimmed))
		}
	}
	return out
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r > 127
}

// stopWords are skipped when falling back to per-token substring search.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "being": {}, "have": {}, "has": {}, "had": {},
	"do": {}, "does": {}, "did": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "may": {}, "might": {}, "must": {}, "shall": {}, "can": {},
	"need": {}, "what": {}, "when": {}, "where": {}, "which": {}, "who": {},
	"whom": {}, "this": {}, "that": {}, "these": {}, "those": {}, "with": {},
	"from": {}, "about": {}, "into": {}, "through": {}, "during": {},
	"before": {}, "after": {}, "above": {}, "below": {}, "between": {},
	"under": {}, "again": {}, "like": {}, "know": {}, "think": {}, "want": {},
	"tell": {}, "your": {}, "you": {}, "for": {},
}

func isStopWord(word string) bool {
	_, ok := stopWords[strings.ToLower(word)]
	return ok
}
