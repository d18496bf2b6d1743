// internal/extract/wiki.go
package extract

import (
	"strings"
	"unicode"
)

// questionWords are interrogatives that look like proper nouns when they open
// a sentence ("Will Tesla..."), so a capitalized first token matching one of
// these is not treated as an entity.
var questionWords = map[string]struct{}{
	"who": {}, "what": {}, "when": {}, "where": {}, "why": {}, "how": {},
	"will": {}, "would": {}, "could": {}, "should": {}, "can": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "does": {}, "do": {}, "did": {},
}

// domainTerms are lowercase phrases worth searching for even though they are
// not capitalized in the question. The first one found is appended.
var domainTerms = []string{
	"net worth",
	"trillionaire",
	"billionaire",
	"stock price",
	"market cap",
	"ipo",
	"acquisition",
	"merger",
	"earnings",
	"bankruptcy",
	"recession",
	"inflation",
}

// WikiQuery derives an encyclopedia search query from a question by keeping
// capitalized tokens in their original order. When the question contains no
// usable capitalized tokens the question itself is returned unchanged.
func WikiQuery(question string) string {
	var kept []string
	for i, token := range strings.Fields(question) {
		word := strings.Trim(token, ".,!?;:\"'")
		runes := []rune(word)
		if len(runes) < 2 || !unicode.IsUpper(runes[0]) {
			continue
		}
		if i == 0 {
			if _, ok := questionWords[strings.ToLower(word)]; ok {
				continue
			}
		}
		kept = append(kept, word)
	}

	if len(kept) == 0 {
		return question
	}

	lower := strings.ToLower(question)
	for _, term := range domainTerms {
		if strings.Contains(lower, term) {
			kept = append(kept, term)
			break
		}
	}

	return strings.Join(kept, " ")
}
