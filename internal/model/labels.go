package model

import (
	"regexp"
	"strings"
)

var splitWordsPattern = regexp.MustCompile(`[_\-\s]+`)

// DefaultLabeler turns a field key into a display label. Underscores and
// dashes become spaces and only the first word is capitalised, so
// "was_person_injured" reads "Was person injured". Known acronyms stay upper
// case.
func DefaultLabeler(key string) string {
	words := splitWordsPattern.Split(strings.TrimSpace(key), -1)
	segments := make([]string, 0, len(words))
	for _, word := range words {
		if word == "" {
			continue
		}
		lower := strings.ToLower(word)
		if _, ok := acronyms[lower]; ok {
			segments = append(segments, strings.ToUpper(lower))
			continue
		}
		if len(segments) == 0 {
			lower = strings.ToUpper(lower[:1]) + lower[1:]
		}
		segments = append(segments, lower)
	}
	return strings.Join(segments, " ")
}

var acronyms = map[string]struct{}{
	"id":     {},
	"riddor": {},
	"f2508":  {},
	"gp":     {},
}
