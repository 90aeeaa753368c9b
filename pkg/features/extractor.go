// Package features turns raw retailer product names into normalized token sets.
//
// Extract is shared by ingestion, the duplicate candidate finder and the token
// reindex. Any change to it changes which products resolve together.
package features

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var digitsPattern = regexp.MustCompile(`[\p{Nd}%]+`)

const punctuation = `\/!"#$%&'()*+,-./:;<=>?@[]^_` + "`" + `{|}~`

// StopWords are dropped from every token set.
var StopWords = NewTokenSet("בטעם", "אריזת", "מארז", "מבצע", "ביחידה", "יחידות", "של")

// Extract lower-cases name, blanks out digits, percent signs and punctuation,
// splits on whitespace and drops stop words and single-character tokens.
func Extract(name string) TokenSet {
	tokens := make(TokenSet)
	if strings.TrimSpace(name) == "" {
		return tokens
	}

	text := strings.ToLower(name)
	text = digitsPattern.ReplaceAllString(text, " ")
	text = strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return ' '
		}
		return r
	}, text)

	for _, word := range strings.Fields(text) {
		if utf8.RuneCountInString(word) <= 1 || StopWords.Has(word) {
			continue
		}
		tokens[word] = struct{}{}
	}
	return tokens
}
