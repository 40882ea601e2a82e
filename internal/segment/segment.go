// Package segment splits free text into the ordered sentences that are
// submitted to the classifier.
package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Split splits text into trimmed, non-empty sentences in left-to-right order.
//
// A boundary is a whitespace run that directly follows '.', '!' or '?'.
// The terminator stays with the preceding sentence and the whitespace run
// is consumed as the delimiter. Text without terminators yields a single
// sentence.
func Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size

		if !isTerminator(r) {
			continue
		}

		end := i
		for end < len(text) {
			next, n := utf8.DecodeRuneInString(text[end:])
			if !unicode.IsSpace(next) {
				break
			}
			end += n
		}
		if end == i {
			// Terminator inside a token, e.g. "3.14" or "e.g."
			continue
		}

		sentences = appendTrimmed(sentences, text[start:i])
		start = end
		i = end
	}

	return appendTrimmed(sentences, text[start:])
}

// Join concatenates sentences with single spaces
func Join(sentences []string) string {
	return strings.Join(sentences, " ")
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func appendTrimmed(sentences []string, candidate string) []string {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return sentences
	}
	return append(sentences, candidate)
}
