// Package normalizer cleans raw review text before admission and packing.
package normalizer

import (
	"regexp"
	"strings"
)

var (
	// word characters, whitespace and .,!?'":;%()&- survive; emoji and other symbols do not
	disallowedChars = regexp.MustCompile(`[^\p{L}\p{N}_\s\p{Z}.,!?'":;%()&\-]`)
	urlTokens       = regexp.MustCompile(`(?i)https?\S+|www\S+`)
	// "... goo... READ MORE" truncation left by the review site
	truncatedTail = regexp.MustCompile(`\s\b\w{0,3}\s?\.{3,}\s*\n?READ MORE`)
	dotRuns       = regexp.MustCompile(`\.{2,}`)
	whitespace    = regexp.MustCompile(`[\s\p{Z}]+`)
	readMore      = regexp.MustCompile(`\.\s*READ MORE`)
)

// Normalize applies the fixed cleaning pipeline. It never fails and maps "" to "".
// The READ MORE and dot rules run twice because the first whitespace collapse can
// expose new ".READ MORE" sequences.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = disallowedChars.ReplaceAllString(text, "")
	text = urlTokens.ReplaceAllString(text, "")
	text = truncatedTail.ReplaceAllString(text, ".")
	text = dotRuns.ReplaceAllString(text, ". ")
	text = strings.TrimSpace(whitespace.ReplaceAllString(text, " "))

	text = readMore.ReplaceAllString(text, ". ")
	text = dotRuns.ReplaceAllString(text, ". ")
	// 두 번째 치환이 만든 이중 공백을 다시 접는다.
	text = strings.TrimSpace(whitespace.ReplaceAllString(text, " "))

	return strings.ToLower(text)
}

// WordCount counts whitespace separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
