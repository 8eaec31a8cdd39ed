// Package snippet cuts a short excerpt of page text around a matched token.
package snippet

import "strings"

var (
	closing = map[string]bool{
		".": true, ",": true, ";": true, ":": true, "!": true,
		"?": true, ")": true, "]": true, "}": true, "%": true,
	}
	opening = map[string]bool{
		"(": true, "[": true, "{": true, "$": true, "#": true,
	}
)

// Generate returns the tokens within size/4 of position joined by single
// spaces. Closing punctuation sticks to the token before it and opening
// punctuation to the token after it. An out-of-range position yields "".
func Generate(tokens []string, position, size int) string {
	if position < 0 || position >= len(tokens) {
		return ""
	}
	radius := size / 4
	start := max(0, position-radius)
	end := min(len(tokens), position+radius+1)

	var b strings.Builder
	glue := true
	for _, tok := range tokens[start:end] {
		if !glue && !closing[tok] {
			b.WriteByte(' ')
		}
		b.WriteString(tok)
		glue = opening[tok]
	}
	return b.String()
}

// Find returns the snippet around the first position accepted by verify,
// with that position. A nil verify accepts every position.
func Find(tokens []string, positions []int, verify func(position int) bool, size int) (string, int, bool) {
	for _, pos := range positions {
		if pos < 0 || pos >= len(tokens) {
			continue
		}
		if verify != nil && !verify(pos) {
			continue
		}
		return Generate(tokens, pos, size), pos, true
	}
	return "", -1, false
}
