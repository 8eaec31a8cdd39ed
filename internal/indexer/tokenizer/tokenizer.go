// Package tokenizer turns raw text into the positional token stream shared
// by indexing and querying.
//
// Splitting yields every raw token, punctuation included, and numbers them
// consecutively. Cleaning then lowercases, strips, stems and filters; a token
// that cleans to nothing still consumes its position, so positions recorded
// at index time address the same unfiltered stream that query-time phrase
// verification and snippet generation re-split from the stored content.
package tokenizer

import (
	"fmt"
	"iter"
	"regexp"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/document"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/indexer/stopwords"
	apperrors "github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/errors"
)

// Class is the lexical class a raw token was matched as.
type Class uint8

const (
	ClassEmail Class = iota
	ClassPhone
	ClassHashtag
	ClassPlus
	ClassHyphen
	ClassWord
	ClassPunct
)

var classNames = [...]string{"email", "phone", "hashtag", "plus", "hyphen", "word", "punct"}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "unknown"
}

// Preserved reports whether tokens of this class are kept verbatim
// (lowercased) instead of being stripped and stemmed.
func (c Class) Preserved() bool {
	switch c {
	case ClassEmail, ClassPhone, ClassHashtag, ClassPlus:
		return true
	}
	return false
}

// splitPattern lists the classes in priority order; RE2 alternation is
// leftmost-first, so at each offset the first alternative that matches wins.
const splitPattern = `(?i)` +
	`([a-z0-9._%+\-]+@[a-z0-9\-]+(?:\.[a-z0-9\-]+)*\.[a-z]{2,})` +
	`|(\+?\(?\d{2,4}\)?[\-.]\d{2,4}[\-.]\d{2,6})` +
	`|(#[\p{L}\p{N}_]+)` +
	`|([a-z][a-z0-9]*\+\+?)` +
	`|([\p{L}\p{N}]+(?:-[\p{L}\p{N}]+)+)` +
	`|([\p{L}\p{N}]+)` +
	`|([^\s\p{L}\p{N}])`

const minTokenLen = 2

// RawToken is one element of the unfiltered token stream.
type RawToken struct {
	Text     string
	Position int
	Class    Class
}

// Lower returns the token text lowercased, the form used for phrase
// comparison.
func (t RawToken) Lower() string {
	return strings.ToLower(t.Text)
}

// Sink receives kept tokens. The index builder implements it.
type Sink interface {
	AddOccurrence(word, pageID string, position int)
	AddFieldOccurrence(word, pageID string, field document.Field)
}

// Tokenizer splits and cleans text. It holds no per-call state and is safe
// for concurrent use.
type Tokenizer struct {
	pattern *regexp.Regexp
	stop    *stopwords.Filter
}

// New compiles the split pattern and checks the stemmer. Any failure is a
// resource-load failure and must abort startup.
func New(stop *stopwords.Filter) (*Tokenizer, error) {
	if stop == nil {
		return nil, fmt.Errorf("%w: tokenizer requires a stop-word filter", apperrors.ErrResourceLoad)
	}
	pattern, err := regexp.Compile(splitPattern)
	if err != nil {
		return nil, fmt.Errorf("%w: compiling token pattern: %v", apperrors.ErrResourceLoad, err)
	}
	if got := english.Stem("running", true); got != "run" {
		return nil, fmt.Errorf("%w: stemmer self-check returned %q", apperrors.ErrResourceLoad, got)
	}
	return &Tokenizer{pattern: pattern, stop: stop}, nil
}

// Tokenize lazily yields the raw tokens of text in order. Each call starts
// a fresh scan; a sequence that has been ranged to completion yields nothing
// further.
func (t *Tokenizer) Tokenize(text string) iter.Seq[RawToken] {
	return func(yield func(RawToken) bool) {
		offset, position := 0, 0
		for offset < len(text) {
			loc := t.pattern.FindStringSubmatchIndex(text[offset:])
			if loc == nil {
				return
			}
			class := ClassPunct
			for g := 1; g < len(loc)/2; g++ {
				if loc[2*g] >= 0 {
					class = Class(g - 1)
					break
				}
			}
			tok := RawToken{
				Text:     text[offset+loc[0] : offset+loc[1]],
				Position: position,
				Class:    class,
			}
			if !yield(tok) {
				return
			}
			position++
			offset += loc[1]
		}
	}
}

// Split returns every raw token of text.
func (t *Tokenizer) Split(text string) []RawToken {
	var out []RawToken
	for tok := range t.Tokenize(text) {
		out = append(out, tok)
	}
	return out
}

// Words returns the lowercased unfiltered token stream of text, indexed by
// position.
func (t *Tokenizer) Words(text string) []string {
	var out []string
	for tok := range t.Tokenize(text) {
		out = append(out, tok.Lower())
	}
	return out
}

// Clean normalizes a raw token into an index term, or "" when the token is
// dropped. The stop list is matched against the stripped word before
// stemming; a stem that happens to be a stop word is kept.
func (t *Tokenizer) Clean(tok RawToken) string {
	lower := tok.Lower()
	if tok.Class.Preserved() {
		if len(lower) < minTokenLen {
			return ""
		}
		return lower
	}
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return -1
	}, lower)
	if len(stripped) < minTokenLen || t.stop.Contains(stripped) {
		return ""
	}
	stemmed := english.Stem(stripped, true)
	if len(stemmed) < minTokenLen {
		return ""
	}
	return stemmed
}

// IsStopWord reports whether word is filtered.
func (t *Tokenizer) IsStopWord(word string) bool {
	return t.stop.Contains(word)
}

// TokenizeContent records every kept token of text under its unfiltered
// position and returns the number of kept tokens.
func (t *Tokenizer) TokenizeContent(text, pageID string, sink Sink) int {
	kept := 0
	for tok := range t.Tokenize(text) {
		word := t.Clean(tok)
		if word == "" {
			continue
		}
		sink.AddOccurrence(word, pageID, tok.Position)
		kept++
	}
	return kept
}

// TokenizeHeaders counts kept tokens of each header element against its
// field. No positions are recorded.
func (t *Tokenizer) TokenizeHeaders(headers []document.Header, pageID string, sink Sink) {
	for _, h := range headers {
		for tok := range t.Tokenize(h.Text) {
			if word := t.Clean(tok); word != "" {
				sink.AddFieldOccurrence(word, pageID, h.Field)
			}
		}
	}
}
