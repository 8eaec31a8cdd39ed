package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/document"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/indexer/stopwords"
	apperrors "github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/errors"
)

type occurrence struct {
	word     string
	position int
}

type recordingSink struct {
	occurrences []occurrence
	fields      map[string]map[document.Field]int
}

func (s *recordingSink) AddOccurrence(word, pageID string, position int) {
	s.occurrences = append(s.occurrences, occurrence{word, position})
}

func (s *recordingSink) AddFieldOccurrence(word, pageID string, field document.Field) {
	if s.fields == nil {
		s.fields = make(map[string]map[document.Field]int)
	}
	if s.fields[word] == nil {
		s.fields[word] = make(map[document.Field]int)
	}
	s.fields[word][field]++
}

func newTokenizer(t *testing.T, stop ...string) *Tokenizer {
	t.Helper()
	filter := stopwords.FromWords(stop...)
	if len(stop) == 0 {
		var err error
		filter, err = stopwords.Default()
		require.NoError(t, err)
	}
	tok, err := New(filter)
	require.NoError(t, err)
	return tok
}

func TestNewRequiresStopWords(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, apperrors.ErrResourceLoad)
}

func TestSplitClasses(t *testing.T) {
	tok := newTokenizer(t)
	tests := []struct {
		text  string
		want  string
		class Class
	}{
		{"mail jane.doe@example.org now", "jane.doe@example.org", ClassEmail},
		{"call 555-123-4567 today", "555-123-4567", ClassPhone},
		{"tagged #GoLang here", "#GoLang", ClassHashtag},
		{"we write C++ daily", "C++", ClassPlus},
		{"a state-of-the-art tool", "state-of-the-art", ClassHyphen},
		{"plain words", "plain", ClassWord},
	}
	for _, tt := range tests {
		t.Run(tt.class.String(), func(t *testing.T) {
			var found bool
			for raw := range tok.Tokenize(tt.text) {
				if raw.Text == tt.want {
					assert.Equal(t, tt.class, raw.Class)
					found = true
				}
			}
			assert.True(t, found, "token %q not produced from %q", tt.want, tt.text)
		})
	}
}

func TestSplitKeepsPunctuationAsTokens(t *testing.T) {
	tok := newTokenizer(t)
	words := tok.Words(`Hello, world (again)!`)
	assert.Equal(t, []string{"hello", ",", "world", "(", "again", ")", "!"}, words)
}

func TestTokenizeIsLazyAndRestartable(t *testing.T) {
	tok := newTokenizer(t)
	seq := tok.Tokenize("one two three four")

	var first []string
	for raw := range seq {
		first = append(first, raw.Text)
		if len(first) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"one", "two"}, first)

	again := tok.Split("one two three four")
	require.Len(t, again, 4)
	assert.Equal(t, 3, again[3].Position)
}

func TestCleanPreservedClasses(t *testing.T) {
	tok := newTokenizer(t)
	assert.Equal(t, "jane.doe@example.org", tok.Clean(RawToken{Text: "Jane.Doe@Example.org", Class: ClassEmail}))
	assert.Equal(t, "c++", tok.Clean(RawToken{Text: "C++", Class: ClassPlus}))
	assert.Equal(t, "#golang", tok.Clean(RawToken{Text: "#GoLang", Class: ClassHashtag}))
}

func TestCleanDropsStopWordsPunctuationAndShortTokens(t *testing.T) {
	tok := newTokenizer(t)
	assert.Empty(t, tok.Clean(RawToken{Text: "The", Class: ClassWord}))
	assert.Empty(t, tok.Clean(RawToken{Text: ",", Class: ClassPunct}))
	assert.Empty(t, tok.Clean(RawToken{Text: "x", Class: ClassWord}))
	assert.Empty(t, tok.Clean(RawToken{Text: "42", Class: ClassWord}))
	assert.Equal(t, "run", tok.Clean(RawToken{Text: "Running", Class: ClassWord}))
}

func TestCleanKeepsStemsThatAreStopWords(t *testing.T) {
	tok := newTokenizer(t)
	tests := []struct{ in, want string }{
		{"owns", "own"},
		{"others", "other"},
		{"downs", "down"},
		{"outs", "out"},
		{"ups", "up"},
	}
	for _, tt := range tests {
		require.True(t, tok.IsStopWord(tt.want), tt.want)
		assert.Equal(t, tt.want, tok.Clean(RawToken{Text: tt.in, Class: ClassWord}), tt.in)
	}
	assert.Empty(t, tok.Clean(RawToken{Text: "own", Class: ClassWord}))
}

func TestCleanHyphenCompoundIsStripped(t *testing.T) {
	tok := newTokenizer(t)
	got := tok.Clean(RawToken{Text: "E-Mail", Class: ClassHyphen})
	assert.Equal(t, "email", got)
}

func TestQueryTokenizationMatchesIndexing(t *testing.T) {
	tok := newTokenizer(t)
	var stems []string
	for raw := range tok.Tokenize("How to build a gaming PC with the best components") {
		if s := tok.Clean(raw); s != "" {
			stems = append(stems, s)
		}
	}
	assert.Equal(t, []string{"build", "game", "pc", "compon"}, stems)
}

func TestTokenizeContentPositionsFollowUnfilteredStream(t *testing.T) {
	tok := newTokenizer(t)
	text := "The cat, the dog and the bird."
	sink := &recordingSink{}

	kept := tok.TokenizeContent(text, "p1", sink)

	raw := tok.Words(text)
	require.Equal(t, 3, kept)
	require.Len(t, sink.occurrences, 3)
	prev := -1
	for _, occ := range sink.occurrences {
		assert.Greater(t, occ.position, prev)
		prev = occ.position
		assert.Equal(t, occ.word, tok.Clean(RawToken{Text: raw[occ.position], Class: ClassWord}))
	}
	assert.Equal(t, []occurrence{{"cat", 1}, {"dog", 4}, {"bird", 7}}, sink.occurrences)
}

func TestTokenizeHeadersCountsFields(t *testing.T) {
	tok := newTokenizer(t)
	sink := &recordingSink{}
	tok.TokenizeHeaders([]document.Header{
		{Field: document.FieldTitle, Text: "Gardening Guide"},
		{Field: document.FieldH1, Text: "Guide to roses"},
		{Field: document.FieldH2, Text: "Guide"},
	}, "p1", sink)

	assert.Empty(t, sink.occurrences)
	assert.Equal(t, map[document.Field]int{
		document.FieldTitle: 1,
		document.FieldH1:    1,
		document.FieldH2:    1,
	}, sink.fields["guid"])
	assert.Equal(t, 1, sink.fields["rose"][document.FieldH1])
}
