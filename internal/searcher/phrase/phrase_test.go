package phrase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/searcher/query"
)

func TestIsMatch(t *testing.T) {
	phrase := []string{"data", "science"}
	learn := []string{"i", "want", "to", "learn", "data", "science", "today", "."}
	driven := []string{"data", "driven", "science", "is", "fun"}

	tests := []struct {
		name     string
		body     []string
		anchor   string
		position int
		want     bool
	}{
		{"anchor on first word", learn, "data", 4, true},
		{"anchor on last word", learn, "science", 5, true},
		{"word between", driven, "data", 0, false},
		{"word between from the end", driven, "science", 2, false},
		{"anchor not in phrase", learn, "today", 6, false},
		{"position past body", learn, "data", 8, false},
		{"negative position", learn, "data", -1, false},
		{"body starts mid phrase", []string{"science", "rocks"}, "science", 0, true},
		{"body ends mid phrase", []string{"big", "data"}, "data", 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMatch(tt.body, phrase, tt.anchor, tt.position))
		})
	}
}

func TestIsMatchLongerPhrase(t *testing.T) {
	phrase := []string{"state", "of", "the", "art"}
	assert.True(t, IsMatch([]string{"a", "state", "of", "the", "art", "tool"}, phrase, "art", 4))
	assert.False(t, IsMatch([]string{"a", "state", "of", "an", "art", "tool"}, phrase, "art", 4))
}

func TestAnchor(t *testing.T) {
	m := query.Model{StemmedToOriginal: map[string]string{"scienc": "science"}}
	assert.Equal(t, "science", Anchor(m, "scienc"))
	assert.Equal(t, "data", Anchor(m, "data"))
}
