package document

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"HTTP://Example.COM", "http://example.com/"},
		{"https://example.com:443/a/b/#frag", "https://example.com/a/b"},
		{"http://example.com:8080/x?q=1", "http://example.com:8080/x?q=1"},
		{"  http://example.com/  ", "http://example.com/"},
		{"not a url", "not a url"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeURL(tt.in), tt.in)
	}
}

func TestPageIDIsStableAcrossEquivalentURLs(t *testing.T) {
	a := PageID("http://Example.com/docs/")
	b := PageID("http://example.com/docs#intro")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, PageID("http://example.com/blog"))
}

func TestParseField(t *testing.T) {
	f, ok := ParseField("H3")
	require.True(t, ok)
	assert.Equal(t, FieldH3, f)

	_, ok = ParseField("marquee")
	assert.False(t, ok)
}

func TestFieldMapJSON(t *testing.T) {
	in := map[Field]int{FieldTitle: 2, FieldH1: 1}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":2,"h1":1}`, string(data))

	var out map[Field]int
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	assert.Error(t, json.Unmarshal([]byte(`{"blink":1}`), &out))
}
