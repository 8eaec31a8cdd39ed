package stopwords

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/errors"
)

func TestLoad(t *testing.T) {
	f, err := Load(strings.NewReader("# comment\nThe\n\n  and \nof\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, f.Len())
	assert.True(t, f.Contains("the"))
	assert.True(t, f.Contains("and"))
	assert.False(t, f.Contains("# comment"))
	assert.False(t, f.Contains("data"))
}

func TestLoadEmptyIsResourceFailure(t *testing.T) {
	_, err := Load(strings.NewReader("# nothing here\n\n"))
	assert.ErrorIs(t, err, apperrors.ErrResourceLoad)
	assert.True(t, apperrors.Fatal(err))
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, apperrors.ErrResourceLoad)
}

func TestDefaultList(t *testing.T) {
	f, err := LoadFile("")
	require.NoError(t, err)
	for _, w := range []string{"how", "to", "a", "with", "the", "best"} {
		assert.True(t, f.Contains(w), w)
	}
	for _, w := range []string{"build", "gaming", "pc", "components", "data", "science"} {
		assert.False(t, f.Contains(w), w)
	}
}
