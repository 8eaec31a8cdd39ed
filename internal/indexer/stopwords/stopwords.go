// Package stopwords loads the stop-word list once at startup. A missing or
// empty list is fatal: indexing stop words would skew every relevance score.
package stopwords

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/errors"
)

//go:embed english.txt
var defaultList string

// Filter is an immutable stop-word set, safe for concurrent use.
type Filter struct {
	words map[string]struct{}
}

// Load reads a newline-delimited list. Blank lines and lines starting with
// '#' are ignored; words are lowercased.
func Load(r io.Reader) (*Filter, error) {
	words := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading stop words: %v", apperrors.ErrResourceLoad, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: stop-word list is empty", apperrors.ErrResourceLoad)
	}
	return &Filter{words: words}, nil
}

// LoadFile loads the list at path, or the embedded English list when path
// is empty.
func LoadFile(path string) (*Filter, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening stop words %s: %v", apperrors.ErrResourceLoad, path, err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the embedded English list.
func Default() (*Filter, error) {
	return Load(strings.NewReader(defaultList))
}

// FromWords builds a filter from an explicit word set.
func FromWords(words ...string) *Filter {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &Filter{words: set}
}

func (f *Filter) Contains(word string) bool {
	_, ok := f.words[word]
	return ok
}

func (f *Filter) Len() int {
	return len(f.words)
}
