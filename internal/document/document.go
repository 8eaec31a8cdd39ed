// Package document defines crawled pages as the index sees them, their
// stable IDs and the closed set of HTML fields that carry extra weight.
package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Document is a crawled page accepted for indexing. Rank is written only by
// the PageRank engine; the other fields are replaced whenever the page is
// indexed again. Words lists the index terms the page was last indexed
// under, in ascending order.
type Document struct {
	ID         string   `json:"id"`
	URL        string   `json:"url"`
	Title      string   `json:"title"`
	RawContent string   `json:"raw_content"`
	TokenCount int      `json:"token_count"`
	Rank       float64  `json:"rank"`
	Outlinks   []string `json:"outlinks,omitempty"`
	Words      []string `json:"words,omitempty"`
	Headers    []Header `json:"-"`
}

// Header is one heading-like element of a page, in document order.
type Header struct {
	Field Field
	Text  string
}

// PageStats is the per-page data the ranker and result list need.
type PageStats struct {
	ID         string
	URL        string
	Title      string
	TokenCount int
	Rank       float64
}

// Source is the read side of the document collaborator.
type Source interface {
	ListKnownDocuments(ctx context.Context) ([]Document, error)
	GetDocumentContent(ctx context.Context, pageID string) (string, error)
	GetPageTokenCount(ctx context.Context, pageID string) (int, error)
	GetPageStats(ctx context.Context, pageIDs []string) (map[string]PageStats, error)
	CountDocuments(ctx context.Context) (int, error)
}

// Sink persists accepted documents. SaveDocument upserts by ID and leaves an
// existing rank untouched. GetPageWords returns the Words saved with
// pageID, or an error wrapping ErrDocumentNotFound.
type Sink interface {
	SaveDocument(ctx context.Context, doc Document) error
	GetPageWords(ctx context.Context, pageID string) ([]string, error)
}

// PageID returns the content-stable identifier of rawURL: the hex SHA-256
// of its normalized form.
func PageID(rawURL string) string {
	sum := sha256.Sum256([]byte(NormalizeURL(rawURL)))
	return hex.EncodeToString(sum[:])
}

// NormalizeURL lowercases scheme and host, drops the fragment and default
// ports, and strips a trailing slash from non-root paths. Unparseable input
// is only trimmed.
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host += ":" + port
	}
	u.Host = host
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	if len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
		if u.Path == "" {
			u.Path = "/"
		}
	}
	u.RawPath = ""
	return u.String()
}
