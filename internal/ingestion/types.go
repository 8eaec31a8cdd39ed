// Package ingestion defines the Kafka event schemas exchanged between the
// crawler, the indexer, the PageRank job and the searcher, and the HTTP
// request types of the page submission endpoint.
package ingestion

import "time"

// SubmitPageRequest is the JSON body accepted by POST /api/v1/pages.
type SubmitPageRequest struct {
	URL      string   `json:"url"`
	HTML     string   `json:"html"`
	Title    string   `json:"title,omitempty"`
	Outlinks []string `json:"outlinks,omitempty"`
}

// SubmitPageResponse is returned once a page is queued for indexing.
type SubmitPageResponse struct {
	PageID  string `json:"page_id"`
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}

// PageCrawledEvent is one fetched page on the pages-crawled topic. Title and
// Outlinks are optional; when absent they are taken from the HTML.
type PageCrawledEvent struct {
	EventID   string    `json:"event_id"`
	URL       string    `json:"url"`
	HTML      string    `json:"html"`
	Title     string    `json:"title,omitempty"`
	Outlinks  []string  `json:"outlinks,omitempty"`
	CrawledAt time.Time `json:"crawled_at"`
}

// Update sources.
const (
	SourceIndexer  = "indexer"
	SourcePageRank = "pagerank"
)

// IndexUpdatedEvent announces that postings or ranks changed and cached
// search results are stale.
type IndexUpdatedEvent struct {
	EventID   string    `json:"event_id"`
	Source    string    `json:"source"`
	Words     int       `json:"words,omitempty"`
	Pages     int       `json:"pages,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
