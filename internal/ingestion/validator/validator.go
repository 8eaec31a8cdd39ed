// Package validator checks crawled pages before they are queued or indexed
// and returns per-field error details.
package validator

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/ingestion"
)

const (
	maxURLLength   = 2048
	maxTitleLength = 1024
	maxHTMLLength  = 5 << 20
	maxOutlinks    = 10000
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return strings.Join(parts, "; ")
}

// ValidateSubmitRequest checks a page submitted over HTTP.
func ValidateSubmitRequest(req *ingestion.SubmitPageRequest) error {
	return validatePage(req.URL, req.HTML, req.Title, req.Outlinks)
}

// ValidatePageCrawled checks a page read from the pages-crawled topic.
func ValidatePageCrawled(ev *ingestion.PageCrawledEvent) error {
	return validatePage(ev.URL, ev.HTML, ev.Title, ev.Outlinks)
}

func validatePage(rawURL, html, title string, outlinks []string) error {
	errs := make(map[string]string)

	rawURL = strings.TrimSpace(rawURL)
	switch {
	case rawURL == "":
		errs["url"] = "url is required"
	case len(rawURL) > maxURLLength:
		errs["url"] = fmt.Sprintf("url must be at most %d characters", maxURLLength)
	default:
		u, err := url.Parse(rawURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			errs["url"] = "url must be an absolute http or https url"
		}
	}
	if strings.TrimSpace(html) == "" {
		errs["html"] = "html is required and must not be empty"
	} else if len(html) > maxHTMLLength {
		errs["html"] = fmt.Sprintf("html must be at most %d bytes", maxHTMLLength)
	}
	if len(title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLength)
	}
	if len(outlinks) > maxOutlinks {
		errs["outlinks"] = fmt.Sprintf("at most %d outlinks are accepted", maxOutlinks)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
