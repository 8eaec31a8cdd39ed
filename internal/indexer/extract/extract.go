// Package extract turns crawled HTML into a document.Document: title,
// heading elements, visible body text and absolute outgoing links.
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/document"
	apperrors "github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/errors"
)

var skipped = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
}

// Parse extracts a document from the HTML body fetched from pageURL. Links
// are resolved against pageURL (or a <base href>), restricted to http and
// https, normalized and deduplicated in document order.
func Parse(pageURL string, body string) (document.Document, error) {
	base, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return document.Document{}, fmt.Errorf("%w: page url %q", apperrors.ErrInvalidInput, pageURL)
	}
	root, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return document.Document{}, fmt.Errorf("parsing html of %s: %w", pageURL, err)
	}

	w := &walker{base: base, seen: make(map[string]bool)}
	w.walk(root, 0)

	normalized := document.NormalizeURL(pageURL)
	doc := document.Document{
		ID:         document.PageID(normalized),
		URL:        normalized,
		Title:      collapse(w.title.String()),
		RawContent: collapse(w.body.String()),
		Outlinks:   w.links,
	}
	if doc.Title != "" {
		doc.Headers = append(doc.Headers, document.Header{Field: document.FieldTitle, Text: doc.Title})
	}
	doc.Headers = append(doc.Headers, w.headers...)
	return doc, nil
}

type walker struct {
	base    *url.URL
	title   strings.Builder
	body    strings.Builder
	headers []document.Header
	links   []string
	seen    map[string]bool
}

func (w *walker) walk(n *html.Node, skipDepth int) {
	if n.Type == html.ElementNode {
		tag := strings.ToLower(n.Data)
		switch {
		case tag == "title":
			w.title.WriteString(text(n))
			return
		case tag == "base":
			if href := attr(n, "href"); href != "" {
				if u, err := w.base.Parse(href); err == nil {
					w.base = u
				}
			}
		case tag == "a" && skipDepth == 0:
			w.addLink(attr(n, "href"))
		case skipped[tag]:
			skipDepth++
		}
		if skipDepth == 0 && len(tag) == 2 && tag[0] == 'h' {
			if field, ok := document.ParseField(tag); ok && field != document.FieldTitle && field != document.FieldBody {
				if t := collapse(text(n)); t != "" {
					w.headers = append(w.headers, document.Header{Field: field, Text: t})
				}
			}
		}
	}
	if n.Type == html.TextNode && skipDepth == 0 {
		w.body.WriteString(n.Data)
		w.body.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, skipDepth)
	}
}

func (w *walker) addLink(href string) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return
	}
	u, err := w.base.Parse(href)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return
	}
	link := document.NormalizeURL(u.String())
	if w.seen[link] {
		return
	}
	w.seen[link] = true
	w.links = append(w.links, link)
}

// text returns the concatenated text below n, skipping script and style.
func text(n *html.Node) string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped[strings.ToLower(n.Data)] {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
