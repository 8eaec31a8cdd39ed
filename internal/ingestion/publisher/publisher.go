// Package publisher queues submitted pages on the pages-crawled topic and
// announces index changes on the index-updated topic.
package publisher

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/document"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/kafka"
)

// EventWriter is the part of *kafka.Producer the publisher needs.
type EventWriter interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// Publisher wraps an EventWriter with the event schemas of one topic.
type Publisher struct {
	writer EventWriter
	now    func() time.Time
	logger *slog.Logger
}

func New(writer EventWriter) *Publisher {
	return &Publisher{
		writer: writer,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default().With("component", "publisher"),
	}
}

// SubmitPage publishes req as a PageCrawledEvent keyed by page ID, so every
// crawl of one URL lands on the same partition in order. The request must
// already be validated.
func (p *Publisher) SubmitPage(ctx context.Context, req *ingestion.SubmitPageRequest) (*ingestion.SubmitPageResponse, error) {
	pageID := document.PageID(req.URL)
	event := ingestion.PageCrawledEvent{
		EventID:   uuid.NewString(),
		URL:       req.URL,
		HTML:      req.HTML,
		Title:     req.Title,
		Outlinks:  req.Outlinks,
		CrawledAt: p.now(),
	}
	if err := p.writer.Publish(ctx, kafka.Event{Key: pageID, Value: event}); err != nil {
		p.logger.Error("failed to queue page",
			"page_id", pageID,
			"url", req.URL,
			"error", err,
		)
		return nil, apperrors.New(apperrors.ErrInternal, http.StatusServiceUnavailable, "page could not be queued")
	}
	return &ingestion.SubmitPageResponse{
		PageID:  pageID,
		EventID: event.EventID,
		Status:  "QUEUED",
	}, nil
}

// IndexUpdated announces a change to the index. Failures are logged and
// returned; the change itself is already persisted.
func (p *Publisher) IndexUpdated(ctx context.Context, source string, words, pages int) error {
	event := ingestion.IndexUpdatedEvent{
		EventID:   uuid.NewString(),
		Source:    source,
		Words:     words,
		Pages:     pages,
		UpdatedAt: p.now(),
	}
	if err := p.writer.Publish(ctx, kafka.Event{Key: source, Value: event}); err != nil {
		p.logger.Warn("failed to publish index update",
			"source", source,
			"error", err,
		)
		return err
	}
	return nil
}
