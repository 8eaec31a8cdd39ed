// Package consumer reads crawled pages from Kafka and feeds them through
// extraction into the indexer engine.
package consumer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/document"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/indexer/extract"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/kafka"
)

// Indexer is the part of *indexer.Engine the consumer drives.
type Indexer interface {
	IndexDocument(ctx context.Context, doc document.Document) error
}

// IndexConsumer wraps a Kafka consumer to drive the indexing pipeline.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates an IndexConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// CommitIndexed is an engine flush hook. The Kafka consumer must defer its
// commits: every message handled before the flush has its postings stored
// by the time the hook runs, so its offset can be committed. A failed
// commit only means those pages are indexed again after a restart.
func (ic *IndexConsumer) CommitIndexed(ctx context.Context, _ index.FlushReport) {
	if err := ic.consumer.Commit(ctx); err != nil {
		ic.logger.Error("failed to commit indexed messages", "error", err)
	}
}

// Close releases the Kafka reader. Call it after the final flush.
func (ic *IndexConsumer) Close() error {
	return ic.consumer.Close()
}

// HandleMessage returns a Kafka MessageHandler that indexes every
// pages-crawled event. Undecodable or invalid events are logged and
// acknowledged so one bad page cannot stall the partition; indexing
// failures are returned and the message stays uncommitted. An indexed page
// only sits in the engine's batch when the handler returns, so the consumer
// commits after the next flush rather than per message.
func HandleMessage(idx Indexer) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.PageCrawledEvent](value)
		if err != nil {
			logger.Error("failed to decode page event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if err := validator.ValidatePageCrawled(&event); err != nil {
			logger.Warn("skipping invalid page event",
				"event_id", event.EventID,
				"url", event.URL,
				"error", err,
			)
			return nil
		}

		doc, err := BuildDocument(&event)
		if err != nil {
			logger.Warn("skipping unparseable page",
				"event_id", event.EventID,
				"url", event.URL,
				"error", err,
			)
			return nil
		}

		if err := idx.IndexDocument(ctx, doc); err != nil {
			return fmt.Errorf("indexing page %s: %w", doc.ID, err)
		}
		logger.Debug("page event processed",
			"event_id", event.EventID,
			"page_id", doc.ID,
			"outlinks", len(doc.Outlinks),
		)
		return nil
	}
}

// BuildDocument extracts a document from event. A title or outlink list
// supplied by the crawler replaces what the HTML yields.
func BuildDocument(event *ingestion.PageCrawledEvent) (document.Document, error) {
	doc, err := extract.Parse(event.URL, event.HTML)
	if err != nil {
		return document.Document{}, err
	}
	if event.Title != "" {
		doc.Title = event.Title
		replaced := false
		for i, h := range doc.Headers {
			if h.Field == document.FieldTitle {
				doc.Headers[i].Text = event.Title
				replaced = true
			}
		}
		if !replaced {
			doc.Headers = append([]document.Header{{Field: document.FieldTitle, Text: event.Title}}, doc.Headers...)
		}
	}
	if len(event.Outlinks) > 0 {
		seen := make(map[string]bool, len(event.Outlinks))
		links := make([]string, 0, len(event.Outlinks))
		for _, l := range event.Outlinks {
			n := document.NormalizeURL(l)
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			links = append(links, n)
		}
		doc.Outlinks = links
	}
	return doc, nil
}
