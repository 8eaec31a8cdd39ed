// Package kafka provides Kafka producer and consumer clients backed by
// segmentio/kafka-go. Crawled pages arrive on one topic and index-update
// notifications leave on another; payloads are JSON.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/web-search-engine/pkg/config"
)

// MessageHandler is a callback invoked for each Kafka message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// ConsumerOptions tunes a Consumer beyond the shared Kafka config.
type ConsumerOptions struct {
	// GroupID overrides cfg.ConsumerGroup when set.
	GroupID string
	// FromBeginning starts a new group at the oldest offset instead of the
	// newest.
	FromBeginning bool
	// DeferCommit holds handled messages until Commit is called instead of
	// committing each one as soon as its handler returns.
	DeferCommit bool
}

// Consumer reads messages from a Kafka topic and dispatches them to a
// MessageHandler.
type Consumer struct {
	reader      *kafka.Reader
	commit      func(ctx context.Context, msgs ...kafka.Message) error
	logger      *slog.Logger
	handler     MessageHandler
	deferCommit bool

	mu          sync.Mutex
	uncommitted []kafka.Message
}

// NewConsumer creates a Consumer for the given topic and handler.
func NewConsumer(cfg config.KafkaConfig, topic string, opts ConsumerOptions, handler MessageHandler) *Consumer {
	groupID := cfg.ConsumerGroup
	if opts.GroupID != "" {
		groupID = opts.GroupID
	}
	startOffset := kafka.LastOffset
	if opts.FromBeginning {
		startOffset = kafka.FirstOffset
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     groupID,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		StartOffset: startOffset,
	})

	return &Consumer{
		reader:      r,
		commit:      r.CommitMessages,
		logger:      slog.Default().With("component", "kafka-consumer", "topic", topic, "group", groupID),
		handler:     handler,
		deferCommit: opts.DeferCommit,
	}
}

// Start enters the consume loop, fetching and processing messages until ctx
// is cancelled. A message is committed only after its handler succeeds, and
// with DeferCommit only once Commit runs after that. The reader stays open
// until Close so deferred messages can still be committed after Start
// returns.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}
		c.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"value_size", len(msg.Value),
		)
		if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
			c.logger.Error("failed to process message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}
		if c.deferCommit {
			c.hold(msg)
			continue
		}
		if err := c.commit(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

func (c *Consumer) hold(msg kafka.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uncommitted = append(c.uncommitted, msg)
}

// Commit commits every handled message held since the last Commit. On
// failure the messages stay held for the next call.
func (c *Consumer) Commit(ctx context.Context) error {
	c.mu.Lock()
	msgs := c.uncommitted
	c.uncommitted = nil
	c.mu.Unlock()
	if len(msgs) == 0 {
		return nil
	}
	if err := c.commit(ctx, msgs...); err != nil {
		c.mu.Lock()
		c.uncommitted = append(msgs, c.uncommitted...)
		c.mu.Unlock()
		return fmt.Errorf("committing %d messages: %w", len(msgs), err)
	}
	c.logger.Debug("messages committed", "count", len(msgs))
	return nil
}

// Uncommitted returns the number of handled messages awaiting Commit.
func (c *Consumer) Uncommitted() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.uncommitted)
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
