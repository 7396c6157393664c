package redis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/iamasit07/four-in-a-row/internal/domain"
)

// Handler processes one decoded event. Returning an error leaves the
// entry pending so it is retried.
type Handler func(ctx context.Context, ev domain.Event, payload []byte) error

type ConsumerOptions struct {
	Stream   string
	Group    string
	Consumer string
	Batch    int64
	// Block is how long one read waits for entries; zero means two
	// seconds and a negative value returns immediately.
	Block time.Duration
}

// StreamConsumer reads a stream through a consumer group.
type StreamConsumer struct {
	client *redis.Client
	opts   ConsumerOptions
	logger *log.Logger
}

func NewStreamConsumer(client *redis.Client, opts ConsumerOptions, logger *log.Logger) *StreamConsumer {
	if opts.Batch <= 0 {
		opts.Batch = 50
	}
	if opts.Block == 0 {
		opts.Block = 2 * time.Second
	}
	if opts.Consumer == "" {
		opts.Consumer = "consumer-1"
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &StreamConsumer{client: client, opts: opts, logger: logger.WithPrefix("stream")}
}

// EnsureGroup creates the consumer group from the start of the stream.
func (c *StreamConsumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.opts.Stream, c.opts.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", c.opts.Group, c.opts.Stream, err)
	}
	return nil
}

// Run polls until ctx is cancelled.
func (c *StreamConsumer) Run(ctx context.Context, h Handler) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}
	c.logger.Info("consuming", "stream", c.opts.Stream, "group", c.opts.Group)

	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := c.Poll(ctx, h); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("read failed", "err", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
}

// Poll reads one batch and returns how many entries were acknowledged.
func (c *StreamConsumer) Poll(ctx context.Context, h Handler) (int, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.opts.Group,
		Consumer: c.opts.Consumer,
		Streams:  []string{c.opts.Stream, ">"},
		Count:    c.opts.Batch,
		Block:    c.opts.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	acked := 0
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			if c.handle(ctx, msg, h) {
				if err := c.client.XAck(ctx, c.opts.Stream, c.opts.Group, msg.ID).Err(); err != nil {
					return acked, fmt.Errorf("ack %s: %w", msg.ID, err)
				}
				acked++
			}
		}
	}
	return acked, nil
}

// handle reports whether msg should be acknowledged. Undecodable entries
// are acknowledged so they do not block the group.
func (c *StreamConsumer) handle(ctx context.Context, msg redis.XMessage, h Handler) bool {
	raw, _ := msg.Values["payload"].(string)
	ev, err := domain.DecodeEvent([]byte(raw))
	if err != nil {
		c.logger.Warn("dropping undecodable entry", "id", msg.ID, "err", err)
		return true
	}
	if err := h(ctx, ev, []byte(raw)); err != nil {
		c.logger.Error("handler failed", "id", msg.ID, "type", ev.Type(), "err", err)
		return false
	}
	return true
}
