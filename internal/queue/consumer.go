package queue

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Handler processes one dequeued task.
type Handler func(ctx context.Context, task Task) error

// Consumer drains a TaskQueue until its context ends. Handler failures are
// logged and never stop the loop.
type Consumer struct {
	queue   TaskQueue
	handler Handler
	logger  zerolog.Logger
}

// NewConsumer wires a consumer loop over the queue.
func NewConsumer(q TaskQueue, handler Handler, logger zerolog.Logger) *Consumer {
	return &Consumer{queue: q, handler: handler, logger: logger}
}

// Run blocks until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		task, err := c.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			c.logger.Error().Err(err).Msg("queue: dequeue failed")
			continue
		}
		if err := c.handler(ctx, task); err != nil {
			c.logger.Error().Err(err).Str("image_id", task.ImageID).Msg("queue: task failed")
		}
	}
}
