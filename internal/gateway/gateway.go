package gateway

import (
	"context"
	"errors"

	"github.com/user/agendabot/internal/types"
)

// Handler processes one message and returns the calendar error, if any.
// Replies are the handler's concern.
type Handler func(ctx context.Context, msg types.Message) error

// Gateway accepts inbound messages from every transport, wraps each in a
// Run and queues it so that transports can acknowledge immediately.
type Gateway struct {
	Queue *Queue
}

// New creates a Gateway that hands messages to handler with the given
// concurrency limit for simultaneous processing.
func New(handler Handler, maxConcurrent ...int64) *Gateway {
	var concurrency int64 = 2
	if len(maxConcurrent) > 0 && maxConcurrent[0] > 0 {
		concurrency = maxConcurrent[0]
	}
	q := NewQueue(concurrency)
	q.SetProcessor(func(ctx context.Context, run *Run) error {
		return handler(ctx, run.Message)
	})
	return &Gateway{Queue: q}
}

// Start starts the internal queue.
func (g *Gateway) Start(ctx context.Context) {
	g.Queue.Start(ctx)
}

// Stop waits for every accepted message to be processed. Processing is not
// cut short by cancellation of the context given to Start.
func (g *Gateway) Stop() {
	g.Queue.Stop()
}

// HandleInbound wraps msg in a Run and enqueues it for processing.
func (g *Gateway) HandleInbound(ctx context.Context, msg types.Message) error {
	if msg.Sender == "" {
		return errors.New("message has no sender")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.Queue.Enqueue(NewRun(msg))
}
