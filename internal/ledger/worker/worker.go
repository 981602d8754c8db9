// Package worker drains the ledger outbox into the Kafka publisher.
package worker

import (
	"context"
	"log/slog"
	"time"

	"docrelay/internal/ledger"
)

// Sink is what the worker publishes to. Satisfied by publisher.Publisher.
type Sink interface {
	Publish(ctx context.Context, entry ledger.Entry) error
}

// Worker consumes appended entries from the outbox channel and publishes
// them. A publish failure is retried once and then logged; the store write
// already succeeded, so the trail is never lost, only the derived feed lags.
type Worker struct {
	sink   Sink
	inbox  <-chan ledger.Entry
	logger *slog.Logger
}

func New(sink Sink, inbox <-chan ledger.Entry, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry := <-w.inbox:
			w.publish(ctx, entry)
		}
	}
}

func (w *Worker) publish(ctx context.Context, entry ledger.Entry) {
	err := w.sink.Publish(ctx, entry)
	if err == nil {
		return
	}
	select {
	case <-ctx.Done():
		return
	case <-time.After(time.Second):
	}
	if err := w.sink.Publish(ctx, entry); err != nil {
		w.logger.ErrorContext(ctx, "ledger fan-out publish failed",
			"entry_id", entry.ID.String(),
			"error", err,
		)
	}
}
