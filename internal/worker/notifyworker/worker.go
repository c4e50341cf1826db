package notifyworker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mandirseva/mandir-platform/internal/events"
	"github.com/mandirseva/mandir-platform/pkg/logging"
)

type queueClient interface {
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]events.Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type notifier interface {
	BookingConfirmed(ctx context.Context, evt events.BookingConfirmedV1)
	BookingCancelled(ctx context.Context, evt events.BookingCancelledV1)
}

// Worker drains the booking events queue and hands each event to the
// notification service. Sends are best effort, so every message is deleted
// after one handling attempt; malformed messages are deleted immediately
// rather than poisoning the queue.
type Worker struct {
	queue       queueClient
	notify      notifier
	logger      *logging.Logger
	maxMessages int
	waitSeconds int
	idleBackoff time.Duration
}

// New creates a notification worker.
func New(queue queueClient, notify notifier, logger *logging.Logger) *Worker {
	if queue == nil {
		panic("notifyworker: queue cannot be nil")
	}
	if notify == nil {
		panic("notifyworker: notifier cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		queue:       queue,
		notify:      notify,
		logger:      logger,
		maxMessages: 10,
		waitSeconds: 20,
		idleBackoff: 2 * time.Second,
	}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("notify worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("notify worker stopping")
			return ctx.Err()
		default:
		}

		handled, err := w.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("receive failed, backing off", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.idleBackoff):
			}
			continue
		}
		if handled == 0 {
			// Long polling already waited; nothing else to do.
			continue
		}
	}
}

// Poll performs one receive/dispatch cycle and reports how many messages it
// handled.
func (w *Worker) Poll(ctx context.Context) (int, error) {
	messages, err := w.queue.Receive(ctx, w.maxMessages, w.waitSeconds)
	if err != nil {
		return 0, err
	}

	for _, msg := range messages {
		w.dispatch(ctx, msg.Body)
		if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
			w.logger.Error("failed to delete message", "error", err, "message_id", msg.ID)
		}
	}
	return len(messages), nil
}

func (w *Worker) dispatch(ctx context.Context, body string) {
	var env events.Envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		w.logger.Error("dropping malformed event", "error", err)
		return
	}

	switch env.Type {
	case events.TypeBookingConfirmedV1:
		var evt events.BookingConfirmedV1
		if err := json.Unmarshal(env.Payload, &evt); err != nil {
			w.logger.Error("dropping malformed booking confirmed payload", "error", err)
			return
		}
		w.notify.BookingConfirmed(ctx, evt)
	case events.TypeBookingCancelledV1:
		var evt events.BookingCancelledV1
		if err := json.Unmarshal(env.Payload, &evt); err != nil {
			w.logger.Error("dropping malformed booking cancelled payload", "error", err)
			return
		}
		w.notify.BookingCancelled(ctx, evt)
	default:
		w.logger.Warn("ignoring unknown event type", "type", env.Type)
	}
}
