package events

import (
	"context"
	"fmt"

	"github.com/mandirseva/mandir-platform/pkg/logging"
)

type queueSender interface {
	Send(ctx context.Context, body string) error
}

// Publisher writes booking events onto the queue.
type Publisher struct {
	queue  queueSender
	logger *logging.Logger
}

// NewPublisher creates an event publisher.
func NewPublisher(queue queueSender, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("events: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{queue: queue, logger: logger}
}

// BookingConfirmed publishes a booking.confirmed.v1 event.
func (p *Publisher) BookingConfirmed(ctx context.Context, ev BookingConfirmedV1) error {
	body, err := Wrap(TypeBookingConfirmedV1, ev)
	if err != nil {
		return fmt.Errorf("events: failed to encode booking confirmed event: %w", err)
	}
	if err := p.queue.Send(ctx, body); err != nil {
		return err
	}
	p.logger.Info("published booking confirmed event", "booking_id", ev.BookingID)
	return nil
}

// BookingCancelled publishes a booking.cancelled.v1 event.
func (p *Publisher) BookingCancelled(ctx context.Context, ev BookingCancelledV1) error {
	body, err := Wrap(TypeBookingCancelledV1, ev)
	if err != nil {
		return fmt.Errorf("events: failed to encode booking cancelled event: %w", err)
	}
	if err := p.queue.Send(ctx, body); err != nil {
		return err
	}
	p.logger.Info("published booking cancelled event", "booking_id", ev.BookingID)
	return nil
}
