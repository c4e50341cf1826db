package notify

import (
	"context"
	"fmt"

	"github.com/mandirseva/mandir-platform/internal/events"
	"github.com/mandirseva/mandir-platform/internal/observability/metrics"
	"github.com/mandirseva/mandir-platform/pkg/logging"
)

// Service fans booking events out to the member over email and SMS.
// Every send is best effort; a failed channel is recorded and skipped.
type Service struct {
	email   EmailSender
	sms     SMSSender
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
}

// NewService creates a notification service.
func NewService(email EmailSender, sms SMSSender, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, sms: sms, metrics: m, logger: logger}
}

func formatAmount(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

// BookingConfirmed notifies the member their ceremony is locked in.
func (s *Service) BookingConfirmed(ctx context.Context, evt events.BookingConfirmedV1) {
	name := evt.Name
	if name == "" {
		name = "Namaste"
	}
	amount := formatAmount(evt.TotalAmountCents)

	if s.email != nil && evt.MemberEmail != "" {
		subject := fmt.Sprintf("Booking confirmed: %s on %s", evt.AnusthanName, evt.Date)
		body := fmt.Sprintf(`Namaste %s,

Your booking is confirmed.

Ceremony: %s
Date: %s
Time: %s
Amount paid: %s
Booking reference: %s

Please arrive 15 minutes early. Cancellations require 48 hours notice.

Hari Om,
Sanatan Dharam Society`, name, evt.AnusthanName, evt.Date, evt.StartTime, amount, evt.BookingID)

		if err := s.email.Send(ctx, EmailMessage{To: evt.MemberEmail, ToName: name, Subject: subject, Body: body}); err != nil {
			s.metrics.ObserveNotify("email", "error")
			s.logger.Error("failed to send confirmation email", "error", err, "booking_id", evt.BookingID)
		} else {
			s.metrics.ObserveNotify("email", "ok")
		}
	}

	if s.sms != nil && evt.Phone != "" {
		body := fmt.Sprintf("Booking confirmed: %s on %s at %s. Paid %s. Ref %s.",
			evt.AnusthanName, evt.Date, evt.StartTime, amount, evt.BookingID)
		res := s.sms.SendSMS(ctx, evt.Phone, body)
		if res.Success {
			s.metrics.ObserveNotify("sms", "ok")
		} else {
			s.metrics.ObserveNotify("sms", "error")
			s.logger.Warn("confirmation SMS not delivered", "booking_id", evt.BookingID, "reason", res.Error)
		}
	}
}

// BookingCancelled notifies the member their slots have been released.
func (s *Service) BookingCancelled(ctx context.Context, evt events.BookingCancelledV1) {
	if s.email == nil || evt.MemberEmail == "" {
		return
	}
	subject := fmt.Sprintf("Booking cancelled: %s on %s", evt.AnusthanName, evt.Date)
	body := fmt.Sprintf(`Namaste,

Your booking for %s on %s at %s has been cancelled and the slot released.

If a payment was made, the office will be in touch about your refund.

Hari Om,
Sanatan Dharam Society`, evt.AnusthanName, evt.Date, evt.StartTime)

	if err := s.email.Send(ctx, EmailMessage{To: evt.MemberEmail, Subject: subject, Body: body}); err != nil {
		s.metrics.ObserveNotify("email", "error")
		s.logger.Error("failed to send cancellation email", "error", err, "booking_id", evt.BookingID)
		return
	}
	s.metrics.ObserveNotify("email", "ok")
}
