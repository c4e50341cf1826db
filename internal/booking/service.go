package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mandirseva/mandir-platform/internal/catalog"
	"github.com/mandirseva/mandir-platform/internal/events"
	"github.com/mandirseva/mandir-platform/internal/identity"
	"github.com/mandirseva/mandir-platform/internal/members"
	"github.com/mandirseva/mandir-platform/internal/observability/metrics"
	"github.com/mandirseva/mandir-platform/internal/payments"
	"github.com/mandirseva/mandir-platform/pkg/logging"
)

var bookingTracer = otel.Tracer("mandir.internal.booking")

var (
	// ErrForbidden indicates the caller does not own the booking.
	ErrForbidden = errors.New("booking: caller may not access this booking")
	// ErrTooLateToCancel indicates the cancellation notice window has passed.
	ErrTooLateToCancel = errors.New("booking: cancellation window has closed")
	// ErrAlreadyCancelled indicates the booking no longer holds its slots.
	ErrAlreadyCancelled = errors.New("booking: booking is already cancelled")
	// ErrAlreadyCompleted indicates the ceremony has already taken place.
	ErrAlreadyCompleted = errors.New("booking: booking is already completed")
	// ErrAlreadyPaid indicates payment has already been captured.
	ErrAlreadyPaid = errors.New("booking: booking is already paid")
	// ErrPaymentNotSucceeded indicates the payment intent has not completed.
	ErrPaymentNotSucceeded = errors.New("booking: payment has not succeeded")
	// ErrValidation wraps bad client input.
	ErrValidation = errors.New("booking: invalid request")
)

type bookingStore interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	ListByDate(ctx context.Context, date string) ([]Booking, error)
	ListByMember(ctx context.Context, email string) ([]Booking, error)
	SetPayment(ctx context.Context, id string, status Status, payment PaymentStatus, intentID string) error
	Cancel(ctx context.Context, b *Booking) error
}

type serviceCatalog interface {
	GetByID(ctx context.Context, id string) (*catalog.Service, error)
	CleaningFeeCents(ctx context.Context) (int64, error)
}

type memberDirectory interface {
	GetByEmail(ctx context.Context, email string) (*members.Member, error)
}

type intentClient interface {
	CreateIntent(ctx context.Context, params payments.CreateIntentParams) (*payments.Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*payments.Intent, error)
}

// EventPublisher emits booking lifecycle events for the notify worker.
type EventPublisher interface {
	BookingConfirmed(ctx context.Context, ev events.BookingConfirmedV1) error
	BookingCancelled(ctx context.Context, ev events.BookingCancelledV1) error
}

// Settings carries the temple's booking policy knobs.
type Settings struct {
	OpenHour           int
	CloseHour          int
	CleaningFeeMinimum int
	CancelNoticeHours  int
	LifeMemberGroup    string
	AdminGroup         string
	Location           *time.Location
}

// CreateRequest is the client's booking submission. All pricing fields are
// deliberately absent; the server computes them.
type CreateRequest struct {
	ServiceID      string `json:"serviceId"`
	Date           string `json:"date"`
	StartTime      string `json:"startTime"`
	NumberOfPeople int    `json:"numberOfPeople"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Notes          string `json:"notes"`
}

// Service owns the booking lifecycle: quoting, slot allocation, payment
// state and cancellation.
type Service struct {
	store    bookingStore
	catalog  serviceCatalog
	members  memberDirectory
	payments intentClient
	events   EventPublisher
	settings Settings
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// NewService constructs a booking service.
func NewService(store bookingStore, cat serviceCatalog, dir memberDirectory, pay intentClient, pub EventPublisher, settings Settings, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if store == nil {
		panic("booking: store required")
	}
	if cat == nil {
		panic("booking: catalog required")
	}
	if settings.Location == nil {
		settings.Location = time.Local
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:    store,
		catalog:  cat,
		members:  dir,
		payments: pay,
		events:   pub,
		settings: settings,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the time source (for testing).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) isAdmin(sess *identity.Session) bool {
	return sess != nil && s.settings.AdminGroup != "" && sess.InGroup(s.settings.AdminGroup)
}

func (s *Service) canAccess(sess *identity.Session, ownerEmail string) bool {
	if s.isAdmin(sess) {
		return true
	}
	return sess != nil && sess.Email != "" && strings.EqualFold(sess.Email, ownerEmail)
}

// isLifeMember ORs the member record with the identity-provider group so a
// stale table or a stale token alone cannot deny the discount.
func (s *Service) isLifeMember(ctx context.Context, sess *identity.Session) bool {
	if sess == nil {
		return false
	}
	if s.settings.LifeMemberGroup != "" && sess.InGroup(s.settings.LifeMemberGroup) {
		return true
	}
	if s.members == nil || sess.Email == "" {
		return false
	}
	m, err := s.members.GetByEmail(ctx, sess.Email)
	if err != nil {
		if !errors.Is(err, members.ErrMemberNotFound) {
			s.logger.Warn("member lookup failed during pricing", "error", err, "email", sess.Email)
		}
		return false
	}
	return m.IsLife()
}

// Create validates the request, prices it server-side and reserves the
// slots. The booking starts life pending and unpaid.
func (s *Service) Create(ctx context.Context, req CreateRequest, sess *identity.Session) (*Booking, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("mandir.service_id", req.ServiceID),
		attribute.String("mandir.date", req.Date),
	)

	if sess == nil || sess.Email == "" {
		return nil, ErrForbidden
	}
	if err := s.validateCreate(req); err != nil {
		return nil, err
	}

	svc, err := s.catalog.GetByID(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, catalog.ErrServiceNotFound) {
			return nil, fmt.Errorf("%w: unknown service %q", ErrValidation, req.ServiceID)
		}
		return nil, err
	}

	if svc.SlotBookingRequired() {
		if err := s.validateSlot(req, svc.DurationHours); err != nil {
			return nil, err
		}
	}

	quote, err := s.quote(ctx, svc, sess, req.NumberOfPeople)
	if err != nil {
		return nil, err
	}

	b := &Booking{
		ID:               "bkg_" + uuid.New().String(),
		ServiceID:        svc.ID,
		AnusthanName:     svc.AnusthanName,
		MemberEmail:      strings.ToLower(sess.Email),
		Name:             strings.TrimSpace(req.Name),
		Phone:            strings.TrimSpace(req.Phone),
		Date:             req.Date,
		StartTime:        req.StartTime,
		DurationHours:    svc.DurationHours,
		NumberOfPeople:   req.NumberOfPeople,
		RequiresSlot:     svc.SlotBookingRequired(),
		Notes:            strings.TrimSpace(req.Notes),
		IsLifeMember:     quote.LifeMember,
		BaseAmountCents:  quote.BaseAmountCents,
		DiscountCents:    quote.DiscountCents,
		CleaningFeeCents: quote.CleaningFeeCents,
		TotalAmountCents: quote.TotalAmountCents,
		Status:           StatusPending,
		PaymentStatus:    PaymentUnpaid,
	}

	if err := s.store.Create(ctx, b); err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking("create", "error")
		return nil, err
	}

	s.metrics.ObserveBooking("create", "ok")
	s.logger.Info("booking created",
		"booking_id", b.ID, "service_id", b.ServiceID, "date", b.Date,
		"start_time", b.StartTime, "total_cents", b.TotalAmountCents, "life_member", b.IsLifeMember)
	return b, nil
}

func (s *Service) validateCreate(req CreateRequest) error {
	if req.ServiceID == "" {
		return fmt.Errorf("%w: serviceId is required", ErrValidation)
	}
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if req.NumberOfPeople < 1 {
		return fmt.Errorf("%w: numberOfPeople must be at least 1", ErrValidation)
	}
	if _, err := time.ParseInLocation("2006-01-02", req.Date, s.settings.Location); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	return nil
}

func (s *Service) validateSlot(req CreateRequest, durationHours int) error {
	hour, ok := parseHour(req.StartTime)
	if !ok {
		return fmt.Errorf("%w: startTime must be HH:MM", ErrValidation)
	}
	if hour < s.settings.OpenHour || hour+durationHours > s.settings.CloseHour {
		return fmt.Errorf("%w: ceremony must run between %02d:00 and %02d:00", ErrValidation, s.settings.OpenHour, s.settings.CloseHour)
	}
	start, err := time.ParseInLocation("2006-01-02 15:04", req.Date+" "+req.StartTime, s.settings.Location)
	if err != nil {
		return fmt.Errorf("%w: invalid date or startTime", ErrValidation)
	}
	if start.Before(s.now()) {
		return fmt.Errorf("%w: booking must be in the future", ErrValidation)
	}
	return nil
}

func (s *Service) quote(ctx context.Context, svc *catalog.Service, sess *identity.Session, people int) (Quote, error) {
	life := s.isLifeMember(ctx, sess)
	var fee int64
	if people > s.settings.CleaningFeeMinimum {
		var err error
		fee, err = s.catalog.CleaningFeeCents(ctx)
		if err != nil {
			return Quote{}, fmt.Errorf("booking: cleaning fee unavailable: %w", err)
		}
	}
	return ComputeQuote(svc.AmountCents, life, people, s.settings.CleaningFeeMinimum, fee), nil
}

// PreviewQuote prices a prospective booking without reserving anything.
func (s *Service) PreviewQuote(ctx context.Context, serviceID string, numberOfPeople int, sess *identity.Session) (Quote, error) {
	if numberOfPeople < 1 {
		return Quote{}, fmt.Errorf("%w: numberOfPeople must be at least 1", ErrValidation)
	}
	svc, err := s.catalog.GetByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, catalog.ErrServiceNotFound) {
			return Quote{}, fmt.Errorf("%w: unknown service %q", ErrValidation, serviceID)
		}
		return Quote{}, err
	}
	return s.quote(ctx, svc, sess, numberOfPeople)
}

// AvailableSlots lists open start times for a service on a given day.
func (s *Service) AvailableSlots(ctx context.Context, serviceID, date string) ([]Slot, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.available_slots")
	defer span.End()

	if _, err := time.ParseInLocation("2006-01-02", date, s.settings.Location); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	svc, err := s.catalog.GetByID(ctx, serviceID)
	if err != nil {
		if errors.Is(err, catalog.ErrServiceNotFound) {
			return nil, fmt.Errorf("%w: unknown service %q", ErrValidation, serviceID)
		}
		return nil, err
	}

	start := time.Now()
	existing, err := s.store.ListByDate(ctx, date)
	s.metrics.ObserveSlotLatency(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	openHour := s.settings.OpenHour
	// Same-day queries only offer hours that have not already begun.
	if date == s.now().In(s.settings.Location).Format("2006-01-02") {
		if h := s.now().In(s.settings.Location).Hour() + 1; h > openHour {
			openHour = h
		}
	}
	return AvailableSlots(openHour, s.settings.CloseHour, svc.DurationHours, existing), nil
}

// GetByID fetches a booking the caller is allowed to see.
func (s *Service) GetByID(ctx context.Context, id string, sess *identity.Session) (*Booking, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canAccess(sess, b.MemberEmail) {
		return nil, ErrForbidden
	}
	return b, nil
}

// ListByMember returns the member's bookings, newest first.
func (s *Service) ListByMember(ctx context.Context, email string, sess *identity.Session) ([]Booking, error) {
	if !s.canAccess(sess, email) {
		return nil, ErrForbidden
	}
	return s.store.ListByMember(ctx, strings.ToLower(email))
}

// CreatePaymentIntent opens a Stripe intent for the booking's server-side
// total. The client never supplies an amount.
func (s *Service) CreatePaymentIntent(ctx context.Context, bookingID string, sess *identity.Session) (*payments.Intent, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.create_payment_intent")
	defer span.End()
	span.SetAttributes(attribute.String("mandir.booking_id", bookingID))

	if s.payments == nil {
		return nil, errors.New("booking: payments not configured")
	}
	b, err := s.GetByID(ctx, bookingID, sess)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus == PaymentPaid {
		return nil, ErrAlreadyPaid
	}
	if b.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}

	intent, err := s.payments.CreateIntent(ctx, payments.CreateIntentParams{
		AmountCents: b.TotalAmountCents,
		Currency:    "aud",
		Description: b.AnusthanName + " on " + b.Date,
		BookingID:   b.ID,
		Email:       b.MemberEmail,
	})
	if err != nil {
		span.RecordError(err)
		s.metrics.ObservePayment("create_intent", "error")
		return nil, err
	}

	if err := s.store.SetPayment(ctx, b.ID, b.Status, b.PaymentStatus, intent.ID); err != nil {
		return nil, err
	}
	s.metrics.ObservePayment("create_intent", "ok")
	return intent, nil
}

// ConfirmPayment verifies the intent with Stripe and, on success, confirms
// the booking and emits the confirmation event. Notification delivery is
// best effort; a dead queue never un-confirms a paid booking.
func (s *Service) ConfirmPayment(ctx context.Context, bookingID, intentID string, sess *identity.Session) (*Booking, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.confirm_payment")
	defer span.End()
	span.SetAttributes(
		attribute.String("mandir.booking_id", bookingID),
		attribute.String("mandir.intent_id", intentID),
	)

	if s.payments == nil {
		return nil, errors.New("booking: payments not configured")
	}
	b, err := s.GetByID(ctx, bookingID, sess)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus == PaymentPaid {
		return b, nil
	}
	// Only the intent recorded at create-payment-intent time may confirm the
	// booking; a succeeded intent from another booking proves nothing here.
	if b.PaymentIntentID == "" || b.PaymentIntentID != intentID {
		s.metrics.ObservePayment("confirm", "intent_mismatch")
		return nil, fmt.Errorf("%w: payment intent is not associated with this booking", ErrValidation)
	}

	intent, err := s.payments.RetrieveIntent(ctx, intentID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !intent.Succeeded() {
		s.metrics.ObservePayment("confirm", "not_succeeded")
		_ = s.store.SetPayment(ctx, b.ID, b.Status, PaymentFailed, intentID)
		return nil, ErrPaymentNotSucceeded
	}
	if intent.AmountCents != 0 && intent.AmountCents != b.TotalAmountCents {
		s.metrics.ObservePayment("confirm", "amount_mismatch")
		return nil, fmt.Errorf("booking: paid amount %d does not match booking total %d", intent.AmountCents, b.TotalAmountCents)
	}

	if err := s.store.SetPayment(ctx, b.ID, StatusConfirmed, PaymentPaid, intentID); err != nil {
		return nil, err
	}
	b.Status = StatusConfirmed
	b.PaymentStatus = PaymentPaid
	b.PaymentIntentID = intentID

	s.metrics.ObservePayment("confirm", "ok")
	s.metrics.ObserveBooking("confirm", "ok")
	s.logger.Info("booking confirmed", "booking_id", b.ID, "intent_id", intentID, "total_cents", b.TotalAmountCents)

	if s.events != nil {
		if err := s.events.BookingConfirmed(ctx, events.BookingConfirmedV1{
			BookingID:        b.ID,
			ServiceID:        b.ServiceID,
			AnusthanName:     b.AnusthanName,
			MemberEmail:      b.MemberEmail,
			Name:             b.Name,
			Phone:            b.Phone,
			Date:             b.Date,
			StartTime:        b.StartTime,
			TotalAmountCents: b.TotalAmountCents,
		}); err != nil {
			s.logger.Error("failed to publish booking confirmed event", "error", err, "booking_id", b.ID)
		}
	}
	return b, nil
}

// Cancel releases the booking's slots. Members must give the full notice
// period; admins may cancel at any time. Refunds are handled manually by
// the office.
func (s *Service) Cancel(ctx context.Context, bookingID string, sess *identity.Session) (*Booking, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("mandir.booking_id", bookingID))

	b, err := s.GetByID(ctx, bookingID, sess)
	if err != nil {
		return nil, err
	}
	if b.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	// Completed ceremonies are history; nobody cancels them, admins included.
	if b.Status == StatusCompleted {
		return nil, ErrAlreadyCompleted
	}

	if !s.isAdmin(sess) && b.RequiresSlot {
		startsAt, err := b.StartsAt(s.settings.Location)
		if err != nil {
			return nil, fmt.Errorf("booking: corrupt schedule on %s: %w", b.ID, err)
		}
		notice := time.Duration(s.settings.CancelNoticeHours) * time.Hour
		if startsAt.Sub(s.now()) < notice {
			s.metrics.ObserveBooking("cancel", "too_late")
			return nil, ErrTooLateToCancel
		}
	}

	if err := s.store.Cancel(ctx, b); err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking("cancel", "error")
		return nil, err
	}
	b.Status = StatusCancelled

	s.metrics.ObserveBooking("cancel", "ok")
	s.logger.Info("booking cancelled", "booking_id", b.ID, "date", b.Date, "start_time", b.StartTime)

	if s.events != nil {
		if err := s.events.BookingCancelled(ctx, events.BookingCancelledV1{
			BookingID:    b.ID,
			AnusthanName: b.AnusthanName,
			MemberEmail:  b.MemberEmail,
			Date:         b.Date,
			StartTime:    b.StartTime,
		}); err != nil {
			s.logger.Error("failed to publish booking cancelled event", "error", err, "booking_id", b.ID)
		}
	}
	return b, nil
}
