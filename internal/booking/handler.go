package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mandirseva/mandir-platform/internal/identity"
	"github.com/mandirseva/mandir-platform/internal/payments"
	"github.com/mandirseva/mandir-platform/pkg/logging"
)

// bookingService is the surface the handler drives.
type bookingService interface {
	Create(ctx context.Context, req CreateRequest, sess *identity.Session) (*Booking, error)
	GetByID(ctx context.Context, id string, sess *identity.Session) (*Booking, error)
	ListByMember(ctx context.Context, email string, sess *identity.Session) ([]Booking, error)
	AvailableSlots(ctx context.Context, serviceID, date string) ([]Slot, error)
	PreviewQuote(ctx context.Context, serviceID string, numberOfPeople int, sess *identity.Session) (Quote, error)
	CreatePaymentIntent(ctx context.Context, bookingID string, sess *identity.Session) (*payments.Intent, error)
	ConfirmPayment(ctx context.Context, bookingID, intentID string, sess *identity.Session) (*Booking, error)
	Cancel(ctx context.Context, bookingID string, sess *identity.Session) (*Booking, error)
}

// Handler exposes the booking API.
type Handler struct {
	svc    bookingService
	logger *logging.Logger
}

// NewHandler creates a booking handler.
func NewHandler(svc bookingService, logger *logging.Logger) *Handler {
	if svc == nil {
		panic("booking: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// CreateBooking handles POST /bookings.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	sess, _ := identity.FromContext(r.Context())

	b, err := h.svc.Create(r.Context(), req, sess)
	if err != nil {
		h.writeError(w, "failed to create booking", err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// ListBookings handles GET /bookings?email=.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	sess, _ := identity.FromContext(r.Context())
	email := r.URL.Query().Get("email")
	if email == "" && sess != nil {
		email = sess.Email
	}
	if email == "" {
		http.Error(w, `{"error":"email query parameter is required"}`, http.StatusBadRequest)
		return
	}

	bookings, err := h.svc.ListByMember(r.Context(), email, sess)
	if err != nil {
		h.writeError(w, "failed to list bookings", err)
		return
	}
	if bookings == nil {
		bookings = []Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

// GetBooking handles GET /bookings/{id}.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	sess, _ := identity.FromContext(r.Context())
	b, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"), sess)
	if err != nil {
		h.writeError(w, "failed to fetch booking", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// UpdateBooking handles PUT /bookings/{id}. Cancellation is the only
// client-driven transition; everything else moves through payments.
func (h *Handler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Status != StatusCancelled {
		http.Error(w, `{"error":"only cancellation is supported"}`, http.StatusBadRequest)
		return
	}

	sess, _ := identity.FromContext(r.Context())
	b, err := h.svc.Cancel(r.Context(), chi.URLParam(r, "id"), sess)
	if err != nil {
		h.writeError(w, "failed to cancel booking", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// AvailableSlots handles GET /available-slots?serviceId=&date=.
func (h *Handler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	serviceID := r.URL.Query().Get("serviceId")
	date := r.URL.Query().Get("date")
	if serviceID == "" || date == "" {
		http.Error(w, `{"error":"serviceId and date query parameters are required"}`, http.StatusBadRequest)
		return
	}

	slots, err := h.svc.AvailableSlots(r.Context(), serviceID, date)
	if err != nil {
		h.writeError(w, "failed to list slots", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"date": date, "slots": slots})
}

// PreviewQuote handles GET /bookings/quote?serviceId=&numberOfPeople=.
func (h *Handler) PreviewQuote(w http.ResponseWriter, r *http.Request) {
	serviceID := r.URL.Query().Get("serviceId")
	if serviceID == "" {
		http.Error(w, `{"error":"serviceId query parameter is required"}`, http.StatusBadRequest)
		return
	}
	people := 1
	if raw := r.URL.Query().Get("numberOfPeople"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, `{"error":"numberOfPeople must be a number"}`, http.StatusBadRequest)
			return
		}
		people = parsed
	}

	sess, _ := identity.FromContext(r.Context())
	quote, err := h.svc.PreviewQuote(r.Context(), serviceID, people, sess)
	if err != nil {
		h.writeError(w, "failed to compute quote", err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// CreatePaymentIntent handles POST /bookings/create-payment-intent.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookingID string `json:"bookingId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BookingID == "" {
		http.Error(w, `{"error":"bookingId is required"}`, http.StatusBadRequest)
		return
	}

	sess, _ := identity.FromContext(r.Context())
	intent, err := h.svc.CreatePaymentIntent(r.Context(), req.BookingID, sess)
	if err != nil {
		h.writeError(w, "failed to create payment intent", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"paymentIntentId": intent.ID,
		"clientSecret":    intent.ClientSecret,
	})
}

// PaymentConfirmed handles POST /bookings/payment-confirmed.
func (h *Handler) PaymentConfirmed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookingID       string `json:"bookingId"`
		PaymentIntentID string `json:"paymentIntentId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BookingID == "" || req.PaymentIntentID == "" {
		http.Error(w, `{"error":"bookingId and paymentIntentId are required"}`, http.StatusBadRequest)
		return
	}

	sess, _ := identity.FromContext(r.Context())
	b, err := h.svc.ConfirmPayment(r.Context(), req.BookingID, req.PaymentIntentID, sess)
	if err != nil {
		h.writeError(w, "failed to confirm payment", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// writeError maps service errors onto HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrBookingNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "booking not found"})
	case errors.Is(err, ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, ErrSlotTaken):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "slot already booked"})
	case errors.Is(err, ErrTooLateToCancel):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "cancellations require 48 hours notice"})
	case errors.Is(err, ErrAlreadyCancelled):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "booking is already cancelled"})
	case errors.Is(err, ErrAlreadyCompleted):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "booking is already completed"})
	case errors.Is(err, ErrAlreadyPaid):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "booking is already paid"})
	case errors.Is(err, ErrPaymentNotSucceeded):
		writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": "payment has not succeeded"})
	default:
		h.logger.Error(msg, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
