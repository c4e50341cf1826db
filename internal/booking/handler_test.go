package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/mandirseva/mandir-platform/internal/identity"
	"github.com/mandirseva/mandir-platform/internal/payments"
	"github.com/mandirseva/mandir-platform/pkg/logging"
)

type fakeBookingService struct {
	createResult  *Booking
	createErr     error
	getResult     *Booking
	getErr        error
	listResult    []Booking
	listErr       error
	slots         []Slot
	slotsErr      error
	quote         Quote
	quoteErr      error
	intent        *payments.Intent
	intentErr     error
	confirmResult *Booking
	confirmErr    error
	cancelResult  *Booking
	cancelErr     error
}

func (f *fakeBookingService) Create(_ context.Context, _ CreateRequest, _ *identity.Session) (*Booking, error) {
	return f.createResult, f.createErr
}

func (f *fakeBookingService) GetByID(_ context.Context, _ string, _ *identity.Session) (*Booking, error) {
	return f.getResult, f.getErr
}

func (f *fakeBookingService) ListByMember(_ context.Context, _ string, _ *identity.Session) ([]Booking, error) {
	return f.listResult, f.listErr
}

func (f *fakeBookingService) AvailableSlots(_ context.Context, _, _ string) ([]Slot, error) {
	return f.slots, f.slotsErr
}

func (f *fakeBookingService) PreviewQuote(_ context.Context, _ string, _ int, _ *identity.Session) (Quote, error) {
	return f.quote, f.quoteErr
}

func (f *fakeBookingService) CreatePaymentIntent(_ context.Context, _ string, _ *identity.Session) (*payments.Intent, error) {
	return f.intent, f.intentErr
}

func (f *fakeBookingService) ConfirmPayment(_ context.Context, _, _ string, _ *identity.Session) (*Booking, error) {
	return f.confirmResult, f.confirmErr
}

func (f *fakeBookingService) Cancel(_ context.Context, _ string, _ *identity.Session) (*Booking, error) {
	return f.cancelResult, f.cancelErr
}

func bookingRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/bookings", h.ListBookings)
	r.Post("/bookings", h.CreateBooking)
	r.Get("/bookings/quote", h.PreviewQuote)
	r.Post("/bookings/create-payment-intent", h.CreatePaymentIntent)
	r.Post("/bookings/payment-confirmed", h.PaymentConfirmed)
	r.Get("/bookings/{id}", h.GetBooking)
	r.Put("/bookings/{id}", h.UpdateBooking)
	r.Get("/available-slots", h.AvailableSlots)
	return r
}

func authed(r *http.Request) *http.Request {
	sess := identity.NewSession("priya@example.org", "priya", nil)
	return r.WithContext(identity.WithSession(r.Context(), sess))
}

func TestCreateBookingReturns201(t *testing.T) {
	svc := &fakeBookingService{createResult: &Booking{ID: "bkg_1", TotalAmountCents: 21050}}
	h := NewHandler(svc, logging.Default())

	body := `{"serviceId":"satyanarayan-katha","date":"2026-09-12","startTime":"10:00","numberOfPeople":22,"name":"Priya"}`
	rec := httptest.NewRecorder()
	bookingRouter(h).ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body))))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var got Booking
	json.NewDecoder(rec.Body).Decode(&got)
	if got.TotalAmountCents != 21050 {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestCreateBookingSlotConflictIs409(t *testing.T) {
	h := NewHandler(&fakeBookingService{createErr: ErrSlotTaken}, logging.Default())
	body := `{"serviceId":"x"}`
	rec := httptest.NewRecorder()
	bookingRouter(h).ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body))))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestCreateBookingValidationIs400(t *testing.T) {
	h := NewHandler(&fakeBookingService{createErr: ErrValidation}, logging.Default())
	rec := httptest.NewRecorder()
	bookingRouter(h).ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(`{}`))))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListBookingsDefaultsToSessionEmail(t *testing.T) {
	h := NewHandler(&fakeBookingService{listResult: []Booking{{ID: "bkg_1"}}}, logging.Default())
	rec := httptest.NewRecorder()
	bookingRouter(h).ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/bookings", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "bkg_1") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestListBookingsForbiddenIs403(t *testing.T) {
	h := NewHandler(&fakeBookingService{listErr: ErrForbidden}, logging.Default())
	rec := httptest.NewRecorder()
	bookingRouter(h).ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/bookings?email=other@example.org", nil)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestUpdateBookingOnlySupportsCancellation(t *testing.T) {
	h := NewHandler(&fakeBookingService{}, logging.Default())
	rec := httptest.NewRecorder()
	bookingRouter(h).ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPut, "/bookings/bkg_1", strings.NewReader(`{"status":"completed"}`))))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateBookingLateCancellationIs409(t *testing.T) {
	h := NewHandler(&fakeBookingService{cancelErr: ErrTooLateToCancel}, logging.Default())
	rec := httptest.NewRecorder()
	bookingRouter(h).ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPut, "/bookings/bkg_1", strings.NewReader(`{"status":"cancelled"}`))))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "48 hours") {
		t.Fatalf("expected notice message, got %s", rec.Body.String())
	}
}

func TestAvailableSlotsRequiresParams(t *testing.T) {
	h := NewHandler(&fakeBookingService{}, logging.Default())
	rec := httptest.NewRecorder()
	bookingRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/available-slots?serviceId=x", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAvailableSlotsReturnsSlots(t *testing.T) {
	h := NewHandler(&fakeBookingService{slots: []Slot{{StartTime: "10:00", Display: "10:00 AM"}}}, logging.Default())
	rec := httptest.NewRecorder()
	bookingRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/available-slots?serviceId=x&date=2026-09-12", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "10:00 AM") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestCreatePaymentIntentReturnsClientSecret(t *testing.T) {
	h := NewHandler(&fakeBookingService{intent: &payments.Intent{ID: "pi_1", ClientSecret: "pi_1_secret"}}, logging.Default())
	rec := httptest.NewRecorder()
	bookingRouter(h).ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/bookings/create-payment-intent", strings.NewReader(`{"bookingId":"bkg_1"}`))))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "pi_1_secret") {
		t.Fatalf("client secret missing: %s", rec.Body.String())
	}
}

func TestPaymentConfirmedRequiresBothIDs(t *testing.T) {
	h := NewHandler(&fakeBookingService{}, logging.Default())
	rec := httptest.NewRecorder()
	bookingRouter(h).ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/bookings/payment-confirmed", strings.NewReader(`{"bookingId":"bkg_1"}`))))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPaymentConfirmedUnfinishedIs402(t *testing.T) {
	h := NewHandler(&fakeBookingService{confirmErr: ErrPaymentNotSucceeded}, logging.Default())
	rec := httptest.NewRecorder()
	body := `{"bookingId":"bkg_1","paymentIntentId":"pi_1"}`
	bookingRouter(h).ServeHTTP(rec, authed(httptest.NewRequest(http.MethodPost, "/bookings/payment-confirmed", strings.NewReader(body))))
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", rec.Code)
	}
}
