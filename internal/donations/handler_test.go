package donations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mandirseva/mandir-platform/internal/payments"
	"github.com/mandirseva/mandir-platform/pkg/logging"
)

type fakeIntents struct {
	lastParams payments.CreateIntentParams
	calls      int
}

func (f *fakeIntents) CreateIntent(_ context.Context, params payments.CreateIntentParams) (*payments.Intent, error) {
	f.calls++
	f.lastParams = params
	return &payments.Intent{ID: "pi_don_1", ClientSecret: "pi_don_1_secret", Status: "requires_payment_method"}, nil
}

func TestCreateDonationIntent(t *testing.T) {
	pay := &fakeIntents{}
	h := NewHandler(pay, logging.Default())

	rec := httptest.NewRecorder()
	body := `{"amountCents":5000,"name":"Priya","email":"priya@example.org","purpose":"Annadanam"}`
	h.CreatePaymentIntent(rec, httptest.NewRequest(http.MethodPost, "/donations/create-payment-intent", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["clientSecret"] != "pi_don_1_secret" {
		t.Errorf("expected client secret passthrough, got %q", resp["clientSecret"])
	}
	if pay.lastParams.AmountCents != 5000 {
		t.Errorf("expected amount 5000, got %d", pay.lastParams.AmountCents)
	}
	if pay.lastParams.Description != "Donation: Annadanam" {
		t.Errorf("unexpected description %q", pay.lastParams.Description)
	}
	if pay.lastParams.Email != "priya@example.org" {
		t.Errorf("unexpected receipt email %q", pay.lastParams.Email)
	}
}

func TestDonationBelowMinimumRejected(t *testing.T) {
	pay := &fakeIntents{}
	h := NewHandler(pay, logging.Default())

	rec := httptest.NewRecorder()
	h.CreatePaymentIntent(rec, httptest.NewRequest(http.MethodPost, "/donations/create-payment-intent", strings.NewReader(`{"amountCents":50}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if pay.calls != 0 {
		t.Error("payment service should not be called for rejected amounts")
	}
}

func TestDonationInvalidBodyRejected(t *testing.T) {
	pay := &fakeIntents{}
	h := NewHandler(pay, logging.Default())

	rec := httptest.NewRecorder()
	h.CreatePaymentIntent(rec, httptest.NewRequest(http.MethodPost, "/donations/create-payment-intent", strings.NewReader(`not json`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
