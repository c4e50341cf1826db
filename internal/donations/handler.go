package donations

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mandirseva/mandir-platform/internal/payments"
	"github.com/mandirseva/mandir-platform/pkg/logging"
)

// Donations go straight to a payment intent; there is no stored record on
// this side, the Stripe dashboard is the ledger the office reconciles from.

const minDonationCents = 100

type intentCreator interface {
	CreateIntent(ctx context.Context, params payments.CreateIntentParams) (*payments.Intent, error)
}

// Handler serves the public donation endpoint.
type Handler struct {
	pay    intentCreator
	logger *logging.Logger
}

// NewHandler creates a donations handler.
func NewHandler(pay intentCreator, logger *logging.Logger) *Handler {
	if pay == nil {
		panic("donations: payment service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{pay: pay, logger: logger}
}

type createRequest struct {
	AmountCents int64  `json:"amountCents"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Purpose     string `json:"purpose"`
}

// CreatePaymentIntent handles POST /donations/create-payment-intent. The
// endpoint is public; donors do not need an account.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.AmountCents < minDonationCents {
		http.Error(w, `{"error":"donation must be at least $1.00"}`, http.StatusBadRequest)
		return
	}

	description := "Donation"
	if purpose := strings.TrimSpace(req.Purpose); purpose != "" {
		description = "Donation: " + purpose
	}

	intent, err := h.pay.CreateIntent(r.Context(), payments.CreateIntentParams{
		AmountCents: req.AmountCents,
		Currency:    "aud",
		Description: description,
		Email:       strings.TrimSpace(req.Email),
	})
	if err != nil {
		h.logger.Error("failed to create donation intent", "error", err, "amount_cents", req.AmountCents)
		http.Error(w, `{"error":"failed to start donation"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("donation intent created", "intent_id", intent.ID, "amount_cents", req.AmountCents)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"paymentIntentId": intent.ID,
		"clientSecret":    intent.ClientSecret,
	})
}
