package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mandirseva/mandir-platform/pkg/logging"
)

var stripeTracer = otel.Tracer("mandir.internal.payments.stripe")

// Intent is the subset of a Stripe PaymentIntent the platform cares about.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	AmountCents  int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Succeeded reports whether the charge completed.
func (i *Intent) Succeeded() bool {
	return i != nil && i.Status == "succeeded"
}

// CreateIntentParams describes the charge to create.
type CreateIntentParams struct {
	AmountCents int64
	Currency    string
	Description string
	BookingID   string
	Email       string
}

// StripeService creates and retrieves PaymentIntents against the Stripe
// REST API. Card collection happens in the browser with the client secret;
// the server only ever sees intent ids.
type StripeService struct {
	secretKey  string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *logging.Logger
	dryRun     bool
}

// NewStripeService creates a Stripe payment intent service.
func NewStripeService(secretKey string, logger *logging.Logger) *StripeService {
	if logger == nil {
		logger = logging.Default()
	}
	return &StripeService{
		secretKey:  secretKey,
		baseURL:    "https://api.stripe.com",
		apiVersion: "2024-12-18.acacia",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// WithBaseURL overrides the Stripe API base URL (for testing).
func (s *StripeService) WithBaseURL(baseURL string) *StripeService {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

// WithDryRun enables dry-run mode (returns fake intents without calling Stripe).
func (s *StripeService) WithDryRun(enabled bool) *StripeService {
	s.dryRun = enabled
	return s
}

// CreateIntent creates a PaymentIntent for the given amount.
func (s *StripeService) CreateIntent(ctx context.Context, params CreateIntentParams) (*Intent, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.create_payment_intent")
	defer span.End()
	span.SetAttributes(
		attribute.String("mandir.booking_id", params.BookingID),
		attribute.Int("mandir.amount_cents", int(params.AmountCents)),
	)

	if params.AmountCents <= 0 {
		return nil, fmt.Errorf("payments: amount must be positive, got %d", params.AmountCents)
	}
	currency := strings.ToLower(params.Currency)
	if currency == "" {
		currency = "aud"
	}

	if s.dryRun {
		fakeID := "pi_dryrun_" + uuid.New().String()[:8]
		s.logger.Info("stripe dry run: skipping payment intent creation",
			"booking_id", params.BookingID, "amount_cents", params.AmountCents)
		return &Intent{
			ID:           fakeID,
			ClientSecret: fakeID + "_secret_dryrun",
			Status:       "requires_payment_method",
			AmountCents:  params.AmountCents,
			Currency:     currency,
		}, nil
	}

	form := url.Values{}
	form.Set("amount", fmt.Sprintf("%d", params.AmountCents))
	form.Set("currency", currency)
	form.Set("automatic_payment_methods[enabled]", "true")
	if params.Description != "" {
		form.Set("description", params.Description)
	}
	if params.Email != "" {
		form.Set("receipt_email", params.Email)
	}
	form.Set("metadata[booking_id]", params.BookingID)

	var intent Intent
	if err := s.do(ctx, http.MethodPost, "/v1/payment_intents", form, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// RetrieveIntent fetches the current state of a PaymentIntent.
func (s *StripeService) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.retrieve_payment_intent")
	defer span.End()
	span.SetAttributes(attribute.String("mandir.intent_id", id))

	if id == "" {
		return nil, fmt.Errorf("payments: intent id required")
	}

	if s.dryRun {
		// Dry-run intents always read back as succeeded so the flow can be
		// exercised end to end without a Stripe account.
		return &Intent{ID: id, Status: "succeeded", Currency: "aud"}, nil
	}

	var intent Intent
	if err := s.do(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(id), nil, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (s *StripeService) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("payments: stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Stripe-Version", s.apiVersion)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payments: stripe http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("payments: stripe api status %d: %s", resp.StatusCode, readStripeError(resp.Body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("payments: stripe decode: %w", err)
	}
	return nil
}

// stripeErrorResponse represents a Stripe API error.
type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// readStripeError extracts the human message from an error response body.
func readStripeError(body io.Reader) string {
	data, err := io.ReadAll(body)
	if err != nil {
		return "unknown error"
	}
	var parsed stripeErrorResponse
	if json.Unmarshal(data, &parsed) == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return string(data)
}
