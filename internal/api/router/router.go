package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mandirseva/mandir-platform/internal/booking"
	"github.com/mandirseva/mandir-platform/internal/catalog"
	"github.com/mandirseva/mandir-platform/internal/content"
	"github.com/mandirseva/mandir-platform/internal/donations"
	httpmiddleware "github.com/mandirseva/mandir-platform/internal/http/middleware"
	"github.com/mandirseva/mandir-platform/internal/members"
	"github.com/mandirseva/mandir-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	ContentHandler     *content.Handler
	CatalogHandler     *catalog.Handler
	BookingHandler     *booking.Handler
	MembersHandler     *members.Handler
	DonationsHandler   *donations.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Cognito auth config; when unset, authenticated routes reject everything.
	CognitoRegion     string
	CognitoUserPoolID string
	CognitoClientID   string
	AdminGroup        string
}

// New creates a Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	cognitoCfg := httpmiddleware.CognitoConfig{
		Region:     cfg.CognitoRegion,
		UserPoolID: cfg.CognitoUserPoolID,
		ClientID:   cfg.CognitoClientID,
	}

	// Public endpoints: site content, catalog, availability, health.
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		if cfg.ContentHandler != nil {
			public.Get("/content", cfg.ContentHandler.GetContent)
			public.Get("/content/homepage", cfg.ContentHandler.GetHomepage)
			public.Get("/content/featured", cfg.ContentHandler.GetFeatured)
		}
		if cfg.CatalogHandler != nil {
			public.Get("/services", cfg.CatalogHandler.ListServices)
		}
		if cfg.BookingHandler != nil {
			public.Get("/available-slots", cfg.BookingHandler.AvailableSlots)
		}
		if cfg.DonationsHandler != nil {
			public.Post("/donations/create-payment-intent", cfg.DonationsHandler.CreatePaymentIntent)
		}
	})

	// Member endpoints: any signed-in user, ownership enforced downstream.
	r.Group(func(authed chi.Router) {
		authed.Use(httpmiddleware.CognitoAuth(cognitoCfg))

		if cfg.BookingHandler != nil {
			authed.Route("/bookings", func(b chi.Router) {
				b.Get("/", cfg.BookingHandler.ListBookings)
				b.Post("/", cfg.BookingHandler.CreateBooking)
				b.Get("/quote", cfg.BookingHandler.PreviewQuote)
				b.Post("/create-payment-intent", cfg.BookingHandler.CreatePaymentIntent)
				b.Post("/payment-confirmed", cfg.BookingHandler.PaymentConfirmed)
				b.Get("/{id}", cfg.BookingHandler.GetBooking)
				b.Put("/{id}", cfg.BookingHandler.UpdateBooking)
			})
		}
		if cfg.MembersHandler != nil {
			authed.Get("/members", cfg.MembersHandler.GetMember)
			authed.Put("/members/{id}", cfg.MembersHandler.UpdateMember)
			authed.Patch("/users/{email}/attributes", cfg.MembersHandler.UpdateUserAttributes)
		}
	})

	// Admin endpoints: content management behind the admin group.
	if cfg.ContentHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.CognitoAuth(cognitoCfg))
			admin.Use(httpmiddleware.RequireGroup(cfg.AdminGroup))

			admin.Post("/content", cfg.ContentHandler.CreateContent)
			admin.Put("/content/homepage", cfg.ContentHandler.PutHomepage)
			admin.Put("/content/{id}", cfg.ContentHandler.UpdateContent)
			admin.Delete("/content/{id}", cfg.ContentHandler.DeleteContent)
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
