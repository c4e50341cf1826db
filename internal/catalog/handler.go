package catalog

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mandirseva/mandir-platform/pkg/logging"
)

// Lister is the read surface the handler needs.
type Lister interface {
	List(ctx context.Context) ([]Service, error)
}

// Handler serves the public anusthan catalog.
type Handler struct {
	store  Lister
	logger *logging.Logger
}

// NewHandler creates a catalog handler.
func NewHandler(store Lister, logger *logging.Logger) *Handler {
	if store == nil {
		panic("catalog: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// ListServices handles GET /services.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list services", "error", err)
		http.Error(w, `{"error":"failed to load services"}`, http.StatusInternalServerError)
		return
	}
	if services == nil {
		services = []Service{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(services)
}
