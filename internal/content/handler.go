package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mandirseva/mandir-platform/pkg/logging"
)

// Writer is the write surface of the content store, used by admin CRUD.
type Writer interface {
	Put(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id string) error
}

// Invalidator drops cache entries after admin writes.
type Invalidator interface {
	Invalidate(ctx context.Context, id, contentType string)
}

// Handler serves the public content read API and the admin CRUD API.
type Handler struct {
	resolver    *Resolver
	writer      Writer
	invalidator Invalidator
	logger      *logging.Logger
}

// NewHandler creates a content handler. The invalidator is optional (nil
// when the cache is disabled).
func NewHandler(resolver *Resolver, writer Writer, invalidator Invalidator, logger *logging.Logger) *Handler {
	if resolver == nil {
		panic("content: resolver required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		resolver:    resolver,
		writer:      writer,
		invalidator: invalidator,
		logger:      logger,
	}
}

// GetContent handles GET /content?type=<category>[&featured=true].
// The response is always a JSON array, fallback-backed, never an error body.
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	contentType := strings.TrimSpace(r.URL.Query().Get("type"))
	if contentType == "" {
		http.Error(w, `{"error":"type query parameter required"}`, http.StatusBadRequest)
		return
	}
	featured := r.URL.Query().Get("featured") == "true"

	var items []Item
	if IsListType(contentType) {
		items = h.resolver.ByType(r.Context(), contentType, featured)
	} else {
		items = []Item{h.resolver.single(r.Context(), contentType)}
	}

	writeJSON(w, http.StatusOK, items)
}

// GetHomepage handles GET /homepage, returning the hero/counters document.
func (h *Handler) GetHomepage(w http.ResponseWriter, r *http.Request) {
	item := h.resolver.Homepage(r.Context())
	writeJSON(w, http.StatusOK, item.Data)
}

// GetFeatured handles GET /content/featured, the homepage strip aggregator.
func (h *Handler) GetFeatured(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.resolver.Featured(r.Context()))
}

type upsertRequest struct {
	ID   string                 `json:"id"`
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// CreateContent handles POST /content (admin).
func (h *Handler) CreateContent(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Type == "" {
		http.Error(w, `{"error":"type is required"}`, http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		req.ID = fmt.Sprintf("%s_%s", idPrefix(req.Type), uuid.NewString())
	}

	item := &Item{ID: req.ID, Type: req.Type, Data: req.Data}
	if err := h.writer.Put(r.Context(), item); err != nil {
		h.logger.Error("failed to create content", "error", err, "id", req.ID)
		http.Error(w, `{"error":"failed to create content"}`, http.StatusInternalServerError)
		return
	}
	h.invalidate(r.Context(), item.ID, item.Type)

	writeJSON(w, http.StatusCreated, item)
}

// UpdateContent handles PUT /content/{id} (admin).
func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, `{"error":"missing content id"}`, http.StatusBadRequest)
		return
	}
	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Type == "" {
		http.Error(w, `{"error":"type is required"}`, http.StatusBadRequest)
		return
	}

	item := &Item{ID: id, Type: req.Type, Data: req.Data}
	if err := h.writer.Put(r.Context(), item); err != nil {
		h.logger.Error("failed to update content", "error", err, "id", id)
		http.Error(w, `{"error":"failed to update content"}`, http.StatusInternalServerError)
		return
	}
	h.invalidate(r.Context(), id, req.Type)

	writeJSON(w, http.StatusOK, item)
}

// DeleteContent handles DELETE /content/{id} (admin). The optional type
// query parameter lets the handler invalidate the category cache.
func (h *Handler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, `{"error":"missing content id"}`, http.StatusBadRequest)
		return
	}
	if err := h.writer.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete content", "error", err, "id", id)
		http.Error(w, `{"error":"failed to delete content"}`, http.StatusInternalServerError)
		return
	}
	h.invalidate(r.Context(), id, r.URL.Query().Get("type"))

	w.WriteHeader(http.StatusNoContent)
}

// PutHomepage handles PUT /homepage (admin), replacing the hero/counters
// document wholesale.
func (h *Handler) PutHomepage(w http.ResponseWriter, r *http.Request) {
	var data map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	item := &Item{ID: TypeHomepage, Type: TypeHomepage, Data: data}
	if err := h.writer.Put(r.Context(), item); err != nil {
		h.logger.Error("failed to update homepage", "error", err)
		http.Error(w, `{"error":"failed to update homepage"}`, http.StatusInternalServerError)
		return
	}
	h.invalidate(r.Context(), TypeHomepage, TypeHomepage)

	writeJSON(w, http.StatusOK, item)
}

// idPrefix follows the id convention of the content table: news_<id>,
// event_<id>, project_<id>, faq_<id>.
func idPrefix(contentType string) string {
	if contentType == TypeNews {
		return TypeNews
	}
	return strings.TrimSuffix(contentType, "s")
}

func (h *Handler) invalidate(ctx context.Context, id, contentType string) {
	if h.invalidator != nil {
		h.invalidator.Invalidate(ctx, id, contentType)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
