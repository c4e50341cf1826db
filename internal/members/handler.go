package members

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mandirseva/mandir-platform/internal/identity"
	"github.com/mandirseva/mandir-platform/pkg/logging"
)

// Reader is the lookup surface the handler needs.
type Reader interface {
	GetByID(ctx context.Context, id string) (*Member, error)
	GetByEmail(ctx context.Context, email string) (*Member, error)
}

// Writer persists member records.
type Writer interface {
	Put(ctx context.Context, m *Member) error
}

// Updater pushes attribute changes to the identity provider.
type Updater interface {
	Update(ctx context.Context, email string, attrs map[string]string) error
}

// Handler serves member profile endpoints. All routes sit behind the
// authentication middleware; callers may only read and write their own
// record unless they hold the admin group.
type Handler struct {
	store      Reader
	writer     Writer
	updater    Updater
	adminGroup string
	logger     *logging.Logger
}

// NewHandler creates a members handler.
func NewHandler(store Reader, writer Writer, updater Updater, adminGroup string, logger *logging.Logger) *Handler {
	if store == nil || writer == nil {
		panic("members: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, writer: writer, updater: updater, adminGroup: adminGroup, logger: logger}
}

func (h *Handler) canAccess(sess *identity.Session, email string) bool {
	if sess == nil {
		return false
	}
	if h.adminGroup != "" && sess.InGroup(h.adminGroup) {
		return true
	}
	return sess.Email != "" && strings.EqualFold(sess.Email, email)
}

// GetMember handles GET /members?email=.
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		http.Error(w, `{"error":"email query parameter is required"}`, http.StatusBadRequest)
		return
	}
	sess, _ := identity.FromContext(r.Context())
	if !h.canAccess(sess, email) {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return
	}

	m, err := h.store.GetByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			http.Error(w, `{"error":"member not found"}`, http.StatusNotFound)
			return
		}
		h.logger.Error("failed to fetch member", "error", err)
		http.Error(w, `{"error":"failed to fetch member"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// UpdateMember handles PUT /members/{id}.
func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			http.Error(w, `{"error":"member not found"}`, http.StatusNotFound)
			return
		}
		h.logger.Error("failed to fetch member", "error", err)
		http.Error(w, `{"error":"failed to fetch member"}`, http.StatusInternalServerError)
		return
	}

	sess, _ := identity.FromContext(r.Context())
	if !h.canAccess(sess, existing.Email) {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return
	}

	var update Member
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	// Identity and membership tier are not self-service.
	update.ID = existing.ID
	update.Email = existing.Email
	if h.adminGroup == "" || sess == nil || !sess.InGroup(h.adminGroup) {
		update.MembershipCategory = existing.MembershipCategory
		update.ReferenceNo = existing.ReferenceNo
	}

	if err := h.writer.Put(r.Context(), &update); err != nil {
		h.logger.Error("failed to update member", "error", err, "member_id", id)
		http.Error(w, `{"error":"failed to update member"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, &update)
}

// UpdateUserAttributes handles PATCH /users/{email}/attributes.
func (h *Handler) UpdateUserAttributes(w http.ResponseWriter, r *http.Request) {
	if h.updater == nil {
		http.Error(w, `{"error":"attribute updates not configured"}`, http.StatusServiceUnavailable)
		return
	}
	email := chi.URLParam(r, "email")
	sess, _ := identity.FromContext(r.Context())
	if !h.canAccess(sess, email) {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return
	}

	var body struct {
		Attributes map[string]string `json:"attributes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Attributes) == 0 {
		http.Error(w, `{"error":"attributes object is required"}`, http.StatusBadRequest)
		return
	}

	if err := h.updater.Update(r.Context(), email, body.Attributes); err != nil {
		h.logger.Error("failed to update user attributes", "error", err, "email", email)
		http.Error(w, `{"error":"failed to update attributes"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
