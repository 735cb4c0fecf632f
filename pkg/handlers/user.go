package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/shiksha-ai/study-engine/pkg/access"
	"github.com/shiksha-ai/study-engine/pkg/auth"
	"github.com/shiksha-ai/study-engine/pkg/models"
	"github.com/shiksha-ai/study-engine/pkg/store"
)

// UserHandler serves the authenticated user's own profile.
type UserHandler struct {
	ledger *access.Ledger
	store  store.DocumentStore
	logger *zap.Logger
}

// NewUserHandler wires the user profile endpoints.
func NewUserHandler(ledger *access.Ledger, st store.DocumentStore, logger *zap.Logger) *UserHandler {
	return &UserHandler{ledger: ledger, store: st, logger: logger.Named("user_handler")}
}

// RegisterRoutes registers the user routes. guard wraps each handler with
// user authentication.
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, guard func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/me", guard(h.Me))
	mux.HandleFunc("POST /api/me/auto-deduct", guard(h.EnableAutoDeduct))
}

// Me handles GET /api/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	_ = WriteJSON(w, http.StatusOK, user)
}

// EnableAutoDeduct handles POST /api/me/auto-deduct: opt in to silent credit
// charges for future paid content.
func (h *UserHandler) EnableAutoDeduct(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if err := h.ledger.EnableAutoDeduct(r.Context(), user); err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]bool{"autoDeduct": true})
}

func (h *UserHandler) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	id := auth.UserID(r.Context())
	user := &models.User{}
	found, err := store.GetTyped(r.Context(), h.store, store.UserKey(id), user)
	if err != nil {
		h.logger.Warn("User read failed", zap.String("user_id", id), zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "could not load user")
		return nil, false
	}
	if !found {
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", "no user document for "+id)
		return nil, false
	}
	return user, true
}
