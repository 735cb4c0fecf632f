package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/shiksha-ai/study-engine/pkg/admin"
)

// AdminHandler exposes the natural-language admin agent.
type AdminHandler struct {
	agent    *admin.Agent
	registry *admin.Registry
	logger   *zap.Logger
}

// NewAdminHandler wires the admin agent endpoints.
func NewAdminHandler(agent *admin.Agent, registry *admin.Registry, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{agent: agent, registry: registry, logger: logger.Named("admin_handler")}
}

// RegisterRoutes registers the admin routes. guard wraps each handler with
// admin authentication.
func (h *AdminHandler) RegisterRoutes(mux *http.ServeMux, guard func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /api/admin/agent", guard(h.Agent))
	mux.HandleFunc("GET /api/admin/logs", guard(h.Logs))
}

type agentRequest struct {
	Command string `json:"command"`
}

// Agent handles POST /api/admin/agent: one natural-language command through
// the tool-calling loop.
func (h *AdminHandler) Agent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Command == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "command is required")
		return
	}

	response, err := h.agent.Process(r.Context(), req.Command)
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]string{"response": response})
}

// Logs handles GET /api/admin/logs?limit=20.
func (h *AdminHandler) Logs(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	logs, err := h.registry.RecentLogs(r.Context(), limit)
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, logs)
}
