package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/shiksha-ai/study-engine/pkg/models"
	"github.com/shiksha-ai/study-engine/pkg/pilot"
)

// PilotHandler controls the bulk generation scheduler.
type PilotHandler struct {
	scheduler *pilot.Scheduler
	logger    *zap.Logger
}

// NewPilotHandler wires the pilot control endpoints.
func NewPilotHandler(scheduler *pilot.Scheduler, logger *zap.Logger) *PilotHandler {
	return &PilotHandler{scheduler: scheduler, logger: logger.Named("pilot_handler")}
}

// RegisterRoutes registers the pilot routes. guard wraps each handler with
// admin authentication.
func (h *PilotHandler) RegisterRoutes(mux *http.ServeMux, guard func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("POST /api/pilot/run", guard(h.Run))
	mux.HandleFunc("POST /api/pilot/command", guard(h.Command))
	mux.HandleFunc("POST /api/pilot/daily-challenges", guard(h.DailyChallenges))
	mux.HandleFunc("GET /api/pilot/status", guard(h.Status))
}

type runRequest struct {
	Force bool `json:"force,omitempty"`
}

// Run handles POST /api/pilot/run. The sweep takes minutes, so it runs in
// the background and the response only acknowledges the start.
func (h *PilotHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if active, label := h.scheduler.Active(); active && !req.Force {
		_ = ErrorResponse(w, http.StatusConflict, "run_active", "a generation run is already active: "+label)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
		defer cancel()
		report, err := h.scheduler.RunAutoPilot(ctx, req.Force)
		if err != nil {
			h.logger.Error("Auto-pilot run failed", zap.Error(err))
			return
		}
		h.logger.Info("Auto-pilot run finished",
			zap.String("status", string(report.Status)),
			zap.Int("generated", report.Generated),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed))
	}()

	_ = WriteJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

type commandRequest struct {
	Board   string `json:"board"`
	Class   string `json:"classLevel"`
	Stream  string `json:"stream,omitempty"`
	Subject string `json:"subject"`
}

// Command handles POST /api/pilot/command: a synchronous targeted run over
// one board, class and subject.
func (h *PilotHandler) Command(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}
	if req.Board == "" || req.Class == "" || req.Subject == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "board, classLevel and subject are required")
		return
	}

	report, err := h.scheduler.RunCommandMode(r.Context(),
		models.Board(req.Board), models.ClassLevel(req.Class), models.Stream(req.Stream), req.Subject)
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, report)
}

// DailyChallenges handles POST /api/pilot/daily-challenges: publish today's
// challenge question for every board and class pair.
func (h *PilotHandler) DailyChallenges(w http.ResponseWriter, r *http.Request) {
	report, err := h.scheduler.RunDailyChallenges(r.Context())
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, report)
}

// Status handles GET /api/pilot/status.
func (h *PilotHandler) Status(w http.ResponseWriter, r *http.Request) {
	active, label := h.scheduler.Active()
	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"active": active,
		"run":    label,
	})
}
