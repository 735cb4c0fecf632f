package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/shiksha-ai/study-engine/pkg/access"
	"github.com/shiksha-ai/study-engine/pkg/auth"
	"github.com/shiksha-ai/study-engine/pkg/content"
	"github.com/shiksha-ai/study-engine/pkg/models"
	"github.com/shiksha-ai/study-engine/pkg/settings"
	"github.com/shiksha-ai/study-engine/pkg/store"
)

// ContentHandler serves syllabus lookups and the resolve-or-generate
// pipeline.
type ContentHandler struct {
	resolver  *content.Resolver
	generator *content.Generator
	syllabus  *content.Syllabus
	ledger    *access.Ledger
	settings  settings.Service
	store     store.DocumentStore
	logger    *zap.Logger
}

// NewContentHandler wires the content endpoints.
func NewContentHandler(resolver *content.Resolver, generator *content.Generator, syllabus *content.Syllabus, ledger *access.Ledger, settingsSvc settings.Service, st store.DocumentStore, logger *zap.Logger) *ContentHandler {
	return &ContentHandler{
		resolver:  resolver,
		generator: generator,
		syllabus:  syllabus,
		ledger:    ledger,
		settings:  settingsSvc,
		store:     st,
		logger:    logger.Named("content_handler"),
	}
}

// RegisterRoutes registers the content routes. guard wraps each handler
// with user authentication.
func (h *ContentHandler) RegisterRoutes(mux *http.ServeMux, guard func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET /api/subjects", guard(h.Subjects))
	mux.HandleFunc("GET /api/chapters", guard(h.Chapters))
	mux.HandleFunc("POST /api/content/resolve", guard(h.Resolve))
	mux.HandleFunc("POST /api/content/custom-notes", guard(h.CustomNotes))
	mux.HandleFunc("POST /api/content/analysis", guard(h.Analysis))
}

// Subjects handles GET /api/subjects?class=9&stream=Science.
func (h *ContentHandler) Subjects(w http.ResponseWriter, r *http.Request) {
	class := models.ClassLevel(r.URL.Query().Get("class"))
	if class == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "class is required")
		return
	}
	stream := models.Stream(r.URL.Query().Get("stream"))
	_ = WriteJSON(w, http.StatusOK, h.syllabus.SubjectsFor(class, stream))
}

// Chapters handles GET /api/chapters.
func (h *ContentHandler) Chapters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	board := models.Board(q.Get("board"))
	class := models.ClassLevel(q.Get("class"))
	subjectName := q.Get("subject")
	if board == "" || class == "" || subjectName == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "board, class and subject are required")
		return
	}
	language := models.Language(q.Get("language"))
	if language == "" {
		language = models.LanguageEnglish
	}

	subject := models.Subject{Name: subjectName}
	for _, s := range h.syllabus.SubjectsFor(class, models.Stream(q.Get("stream"))) {
		if s.Name == subjectName {
			subject = s
			break
		}
	}

	chapters := h.syllabus.Chapters(r.Context(), board, class, models.Stream(q.Get("stream")), subject, language)
	_ = WriteJSON(w, http.StatusOK, chapters)
}

type resolveRequest struct {
	Board        string `json:"board"`
	Class        string `json:"classLevel"`
	Stream       string `json:"stream,omitempty"`
	SubjectID    string `json:"subjectId,omitempty"`
	SubjectName  string `json:"subjectName"`
	ChapterID    string `json:"chapterId"`
	ChapterTitle string `json:"chapterTitle,omitempty"`

	ContentType   string `json:"contentType"`
	Language      string `json:"language,omitempty"`
	Mode          string `json:"mode,omitempty"`
	QuestionCount int    `json:"questionCount,omitempty"`

	ForceRegenerate bool `json:"forceRegenerate,omitempty"`
	ConfirmCharge   bool `json:"confirmCharge,omitempty"`

	// StreamResponse switches the reply to server-sent events carrying the
	// accumulated text while notes generate.
	StreamResponse bool `json:"stream,omitempty"`
}

func (req *resolveRequest) target() content.Target {
	return content.Target{
		Board:   models.Board(req.Board),
		Class:   models.ClassLevel(req.Class),
		Stream:  models.Stream(req.Stream),
		Subject: models.Subject{ID: req.SubjectID, Name: req.SubjectName},
		Chapter: models.Chapter{ID: req.ChapterID, Title: req.ChapterTitle},
	}
}

func (req *resolveRequest) mode() models.SyllabusMode {
	if req.Mode != "" {
		return models.SyllabusMode(req.Mode)
	}
	if models.ClassLevel(req.Class) == models.ClassCompetition {
		return models.ModeCompetition
	}
	return models.ModeSchool
}

// Resolve handles POST /api/content/resolve: access check, optional credit
// charge, then resolve-or-generate.
func (h *ContentHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "malformed request body")
		return
	}
	if req.Board == "" || req.Class == "" || req.SubjectName == "" || req.ChapterID == "" || req.ContentType == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request",
			"board, classLevel, subjectName, chapterId and contentType are required")
		return
	}

	ctx := r.Context()
	contentType := models.ContentType(req.ContentType)
	target := req.target()

	user := h.loadUser(r)
	rec := h.resolver.Record(ctx, target.Key())
	cost := rec.CostFor(contentType)

	s, err := h.settings.Current(ctx)
	if err != nil {
		h.logger.Warn("Settings unavailable for access check", zap.Error(err))
		s = &models.SystemSettings{}
	}

	decision := access.Evaluate(user, contentType, cost, s, time.Now().UTC())
	if !decision.Granted() {
		_ = ErrorResponse(w, http.StatusForbidden, "access_denied", decision.Reason)
		return
	}
	if decision.Kind == access.GrantedByCredit {
		if err := h.ledger.Charge(ctx, user, decision.Cost, req.ConfirmCharge); err != nil {
			_ = WriteError(w, err)
			return
		}
	}

	language := models.Language(req.Language)
	if language == "" {
		language = models.LanguageEnglish
	}

	genReq := content.Request{
		Target:          target,
		Type:            contentType,
		Language:        language,
		Mode:            req.mode(),
		QuestionCount:   req.QuestionCount,
		AllowGeneration: true,
		ForceRegenerate: req.ForceRegenerate,
	}

	if req.StreamResponse && !contentType.IsMCQ() && !contentType.IsLinkBased() {
		h.streamLesson(w, r, genReq)
		return
	}

	lesson, err := h.generator.ResolveOrGenerate(ctx, genReq)
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, lesson)
}

// streamLesson replies with server-sent events: one event per model chunk
// carrying the accumulated text, a final event with the full lesson, then a
// [DONE] marker.
func (h *ContentHandler) streamLesson(w http.ResponseWriter, r *http.Request, genReq content.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	genReq.OnStream = func(accumulated string) {
		payload, err := json.Marshal(map[string]string{"html": accumulated})
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	lesson, err := h.generator.ResolveOrGenerate(r.Context(), genReq)
	if err != nil {
		payload, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
		return
	}

	if payload, err := json.Marshal(map[string]any{"lesson": lesson}); err == nil {
		fmt.Fprintf(w, "data: %s\n\n", payload)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

type customNotesRequest struct {
	Topic    string `json:"topic"`
	Class    string `json:"classLevel"`
	Language string `json:"language,omitempty"`
}

// CustomNotes handles POST /api/content/custom-notes: one-off notes on a
// free-form topic, streamed as server-sent events.
func (h *ContentHandler) CustomNotes(w http.ResponseWriter, r *http.Request) {
	var req customNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Topic == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "topic is required")
		return
	}

	language := models.Language(req.Language)
	if language == "" {
		language = models.LanguageEnglish
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		_ = ErrorResponse(w, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	lesson, err := h.generator.GenerateCustomNotes(r.Context(), req.Topic, models.ClassLevel(req.Class), language,
		func(accumulated string) {
			payload, merr := json.Marshal(map[string]string{"html": accumulated})
			if merr != nil {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		})
	if err != nil {
		payload, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
		return
	}

	if payload, merr := json.Marshal(map[string]any{"lesson": lesson}); merr == nil {
		fmt.Fprintf(w, "data: %s\n\n", payload)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

type analysisRequest struct {
	Performance json.RawMessage `json:"performance"`
}

// Analysis handles POST /api/content/analysis: an AI coaching report over
// raw test performance data.
func (h *ContentHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Performance) == 0 {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_request", "performance data is required")
		return
	}

	report, err := h.generator.GenerateUltraAnalysis(r.Context(), string(req.Performance))
	if err != nil {
		_ = WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(report))
}

// loadUser fetches the authenticated user's document. Anonymous or unknown
// users come back nil; the access evaluator denies them.
func (h *ContentHandler) loadUser(r *http.Request) *models.User {
	id := auth.UserID(r.Context())
	if id == "" {
		return nil
	}
	user := &models.User{}
	found, err := store.GetTyped(r.Context(), h.store, store.UserKey(id), user)
	if err != nil {
		h.logger.Warn("User read failed", zap.String("user_id", id), zap.Error(err))
		return nil
	}
	if !found {
		return nil
	}
	return user
}
