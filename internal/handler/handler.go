// Package handler exposes the JSON API under /nesa plus the auth
// endpoints. Handlers translate store and pipeline errors into HTTP
// statuses; everything else is delegated.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/studyforge/nesaprep/internal/generator"
	"github.com/studyforge/nesaprep/internal/marker"
	"github.com/studyforge/nesaprep/internal/model"
	"github.com/studyforge/nesaprep/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store  *store.Store
	gen    *generator.Generator
	marker *marker.Marker
	config model.Config
}

// New creates a new Handler.
func New(s *store.Store, g *generator.Generator, m *marker.Marker, cfg model.Config) (*Handler, error) {
	return &Handler{store: s, gen: g, marker: m, config: cfg}, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)

	r.Route("/nesa", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.optionalAuth)
			r.Get("/exams", h.handleListExams)
			r.Get("/exams/{id}", h.handleGetExam)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Post("/generate", h.handleGenerate)
			r.Put("/exams/{id}", h.handleRenameExam)
			r.Delete("/exams/{id}", h.handleDeleteExam)
			r.Get("/attempts", h.handleListAttempts)
			r.Get("/attempts/{id}", h.handleGetAttempt)
			r.Patch("/attempts/{id}", h.handleSelfMark)
			r.Post("/attempts/{id}/remark", h.handleRemark)
			r.Get("/progress", h.handleGetProgress)
			r.Post("/progress", h.handleSaveProgress)
			r.Post("/mark", h.handleMark)
		})
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeStoreError maps store errors onto statuses. Ownership
// violations surface as not-found, never as forbidden.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "record not found")
	case errors.Is(err, store.ErrInvalidSelfMark):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("store error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generator.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := generator.ValidateRequest(req); err != nil {
		var verr *generator.ValidationError
		if errors.As(err, &verr) {
			respondJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "invalid generation request",
				"fields": verr.Fields,
			})
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	exam, err := h.gen.Generate(r.Context(), req)
	if err != nil {
		// Past request validation, any failure is the oracle's:
		// it either never converged on the requested count or
		// produced an exam that failed schema validation.
		slog.Error("exam generation failed", "modules", req.Modules, "error", err)
		respondError(w, http.StatusBadGateway, "exam generation failed: "+err.Error())
		return
	}

	recordID, err := h.store.SaveExam(nil, *exam)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"recordId": recordID,
		"exam":     exam,
	})
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListExams(r.URL.Query().Get("q"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	type examSummary struct {
		RecordID  string    `json:"recordId"`
		Label     string    `json:"label"`
		CreatedAt time.Time `json:"createdAt"`
	}
	summaries := make([]examSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, examSummary{
			RecordID:  rec.ID,
			Label:     rec.Label,
			CreatedAt: rec.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	exam, rec, err := h.store.GetExam(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"recordId": rec.ID,
		"label":    rec.Label,
		"exam":     exam,
	})
}

func (h *Handler) handleRenameExam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label string `json:"label"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Label == "" {
		respondError(w, http.StatusBadRequest, "label cannot be empty")
		return
	}
	if err := h.store.RenameExam(chi.URLParam(r, "id"), req.Label); err != nil {
		writeStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"label": req.Label})
}

func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	if !user.IsAdmin() {
		respondError(w, http.StatusForbidden, "admin access required")
		return
	}
	if err := h.store.DeleteExam(chi.URLParam(r, "id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMark(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req marker.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Questions) == 0 {
		respondError(w, http.StatusBadRequest, "questions cannot be empty")
		return
	}

	attempt, err := h.marker.Mark(r.Context(), req)
	if err != nil {
		slog.Error("marking failed", "exam", req.ExamTitle, "user_id", user.ID, "error", err)
		respondError(w, http.StatusBadGateway, "marking failed: "+err.Error())
		return
	}

	recordID, err := h.store.SaveAttempt(user.ID, *attempt)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	// A completed mark retires the user's autosaved session for
	// this exam. Absence is not an error.
	if req.ExamRecordID != "" {
		if err := h.store.DeleteProgressForExam(user.ID, req.ExamRecordID); err != nil {
			slog.Error("delete progress after mark", "exam_record_id", req.ExamRecordID, "error", err)
		}
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"recordId": recordID,
		"attempt":  attempt,
	})
}

func (h *Handler) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	attempts, err := h.store.ListAttempts(user.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, attempts)
}

func (h *Handler) handleGetAttempt(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	attempt, err := h.store.GetAttempt(chi.URLParam(r, "id"), user.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, attempt)
}

func (h *Handler) handleSelfMark(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var req struct {
		SelfMarkedScores map[string]int `json:"selfMarkedScores"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.SelfMarkedScores) == 0 {
		respondError(w, http.StatusBadRequest, "selfMarkedScores cannot be empty")
		return
	}

	attempt, err := h.store.MergeSelfMarks(chi.URLParam(r, "id"), user.ID, req.SelfMarkedScores)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, attempt)
}

// handleRemark re-marks a stored attempt against its own question
// snapshot. The stored record is replaced wholesale, dropping any
// self-marked overlay.
func (h *Handler) handleRemark(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	id := chi.URLParam(r, "id")

	stored, err := h.store.GetAttempt(id, user.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	answers := make(map[string]string, len(stored.Marks))
	for _, m := range stored.Marks {
		answers[m.QuestionID] = m.UserAnswer
	}

	attempt, err := h.marker.Mark(r.Context(), marker.Request{
		ExamTitle:    stored.ExamTitle,
		ExamRecordID: stored.ExamRecordID,
		Questions:    stored.Questions,
		UserAnswers:  answers,
	})
	if err != nil {
		slog.Error("remark failed", "attempt_id", id, "error", err)
		respondError(w, http.StatusBadGateway, "marking failed: "+err.Error())
		return
	}

	if err := h.store.ReplaceAttempt(id, user.ID, *attempt); err != nil {
		writeStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, attempt)
}

func (h *Handler) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	if examID := r.URL.Query().Get("examId"); examID != "" {
		p, err := h.store.GetProgress(user.ID, examID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, p)
		return
	}

	list, err := h.store.ListProgress(user.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *Handler) handleSaveProgress(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())

	var p model.ProgressRecord
	if !decodeJSON(w, r, &p) {
		return
	}
	if p.ExamID == "" {
		respondError(w, http.StatusBadRequest, "examId is required")
		return
	}

	recordID, err := h.store.UpsertProgress(user.ID, p)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"recordId": recordID})
}
