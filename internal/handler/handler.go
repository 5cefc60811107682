package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/interview-coach/internal/interview"
	"github.com/pavelanni/interview-coach/internal/model"
)

// Handler serves the interview API.
type Handler struct {
	orch *interview.Orchestrator
}

// New creates a new Handler.
func New(o *interview.Orchestrator) *Handler {
	return &Handler{orch: o}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", h.handleStart)
		r.Get("/sessions/{sessionID}", h.handleGetSession)
		r.Post("/sessions/{sessionID}/questions", h.handleAsk)
		r.Post("/sessions/{sessionID}/answers", h.handleAnswer)
		r.Post("/sessions/{sessionID}/timeout", h.handleTimeout)
		r.Post("/sessions/{sessionID}/pause", h.handlePause)
		r.Post("/sessions/{sessionID}/resume", h.handleResume)
		r.Post("/sessions/{sessionID}/finish", h.handleFinish)
		r.Get("/profiles/{userID}", h.handleProfile)
	})
}

type startRequest struct {
	UserID string       `json:"user_id"`
	Domain model.Domain `json:"domain"`
}

type askRequest struct {
	Difficulty model.Difficulty `json:"difficulty"`
}

type answerRequest struct {
	Answer string `json:"answer"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decode(w, r, &req) {
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || req.Domain == "" {
		writeError(w, http.StatusBadRequest, "user_id and domain are required")
		return
	}
	id := h.orch.Start(r.Context(), req.UserID, req.Domain)
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	if req.Difficulty != "" && !req.Difficulty.Valid() {
		writeError(w, http.StatusBadRequest, "difficulty must be easy, medium or hard")
		return
	}
	q, err := h.orch.AskNext(r.Context(), chi.URLParam(r, "sessionID"), req.Difficulty)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decode(w, r, &req) {
		return
	}
	h.submit(w, r, req.Answer)
}

func (h *Handler) handleTimeout(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, model.TimeoutAnswer)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, answer string) {
	ev, err := h.orch.SubmitAnswer(r.Context(), chi.URLParam(r, "sessionID"), answer)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.Pause(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := h.orch.Resume(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleFinish(w http.ResponseWriter, r *http.Request) {
	sum, err := h.orch.Finish(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	rec, err := h.orch.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.orch.Profile(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// statusFor maps the interview error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrNoCurrentQuestion), errors.Is(err, model.ErrQuestionPending):
		return http.StatusConflict
	case errors.Is(err, model.ErrExhaustedPool):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
