package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"quizhall/internal/app"
	"quizhall/internal/domain"
)

const sessionCookie = "quizhall_session"

// APIHandler exposes the solo exam flow as a JSON API. Session identity is
// an opaque cookie token; an invalid or expired session is replaced
// transparently, never surfaced to the browser as a failure.
type APIHandler struct {
	solo *app.SoloService
	bank *app.BankService
}

func NewAPIHandler(solo *app.SoloService, bank *app.BankService) *APIHandler {
	return &APIHandler{solo: solo, bank: bank}
}

// NewRouter assembles the full HTTP surface: solo API plus the room
// websocket endpoint.
func NewRouter(api *APIHandler, ws *WSHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/lists", api.handleLists)
		r.Post("/session", api.handleSession)
		r.Route("/exam", func(r chi.Router) {
			r.Post("/start", api.handleStart)
			r.Get("/quiz", api.handleQuiz)
			r.Post("/randomization", api.handleRandomization)
			r.Post("/submit", api.handleSubmit)
			r.Post("/restart", api.handleRestart)
		})
	})

	r.Get("/ws", ws.ServeWS)
	return r
}

type sessionResponse struct {
	Started   bool                `json:"started"`
	Submitted bool                `json:"submitted"`
	ListKey   string              `json:"list_key,omitempty"`
	Results   *domain.ExamOutcome `json:"results,omitempty"`
}

type quizResponse struct {
	Questions          []domain.QuestionView `json:"questions"`
	TotalQuestions     int                   `json:"total_questions"`
	RandomizeQuestions bool                  `json:"randomize_questions"`
	RandomizeOptions   bool                  `json:"randomize_options"`
}

type startRequest struct {
	ListKey string `json:"list_key"`
}

type randomizationRequest struct {
	RandomizeQuestions *bool `json:"randomize_questions"`
	RandomizeOptions   *bool `json:"randomize_options"`
}

type submitRequest struct {
	Answers map[string]any `json:"answers"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *APIHandler) handleLists(w http.ResponseWriter, r *http.Request) {
	names, err := h.bank.ListNames(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lists": names})
}

func (h *APIHandler) handleSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.solo.EnsureSession(r.Context(), tokenFrom(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	setToken(w, session.Token)
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *APIHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
	}
	session, err := h.solo.StartExam(r.Context(), tokenFrom(r), req.ListKey)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	setToken(w, session.Token)
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// handleQuiz mirrors the classic exam page: touching it without a started
// exam transparently starts one over the full bank.
func (h *APIHandler) handleQuiz(w http.ResponseWriter, r *http.Request) {
	token := tokenFrom(r)
	questions, err := h.solo.GetQuiz(r.Context(), token)
	if errors.Is(err, domain.ErrNotStarted) || errors.Is(err, domain.ErrInvalidSession) || errors.Is(err, domain.ErrSessionExpired) {
		var session domain.SoloSession
		session, err = h.solo.StartExam(r.Context(), token, "")
		if err == nil {
			setToken(w, session.Token)
			token = session.Token
			questions, err = h.solo.GetQuiz(r.Context(), token)
		}
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	session, err := h.solo.EnsureSession(r.Context(), token)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizResponse{
		Questions:          domain.ViewOf(questions),
		TotalQuestions:     len(questions),
		RandomizeQuestions: session.RandomizeQuestions,
		RandomizeOptions:   session.RandomizeOptions,
	})
}

func (h *APIHandler) handleRandomization(w http.ResponseWriter, r *http.Request) {
	var req randomizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	randomizeQuestions, randomizeOptions := true, true
	if req.RandomizeQuestions != nil {
		randomizeQuestions = *req.RandomizeQuestions
	}
	if req.RandomizeOptions != nil {
		randomizeOptions = *req.RandomizeOptions
	}
	session, err := h.solo.SetRandomization(r.Context(), tokenFrom(r), randomizeQuestions, randomizeOptions)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func (h *APIHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	result, err := h.solo.Submit(r.Context(), tokenFrom(r), req.Answers)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) handleRestart(w http.ResponseWriter, r *http.Request) {
	session, err := h.solo.Restart(r.Context(), tokenFrom(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	setToken(w, session.Token)
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

func toSessionResponse(session domain.SoloSession) sessionResponse {
	return sessionResponse{
		Started:   session.Started,
		Submitted: session.Submitted,
		ListKey:   session.ListKey,
		Results:   session.Results,
	}
}

func tokenFrom(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func setToken(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(domain.SessionTTL.Seconds()),
	})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotStarted):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "no exam started"})
	case errors.Is(err, domain.ErrAlreadySubmitted):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "answers already submitted"})
	case errors.Is(err, domain.ErrInvalidSession), errors.Is(err, domain.ErrSessionExpired):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid session"})
	case errors.Is(err, domain.ErrListNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "question list not found"})
	case errors.Is(err, domain.ErrRepositoryUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "question bank unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "request failed"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
