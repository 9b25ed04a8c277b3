package http

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"live-quiz-engine/internal/domain"
	"live-quiz-engine/internal/engine"
)

// SessionHandler exposes the non-websocket surface: session creation for
// hosts and the read-only CSV projection of finished results.
type SessionHandler struct {
	service *engine.Service
}

func NewSessionHandler(service *engine.Service) *SessionHandler {
	return &SessionHandler{service: service}
}

type createSessionRequest struct {
	QuizID string `json:"quizId"`
}

type createSessionResponse struct {
	SessionID  string `json:"sessionId"`
	JoinCode   string `json:"joinCode"`
	HostSecret string `json:"hostSecret"`
}

// Create starts a new live session from a quiz and returns the join code for
// participants plus the host secret, which is never sent again.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}

	session, err := h.service.CreateSession(r.Context(), req.QuizID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(createSessionResponse{
		SessionID:  session.ID(),
		JoinCode:   session.Code(),
		HostSecret: session.HostSecret(),
	})
}

// ResultsCSV streams the finished session's responses as CSV. Host only.
func (h *SessionHandler) ResultsCSV(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	session, err := h.service.SessionByCode(code)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err := session.AuthorizeHost(r.URL.Query().Get("secret")); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	result, err := session.Result()
	if err != nil {
		http.Error(w, "session not finished", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=results_%s.csv", result.JoinCode))

	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"participant", "question", "answer", "is_correct", "response_ms"})
	for _, rec := range result.Responses {
		correct := "0"
		if rec.Correct {
			correct = "1"
		}
		_ = writer.Write([]string{
			rec.Participant,
			rec.QuestionText,
			rec.AnswerText,
			correct,
			fmt.Sprintf("%d", rec.Elapsed.Milliseconds()),
		})
	}
	writer.Flush()
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotHost):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrSessionFinished),
		errors.Is(err, domain.ErrSessionNotJoinable),
		errors.Is(err, domain.ErrAlreadySubmitted),
		errors.Is(err, domain.ErrHintsExhausted),
		errors.Is(err, domain.ErrRoundNotActive),
		errors.Is(err, domain.ErrQuestionOrder),
		errors.Is(err, domain.ErrNameTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
