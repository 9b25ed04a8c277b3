package engine

import (
	"time"

	"live-quiz-engine/internal/domain"
)

// Event types emitted to the notification gateway whenever session state
// changes. Payload shapes are stable; the transport layer forwards them
// verbatim as JSON.
const (
	EventPhaseChanged       = "session.phase_changed"
	EventQuestionStarted    = "question.started"
	EventQuestionClosed     = "question.closed"
	EventLeaderboardUpdated = "leaderboard.updated"
	EventSessionFinished    = "session.finished"
)

// Event is one state-change notification for a session.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Payload   any    `json:"payload"`
}

// PhaseChangedPayload accompanies EventPhaseChanged.
type PhaseChangedPayload struct {
	Phase domain.Phase `json:"phase"`
}

// QuestionStartedPayload accompanies EventQuestionStarted. The question is
// sent without correctness flags so clients cannot peek at the answer.
type QuestionStartedPayload struct {
	RoundID         string         `json:"roundId"`
	QuestionIndex   int            `json:"questionIndex"`
	QuestionText    string         `json:"questionText"`
	Options         []PublicOption `json:"options"`
	LimitSeconds    int            `json:"limitSeconds"`
	ServerStartTime time.Time      `json:"serverStartTime"`
}

// PublicOption is an answer option with the correctness flag stripped.
type PublicOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionClosedPayload accompanies EventQuestionClosed.
type QuestionClosedPayload struct {
	RoundID       string              `json:"roundId"`
	QuestionIndex int                 `json:"questionIndex"`
	OptionStats   []domain.OptionStat `json:"perOptionStatistics"`
}

// LeaderboardUpdatedPayload accompanies EventLeaderboardUpdated.
type LeaderboardUpdatedPayload struct {
	Leaderboard domain.Leaderboard `json:"orderedStandings"`
}

// SessionFinishedPayload accompanies EventSessionFinished.
type SessionFinishedPayload struct {
	FinalStandings []domain.Standing `json:"finalStandings"`
}
