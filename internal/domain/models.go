package domain

import "time"

// Phase is the lifecycle state of a live session.
type Phase string

const (
	PhaseCreated          Phase = "created"
	PhaseLobby            Phase = "lobby"
	PhaseInQuestion       Phase = "in_question"
	PhaseBetweenQuestions Phase = "between_questions"
	PhaseFinished         Phase = "finished"
)

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// QuestionDefinition is one question of a quiz template. LimitSeconds is
// clamped to [5, 300] when the session snapshot is taken; zero means the
// default of 20 seconds.
type QuestionDefinition struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	LimitSeconds int      `json:"limitSeconds"`
	Options      []Option `json:"options"`
}

// CorrectOptionIDs returns the set of option ids flagged correct.
func (q QuestionDefinition) CorrectOptionIDs() map[string]struct{} {
	correct := make(map[string]struct{})
	for _, opt := range q.Options {
		if opt.Correct {
			correct[opt.ID] = struct{}{}
		}
	}
	return correct
}

// QuizDefinition is the immutable template a live session runs from.
// HintAllowance is the number of jokers each participant may spend over the
// whole game (0-3).
type QuizDefinition struct {
	ID            string               `json:"id"`
	Title         string               `json:"title"`
	HintAllowance int                  `json:"hintAllowance"`
	Questions     []QuestionDefinition `json:"questions"`
}

const (
	MinQuestionSeconds     = 5
	MaxQuestionSeconds     = 300
	DefaultQuestionSeconds = 20
	MaxHintAllowance       = 3
)

// ClampLimit normalizes a configured question limit into the allowed range.
func ClampLimit(seconds int) int {
	if seconds == 0 {
		return DefaultQuestionSeconds
	}
	if seconds < MinQuestionSeconds {
		return MinQuestionSeconds
	}
	if seconds > MaxQuestionSeconds {
		return MaxQuestionSeconds
	}
	return seconds
}

// ClampHintAllowance normalizes the per-quiz joker count into [0, 3].
func ClampHintAllowance(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxHintAllowance {
		return MaxHintAllowance
	}
	return n
}

// Participant is one identity joined into a live session.
type Participant struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Score       int       `json:"score"`
	HintsUsed   int       `json:"hintsUsed"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// Submission records one participant's answer to one round. Immutable once
// accepted; ReceivedAt is the server clock, never a client timestamp.
type Submission struct {
	ParticipantID string    `json:"participantId"`
	OptionIDs     []string  `json:"optionIds"`
	ReceivedAt    time.Time `json:"receivedAt"`
	Correct       bool      `json:"correct"`
	Awarded       int       `json:"awarded"`
}

// AnswerResult is what a submitter gets back synchronously.
type AnswerResult struct {
	RoundID    string `json:"roundId"`
	Correct    bool   `json:"correct"`
	Awarded    int    `json:"awarded"`
	TotalScore int    `json:"totalScore"`
}

// HintReveal is the (idempotent) outcome of spending a joker: the option ids
// that remain visible after redaction and the jokers the participant has left.
type HintReveal struct {
	RoundID        string   `json:"roundId"`
	RemainingIDs   []string `json:"remainingOptionIds"`
	HintsRemaining int      `json:"hintsRemaining"`
}

// Standing is one row of the leaderboard.
type Standing struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	Score         int    `json:"score"`
	Rank          int    `json:"rank"`
}

// Leaderboard captures the ordered scoreboard of a session at one instant.
type Leaderboard struct {
	SessionID string     `json:"sessionId"`
	Standings []Standing `json:"standings"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// OptionStat is the per-option answer count revealed when a round closes.
type OptionStat struct {
	OptionID string `json:"optionId"`
	Count    int    `json:"count"`
	Correct  bool   `json:"correct"`
}

// ResponseRecord is one finalized answer row, kept for the results export.
type ResponseRecord struct {
	Participant  string        `json:"participant"`
	QuestionText string        `json:"question"`
	AnswerText   string        `json:"answer"`
	Correct      bool          `json:"correct"`
	Elapsed      time.Duration `json:"elapsedMs"`
}

// SessionResult is the finished-session projection handed to the archiver
// and to the CSV export.
type SessionResult struct {
	SessionID  string           `json:"sessionId"`
	QuizID     string           `json:"quizId"`
	JoinCode   string           `json:"joinCode"`
	FinishedAt time.Time        `json:"finishedAt"`
	Standings  []Standing       `json:"standings"`
	Responses  []ResponseRecord `json:"responses"`
}
