package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSessionNotFound is returned when no active session matches a join code.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionFinished is returned for any command against a terminal session.
	ErrSessionFinished = errors.New("session already finished")
	// ErrSessionNotJoinable rejects joins outside the lobby phase.
	ErrSessionNotJoinable = errors.New("session not joinable")
	// ErrNameTaken rejects a display name already used in the session.
	ErrNameTaken = errors.New("display name already taken")
	// ErrNotHost is returned when a host command carries the wrong secret.
	ErrNotHost = errors.New("caller is not the session host")
	// ErrParticipantNotFound is returned when a user acts before joining.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrQuestionOrder rejects starting anything but the next unplayed question.
	ErrQuestionOrder = errors.New("question is not the next unplayed question")
	// ErrRoundNotActive rejects submissions and hints outside an active round.
	ErrRoundNotActive = errors.New("question round not active")
	// ErrAlreadySubmitted rejects a second answer for the same round.
	ErrAlreadySubmitted = errors.New("already submitted for this round")
	// ErrOptionNotFound indicates a submitted option id is not on the question.
	ErrOptionNotFound = errors.New("option not found")
	// ErrHintsExhausted is returned once the joker allowance is spent.
	ErrHintsExhausted = errors.New("no hints remaining")
	// ErrHintUnavailable is returned when a question has too few wrong options.
	ErrHintUnavailable = errors.New("hint unavailable for this question")
	// ErrResultsNotReady rejects result reads before the session finishes.
	ErrResultsNotReady = errors.New("session results not ready")
)
