package engine

import (
	"sort"
	"time"

	"live-quiz-engine/internal/domain"

	"github.com/google/uuid"
)

// round is the live instantiation of one question. It has no lock of its
// own: every access goes through the owning session's mutex, which is what
// makes accept-vs-close and duplicate-submission checks atomic.
type round struct {
	id          string
	index       int
	question    domain.QuestionDefinition
	limit       time.Duration
	startedAt   time.Time
	closed      bool
	submissions map[string]domain.Submission
	reveals     map[string]domain.HintReveal
}

func newRound(index int, question domain.QuestionDefinition, startedAt time.Time) *round {
	return &round{
		id:          uuid.NewString(),
		index:       index,
		question:    question,
		limit:       time.Duration(domain.ClampLimit(question.LimitSeconds)) * time.Second,
		startedAt:   startedAt,
		submissions: make(map[string]domain.Submission),
		reveals:     make(map[string]domain.HintReveal),
	}
}

// accept records a single submission for a participant. Correctness is
// set-equality between the selected options and the defined correct set.
func (r *round) accept(participantID string, optionIDs []string, now time.Time) (domain.Submission, error) {
	if r.closed {
		return domain.Submission{}, domain.ErrRoundNotActive
	}
	if _, dup := r.submissions[participantID]; dup {
		return domain.Submission{}, domain.ErrAlreadySubmitted
	}
	if len(optionIDs) == 0 {
		return domain.Submission{}, domain.ErrOptionNotFound
	}

	known := make(map[string]struct{}, len(r.question.Options))
	for _, opt := range r.question.Options {
		known[opt.ID] = struct{}{}
	}
	selected := make(map[string]struct{}, len(optionIDs))
	for _, id := range optionIDs {
		if _, ok := known[id]; !ok {
			return domain.Submission{}, domain.ErrOptionNotFound
		}
		selected[id] = struct{}{}
	}

	correctSet := r.question.CorrectOptionIDs()
	correct := len(selected) == len(correctSet)
	if correct {
		for id := range correctSet {
			if _, ok := selected[id]; !ok {
				correct = false
				break
			}
		}
	}

	sub := domain.Submission{
		ParticipantID: participantID,
		OptionIDs:     sortedKeys(selected),
		ReceivedAt:    now,
		Correct:       correct,
		Awarded:       Score(correct, now.Sub(r.startedAt), r.limit),
	}
	r.submissions[participantID] = sub
	return sub, nil
}

func (r *round) hasSubmitted(participantID string) bool {
	_, ok := r.submissions[participantID]
	return ok
}

// optionStats counts submissions per option, including zero-count options.
func (r *round) optionStats() []domain.OptionStat {
	counts := make(map[string]int)
	for _, sub := range r.submissions {
		for _, id := range sub.OptionIDs {
			counts[id]++
		}
	}
	stats := make([]domain.OptionStat, 0, len(r.question.Options))
	for _, opt := range r.question.Options {
		stats = append(stats, domain.OptionStat{
			OptionID: opt.ID,
			Count:    counts[opt.ID],
			Correct:  opt.Correct,
		})
	}
	return stats
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
