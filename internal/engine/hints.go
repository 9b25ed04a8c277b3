package engine

import (
	"math/rand"

	"live-quiz-engine/internal/domain"
)

// redactOptions applies the joker to a question: two wrong options are
// removed uniformly at random, and when the question has at least four
// options in total (an even count), a further coin flip halves the displayed
// set. Correct options are never removed. Returns the option ids that remain
// visible, in the question's original order.
func redactOptions(q domain.QuestionDefinition, rnd *rand.Rand) ([]string, error) {
	var wrong, correct []string
	for _, opt := range q.Options {
		if opt.Correct {
			correct = append(correct, opt.ID)
		} else {
			wrong = append(wrong, opt.ID)
		}
	}
	if len(wrong) < 2 {
		return nil, domain.ErrHintUnavailable
	}

	removed := make(map[string]struct{}, 2)
	for _, i := range rnd.Perm(len(wrong))[:2] {
		removed[wrong[i]] = struct{}{}
	}

	total := len(q.Options)
	visible := make(map[string]struct{})
	if total >= 4 && total%2 == 0 && rnd.Float64() < 0.5 {
		// Halve the set: every correct option stays, random surviving wrong
		// options pad up to half the original count.
		target := total / 2
		for _, id := range correct {
			visible[id] = struct{}{}
		}
		var surviving []string
		for _, id := range wrong {
			if _, gone := removed[id]; !gone {
				surviving = append(surviving, id)
			}
		}
		rnd.Shuffle(len(surviving), func(i, j int) {
			surviving[i], surviving[j] = surviving[j], surviving[i]
		})
		for _, id := range surviving {
			if len(visible) >= target {
				break
			}
			visible[id] = struct{}{}
		}
	} else {
		for _, opt := range q.Options {
			if _, gone := removed[opt.ID]; !gone {
				visible[opt.ID] = struct{}{}
			}
		}
	}

	remaining := make([]string, 0, len(visible))
	for _, opt := range q.Options {
		if _, ok := visible[opt.ID]; ok {
			remaining = append(remaining, opt.ID)
		}
	}
	return remaining, nil
}
