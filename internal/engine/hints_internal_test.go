package engine

import (
	"math/rand"
	"testing"
	"time"

	"live-quiz-engine/internal/domain"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return parsed
}

func hintQuestion(optionCount int) domain.QuestionDefinition {
	q := domain.QuestionDefinition{ID: "q1", Text: "pick one"}
	for i := 0; i < optionCount; i++ {
		q.Options = append(q.Options, domain.Option{
			ID:      string(rune('a' + i)),
			Correct: i == 0,
		})
	}
	return q
}

func TestRedactOptionsKeepsCorrect(t *testing.T) {
	q := hintQuestion(4)
	for seed := int64(0); seed < 50; seed++ {
		remaining, err := redactOptions(q, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		found := false
		for _, id := range remaining {
			if id == "a" {
				found = true
			}
		}
		if !found {
			t.Fatalf("seed %d: correct option removed, remaining %v", seed, remaining)
		}
		// Either two wrong removed (2 remain of 4... minus the halving draw)
		// or halved down to 2; never more than total-2.
		if len(remaining) > len(q.Options)-2 {
			t.Fatalf("seed %d: expected at most %d options, got %v", seed, len(q.Options)-2, remaining)
		}
		if len(remaining) < 1 {
			t.Fatalf("seed %d: all options removed", seed)
		}
	}
}

func TestRedactOptionsHalvesEvenSets(t *testing.T) {
	q := hintQuestion(6)
	halved := false
	for seed := int64(0); seed < 100; seed++ {
		remaining, err := redactOptions(q, rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if len(remaining) == 3 {
			halved = true
		}
	}
	if !halved {
		t.Fatalf("expected at least one halved outcome across 100 seeds")
	}
}

func TestRedactOptionsNeedsTwoWrong(t *testing.T) {
	q := domain.QuestionDefinition{
		ID: "q1",
		Options: []domain.Option{
			{ID: "a", Correct: true},
			{ID: "b", Correct: false},
		},
	}
	if _, err := redactOptions(q, rand.New(rand.NewSource(1))); err != domain.ErrHintUnavailable {
		t.Fatalf("expected ErrHintUnavailable, got %v", err)
	}
}

func TestRankStandingsTieBreak(t *testing.T) {
	base := mustTime(t, "2026-01-02T10:00:00Z")
	participants := []*domain.Participant{
		{ID: "p1", DisplayName: "Cara", Score: 500, JoinedAt: base.Add(2 * 1e9)},
		{ID: "p2", DisplayName: "Ada", Score: 500, JoinedAt: base},
		{ID: "p3", DisplayName: "Ben", Score: 900, JoinedAt: base.Add(1e9)},
	}

	lb := rankStandings("s1", participants, base)
	want := []string{"p3", "p2", "p1"}
	for i, id := range want {
		if lb.Standings[i].ParticipantID != id {
			t.Fatalf("position %d: expected %s, got %+v", i, id, lb.Standings[i])
		}
		if lb.Standings[i].Rank != i+1 {
			t.Fatalf("position %d: expected rank %d, got %d", i, i+1, lb.Standings[i].Rank)
		}
	}

	// Stable across recomputation with no new data.
	again := rankStandings("s1", participants, base)
	for i := range lb.Standings {
		if again.Standings[i] != lb.Standings[i] {
			t.Fatalf("ranking changed on recompute: %+v vs %+v", again.Standings[i], lb.Standings[i])
		}
	}
}
