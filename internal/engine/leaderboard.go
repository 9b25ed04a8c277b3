package engine

import (
	"sort"
	"time"

	"live-quiz-engine/internal/domain"
)

// rankStandings orders participants by cumulative score descending, breaking
// ties by earlier join time and then display name so the ordering is a total
// order, stable across repeated recomputation. Submission order is
// deliberately not a tie-breaker.
func rankStandings(sessionID string, participants []*domain.Participant, updatedAt time.Time) domain.Leaderboard {
	sorted := make([]*domain.Participant, len(participants))
	copy(sorted, participants)

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		if !sorted[i].JoinedAt.Equal(sorted[j].JoinedAt) {
			return sorted[i].JoinedAt.Before(sorted[j].JoinedAt)
		}
		return sorted[i].DisplayName < sorted[j].DisplayName
	})

	standings := make([]domain.Standing, 0, len(sorted))
	for i, p := range sorted {
		standings = append(standings, domain.Standing{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Score:         p.Score,
			Rank:          i + 1,
		})
	}
	return domain.Leaderboard{
		SessionID: sessionID,
		Standings: standings,
		UpdatedAt: updatedAt,
	}
}
