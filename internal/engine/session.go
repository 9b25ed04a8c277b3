package engine

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"live-quiz-engine/internal/domain"

	"github.com/google/uuid"
)

// Session is the in-memory aggregate for one live quiz run. All mutating
// operations (join, submit, hint, advance, close) serialize on one mutex per
// session; sessions never share state, so unrelated sessions proceed fully
// in parallel.
type Session struct {
	id         string
	quiz       domain.QuizDefinition
	code       string
	hostSecret string
	createdAt  time.Time

	now func() time.Time
	rnd *rand.Rand

	mu           sync.Mutex
	phase        domain.Phase
	finishedAt   time.Time
	nextIndex    int
	current      *round
	played       []*round
	participants map[string]*domain.Participant
	names        map[string]struct{}
	subscribers  map[chan Event]struct{}
	timer        *time.Timer
	onFinish     func(domain.SessionResult)
}

func newSession(quiz domain.QuizDefinition, code, hostSecret string, now func() time.Time, rnd *rand.Rand) *Session {
	return &Session{
		id:           uuid.NewString(),
		quiz:         quiz,
		code:         code,
		hostSecret:   hostSecret,
		createdAt:    now(),
		now:          now,
		rnd:          rnd,
		phase:        domain.PhaseCreated,
		participants: make(map[string]*domain.Participant),
		names:        make(map[string]struct{}),
		subscribers:  make(map[chan Event]struct{}),
	}
}

func (s *Session) ID() string   { return s.id }
func (s *Session) Code() string { return s.code }

// HostSecret is the opaque capability that authorizes host commands. It is
// handed out exactly once, in the create-session response.
func (s *Session) HostSecret() string { return s.hostSecret }

func (s *Session) QuizTitle() string  { return s.quiz.Title }
func (s *Session) QuestionCount() int { return len(s.quiz.Questions) }
func (s *Session) HintAllowance() int { return s.quiz.HintAllowance }

func (s *Session) isHost(secret string) bool {
	return secret != "" && secret == s.hostSecret
}

// AuthorizeHost verifies the host capability without mutating state.
func (s *Session) AuthorizeHost(secret string) error {
	if !s.isHost(secret) {
		return domain.ErrNotHost
	}
	return nil
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconcileOverdueLocked()
	return s.phase
}

// Open moves the session from created to lobby, making it joinable.
func (s *Session) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseCreated {
		return
	}
	s.phase = domain.PhaseLobby
	s.broadcastLocked(Event{Type: EventPhaseChanged, SessionID: s.id, Payload: PhaseChangedPayload{Phase: s.phase}})
}

// Join registers a participant while the session is in the lobby. Late joins
// are rejected so every participant plays from round one with a full hint
// budget.
func (s *Session) Join(displayName string) (domain.Participant, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return domain.Participant{}, domain.ErrNameTaken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case domain.PhaseLobby:
	case domain.PhaseFinished:
		return domain.Participant{}, domain.ErrSessionFinished
	default:
		return domain.Participant{}, domain.ErrSessionNotJoinable
	}
	if _, taken := s.names[name]; taken {
		return domain.Participant{}, domain.ErrNameTaken
	}

	p := &domain.Participant{
		ID:          uuid.NewString(),
		DisplayName: name,
		JoinedAt:    s.now(),
	}
	s.participants[p.ID] = p
	s.names[name] = struct{}{}

	// Roster update for the lobby screen; scores are all zero here, so no
	// mid-round information can leak through the ordering.
	s.broadcastLocked(Event{Type: EventLeaderboardUpdated, SessionID: s.id, Payload: LeaderboardUpdatedPayload{
		Leaderboard: s.leaderboardLocked(),
	}})
	return *p, nil
}

// StartQuestion opens a round for question index (zero-based). Only the next
// unplayed question may start, and only the host may start it.
func (s *Session) StartQuestion(secret string, index int) error {
	if !s.isHost(secret) {
		return domain.ErrNotHost
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconcileOverdueLocked()

	switch s.phase {
	case domain.PhaseLobby, domain.PhaseBetweenQuestions:
	case domain.PhaseFinished:
		return domain.ErrSessionFinished
	default:
		return domain.ErrQuestionOrder
	}
	if index != s.nextIndex || index >= len(s.quiz.Questions) {
		return domain.ErrQuestionOrder
	}

	r := newRound(index, s.quiz.Questions[index], s.now())
	s.current = r
	s.nextIndex++
	s.phase = domain.PhaseInQuestion

	roundID := r.id
	s.timer = time.AfterFunc(r.limit, func() { s.expireRound(roundID) })

	s.broadcastLocked(Event{Type: EventPhaseChanged, SessionID: s.id, Payload: PhaseChangedPayload{Phase: s.phase}})
	s.broadcastLocked(Event{Type: EventQuestionStarted, SessionID: s.id, Payload: QuestionStartedPayload{
		RoundID:         r.id,
		QuestionIndex:   r.index,
		QuestionText:    r.question.Text,
		Options:         publicOptions(r.question),
		LimitSeconds:    int(r.limit / time.Second),
		ServerStartTime: r.startedAt,
	}})
	return nil
}

// Submit records a participant's answer for the active round and returns the
// award. The round auto-closes once every participant has answered.
func (s *Session) Submit(participantID string, optionIDs []string) (domain.AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == domain.PhaseFinished {
		return domain.AnswerResult{}, domain.ErrSessionFinished
	}
	p, ok := s.participants[participantID]
	if !ok {
		return domain.AnswerResult{}, domain.ErrParticipantNotFound
	}
	s.reconcileOverdueLocked()
	if s.phase != domain.PhaseInQuestion || s.current == nil {
		return domain.AnswerResult{}, domain.ErrRoundNotActive
	}

	sub, err := s.current.accept(participantID, optionIDs, s.now())
	if err != nil {
		return domain.AnswerResult{}, err
	}

	result := domain.AnswerResult{
		RoundID:    s.current.id,
		Correct:    sub.Correct,
		Awarded:    sub.Awarded,
		TotalScore: p.Score + sub.Awarded,
	}
	if len(s.current.submissions) >= len(s.participants) {
		s.closeCurrentLocked()
	}
	return result, nil
}

// RequestHint spends one joker for the active round. A repeat request for
// the same round replays the stored redaction without spending another
// joker, so retries are idempotent.
func (s *Session) RequestHint(participantID string) (domain.HintReveal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == domain.PhaseFinished {
		return domain.HintReveal{}, domain.ErrSessionFinished
	}
	p, ok := s.participants[participantID]
	if !ok {
		return domain.HintReveal{}, domain.ErrParticipantNotFound
	}
	s.reconcileOverdueLocked()
	if s.phase != domain.PhaseInQuestion || s.current == nil {
		return domain.HintReveal{}, domain.ErrRoundNotActive
	}
	if reveal, ok := s.current.reveals[participantID]; ok {
		return reveal, nil
	}
	if s.current.hasSubmitted(participantID) {
		return domain.HintReveal{}, domain.ErrAlreadySubmitted
	}
	if p.HintsUsed >= s.quiz.HintAllowance {
		return domain.HintReveal{}, domain.ErrHintsExhausted
	}

	remaining, err := redactOptions(s.current.question, s.rnd)
	if err != nil {
		return domain.HintReveal{}, err
	}
	p.HintsUsed++
	reveal := domain.HintReveal{
		RoundID:        s.current.id,
		RemainingIDs:   remaining,
		HintsRemaining: s.quiz.HintAllowance - p.HintsUsed,
	}
	s.current.reveals[participantID] = reveal
	return reveal, nil
}

// EndQuestion force-closes the active round. Closing is idempotent, so a
// race with the deadline timer resolves to a single finalization.
func (s *Session) EndQuestion(secret string) error {
	if !s.isHost(secret) {
		return domain.ErrNotHost
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == domain.PhaseFinished {
		return domain.ErrSessionFinished
	}
	if s.phase != domain.PhaseInQuestion || s.current == nil {
		// Lost race against the deadline timer: the round is already
		// finalized, so this is a no-op rather than an error.
		if s.current != nil && s.current.closed {
			return nil
		}
		return domain.ErrRoundNotActive
	}
	s.closeCurrentLocked()
	return nil
}

// End terminates the session. A still-active round is finalized first so
// accepted submissions count, then the session transitions to finished.
func (s *Session) End(secret string) error {
	if !s.isHost(secret) {
		return domain.ErrNotHost
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == domain.PhaseFinished {
		return domain.ErrSessionFinished
	}
	if s.phase == domain.PhaseInQuestion && s.current != nil && !s.current.closed {
		s.closeRoundLocked()
	}
	if s.phase != domain.PhaseFinished {
		s.finishLocked()
	}
	return nil
}

// expireRound is the deadline-timer callback for one specific round.
func (s *Session) expireRound(roundID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.id != roundID || s.current.closed {
		return
	}
	s.closeCurrentLocked()
}

// reconcileOverdueLocked closes the current round if its deadline already
// passed. Read paths call this so correctness does not depend on the timer
// firing promptly.
func (s *Session) reconcileOverdueLocked() {
	if s.phase != domain.PhaseInQuestion || s.current == nil || s.current.closed {
		return
	}
	if s.now().After(s.current.startedAt.Add(s.current.limit)) {
		s.closeCurrentLocked()
	}
}

// closeRoundLocked finalizes the current round without advancing phase:
// awards fold into cumulative scores and closure events are emitted.
func (s *Session) closeRoundLocked() {
	r := s.current
	if r == nil || r.closed {
		return
	}
	r.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	for id, sub := range r.submissions {
		if p, ok := s.participants[id]; ok {
			p.Score += sub.Awarded
		}
	}
	s.played = append(s.played, r)

	s.broadcastLocked(Event{Type: EventQuestionClosed, SessionID: s.id, Payload: QuestionClosedPayload{
		RoundID:       r.id,
		QuestionIndex: r.index,
		OptionStats:   r.optionStats(),
	}})
	s.broadcastLocked(Event{Type: EventLeaderboardUpdated, SessionID: s.id, Payload: LeaderboardUpdatedPayload{
		Leaderboard: s.leaderboardLocked(),
	}})
}

// closeCurrentLocked finalizes the round and moves the session on: between
// questions when more remain, finished after the last one.
func (s *Session) closeCurrentLocked() {
	if s.current == nil || s.current.closed {
		return
	}
	s.closeRoundLocked()
	if s.nextIndex >= len(s.quiz.Questions) {
		s.finishLocked()
		return
	}
	s.phase = domain.PhaseBetweenQuestions
	s.broadcastLocked(Event{Type: EventPhaseChanged, SessionID: s.id, Payload: PhaseChangedPayload{Phase: s.phase}})
}

func (s *Session) finishLocked() {
	if s.phase == domain.PhaseFinished {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.phase = domain.PhaseFinished
	s.finishedAt = s.now()

	final := s.leaderboardLocked()
	s.broadcastLocked(Event{Type: EventPhaseChanged, SessionID: s.id, Payload: PhaseChangedPayload{Phase: s.phase}})
	s.broadcastLocked(Event{Type: EventSessionFinished, SessionID: s.id, Payload: SessionFinishedPayload{
		FinalStandings: final.Standings,
	}})

	if s.onFinish != nil {
		result := s.resultLocked(final)
		go s.onFinish(result)
	}
}

// Leaderboard returns the current standings snapshot.
func (s *Session) Leaderboard() domain.Leaderboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconcileOverdueLocked()
	return s.leaderboardLocked()
}

func (s *Session) leaderboardLocked() domain.Leaderboard {
	participants := make([]*domain.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		participants = append(participants, p)
	}
	return rankStandings(s.id, participants, s.now())
}

// Result returns the finished-session projection for archival and export.
func (s *Session) Result() (domain.SessionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseFinished {
		return domain.SessionResult{}, domain.ErrResultsNotReady
	}
	return s.resultLocked(s.leaderboardLocked()), nil
}

func (s *Session) resultLocked(final domain.Leaderboard) domain.SessionResult {
	result := domain.SessionResult{
		SessionID:  s.id,
		QuizID:     s.quiz.ID,
		JoinCode:   s.code,
		FinishedAt: s.finishedAt,
		Standings:  final.Standings,
	}
	for _, r := range s.played {
		texts := make(map[string]string, len(r.question.Options))
		for _, opt := range r.question.Options {
			texts[opt.ID] = opt.Text
		}
		for id, sub := range r.submissions {
			p, ok := s.participants[id]
			if !ok {
				continue
			}
			answers := make([]string, 0, len(sub.OptionIDs))
			for _, optID := range sub.OptionIDs {
				answers = append(answers, texts[optID])
			}
			result.Responses = append(result.Responses, domain.ResponseRecord{
				Participant:  p.DisplayName,
				QuestionText: r.question.Text,
				AnswerText:   strings.Join(answers, "; "),
				Correct:      sub.Correct,
				Elapsed:      sub.ReceivedAt.Sub(r.startedAt),
			})
		}
	}
	return result
}

// Subscribe returns a channel receiving this session's events. The caller
// must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest event so a slow client cannot stall the session.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func publicOptions(q domain.QuestionDefinition) []PublicOption {
	options := make([]PublicOption, 0, len(q.Options))
	for _, opt := range q.Options {
		options = append(options, PublicOption{ID: opt.ID, Text: opt.Text})
	}
	return options
}
