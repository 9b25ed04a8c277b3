package engine

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	mrand "math/rand"
	"sync"
	"time"

	"live-quiz-engine/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.QuizDefinition, error)
}

// CodeRegistry guarantees join-code uniqueness among active sessions, across
// every instance that shares the backing store. Codes are released on finish
// so they can be recycled.
type CodeRegistry interface {
	Reserve(ctx context.Context, code string) (bool, error)
	Release(ctx context.Context, code string) error
}

// ResultArchiver persists the finished-session projection.
type ResultArchiver interface {
	ArchiveResult(ctx context.Context, result domain.SessionResult) error
}

// joinCodeAlphabet omits easily confused characters (I, O, 0, 1).
const (
	joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	joinCodeLength   = 6
)

// Service is the keyed store of live sessions. Sessions are indexed by join
// code; each carries its own lock, so the service-level mutex only guards
// the index itself.
type Service struct {
	quizzes  QuizRepository
	codes    CodeRegistry
	archiver ResultArchiver

	now func() time.Time
	rnd *mrand.Rand

	mu       sync.RWMutex
	sessions map[string]*Session
}

// Option configures a Service.
type Option func(*Service)

// WithClock injects a deterministic clock for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRand injects a seeded random source for deterministic hint redaction.
func WithRand(rnd *mrand.Rand) Option {
	return func(s *Service) { s.rnd = rnd }
}

// WithArchiver persists finished sessions through the given archiver.
func WithArchiver(a ResultArchiver) Option {
	return func(s *Service) { s.archiver = a }
}

func NewService(quizzes QuizRepository, codes CodeRegistry, opts ...Option) *Service {
	s := &Service{
		quizzes:  quizzes,
		codes:    codes,
		now:      time.Now,
		rnd:      mrand.New(mrand.NewSource(time.Now().UnixNano())),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession loads a snapshot of the quiz, mints a unique join code and a
// host secret, and opens the session into the lobby. Edits to the quiz after
// this point do not affect the running session.
func (s *Service) CreateSession(ctx context.Context, quizID string) (*Session, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	quiz = snapshotQuiz(quiz)

	code, err := s.reserveCode(ctx)
	if err != nil {
		return nil, err
	}

	session := newSession(quiz, code, newHostSecret(s.now()), s.now, s.rnd)
	session.onFinish = func(result domain.SessionResult) {
		s.finalize(session, result)
	}

	s.mu.Lock()
	s.sessions[code] = session
	s.mu.Unlock()

	session.Open()
	return session, nil
}

// SessionByCode resolves an active or recently finished session.
func (s *Service) SessionByCode(code string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[code]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// RemoveFinished drops a finished session from the index. Finished sessions
// are kept around so late result reads (CSV export) still resolve; callers
// evict once the results have been collected.
func (s *Service) RemoveFinished(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[code]
	if ok && session.Phase() == domain.PhaseFinished {
		delete(s.sessions, code)
	}
}

// finalize runs after a session reaches the finished phase: the join code is
// released for reuse and the result is archived. The session itself stays in
// the index for result reads; joining it is impossible in the finished phase.
func (s *Service) finalize(session *Session, result domain.SessionResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.codes.Release(ctx, session.Code()); err != nil {
		log.Printf("release join code %s: %v", session.Code(), err)
	}
	if s.archiver != nil {
		if err := s.archiver.ArchiveResult(ctx, result); err != nil {
			log.Printf("archive session %s: %v", session.ID(), err)
		}
	}
}

// reserveCode mints codes until one is free both locally and in the shared
// registry. A finished session can still occupy its code locally until
// evicted, so the local index is checked too.
func (s *Service) reserveCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 32; attempt++ {
		code, err := newJoinCode()
		if err != nil {
			return "", err
		}
		s.mu.RLock()
		_, taken := s.sessions[code]
		s.mu.RUnlock()
		if taken {
			continue
		}
		ok, err := s.codes.Reserve(ctx, code)
		if err != nil {
			return "", fmt.Errorf("reserve join code: %w", err)
		}
		if ok {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique join code")
}

// snapshotQuiz normalizes the loaded template: limits clamped, hint
// allowance bounded, so the engine never sees out-of-range values.
func snapshotQuiz(quiz domain.QuizDefinition) domain.QuizDefinition {
	quiz.HintAllowance = domain.ClampHintAllowance(quiz.HintAllowance)
	questions := make([]domain.QuestionDefinition, len(quiz.Questions))
	copy(questions, quiz.Questions)
	for i := range questions {
		questions[i].LimitSeconds = domain.ClampLimit(questions[i].LimitSeconds)
	}
	quiz.Questions = questions
	return quiz
}

func newJoinCode() (string, error) {
	buf := make([]byte, joinCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate join code: %w", err)
	}
	code := make([]byte, joinCodeLength)
	for i, b := range buf {
		code[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(code), nil
}

// newHostSecret derives a 64-hex capability token from random bytes and the
// current time.
func newHostSecret(now time.Time) string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	sum := sha256.Sum256(append(buf, []byte(now.Format(time.RFC3339Nano))...))
	return hex.EncodeToString(sum[:])
}
