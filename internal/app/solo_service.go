package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"quizhall/internal/domain"
)

// SessionStore abstracts solo session persistence (in-memory, Redis).
type SessionStore interface {
	Get(ctx context.Context, token string) (domain.SoloSession, bool, error)
	Put(ctx context.Context, session domain.SoloSession) error
	Delete(ctx context.Context, token string) error
}

// SoloService owns the per-browser exam lifecycle: NEW -> STARTED ->
// SUBMITTED, with lazy 24h expiry forcing back to NEW on next touch.
type SoloService struct {
	store SessionStore
	bank  *BankService
	seeds *seedSource
	now   func() time.Time
	token func() string
}

func NewSoloService(store SessionStore, bank *BankService) *SoloService {
	return &SoloService{
		store: store,
		bank:  bank,
		seeds: newSeedSource(),
		now:   time.Now,
		token: uuid.NewString,
	}
}

// EnsureSession validates the caller's session and returns it, transparently
// replacing a missing or expired one with a fresh NEW session. Expiry never
// surfaces as an error to the end user.
func (s *SoloService) EnsureSession(ctx context.Context, token string) (domain.SoloSession, error) {
	if token != "" {
		session, ok, err := s.store.Get(ctx, token)
		if err != nil {
			return domain.SoloSession{}, err
		}
		if ok && !session.Expired(s.now()) {
			return session, nil
		}
		if ok {
			if err := s.store.Delete(ctx, token); err != nil {
				return domain.SoloSession{}, err
			}
		}
	}
	return s.createSession(ctx)
}

// StartExam assigns a fresh seed and list to the session and marks it
// started. Calling it on an already-started session simply begins a new exam.
func (s *SoloService) StartExam(ctx context.Context, token, listKey string) (domain.SoloSession, error) {
	session, err := s.EnsureSession(ctx, token)
	if err != nil {
		return domain.SoloSession{}, err
	}
	if listKey == "" {
		listKey = domain.ListAllQuestions
	}
	if _, err := s.bank.Questions(ctx, listKey); err != nil {
		return domain.SoloSession{}, err
	}

	session.Started = true
	session.Submitted = false
	session.Results = nil
	session.Seed = s.seeds.Next()
	session.ListKey = listKey
	if err := s.store.Put(ctx, session); err != nil {
		return domain.SoloSession{}, err
	}
	return session, nil
}

// SetRandomization updates the shuffle flags for the current exam. The next
// GetQuiz re-derives from the same seed under the new flags.
func (s *SoloService) SetRandomization(ctx context.Context, token string, randomizeQuestions, randomizeOptions bool) (domain.SoloSession, error) {
	session, err := s.validSession(ctx, token)
	if err != nil {
		return domain.SoloSession{}, err
	}
	if !session.Started {
		return domain.SoloSession{}, domain.ErrNotStarted
	}
	session.RandomizeQuestions = randomizeQuestions
	session.RandomizeOptions = randomizeOptions
	if err := s.store.Put(ctx, session); err != nil {
		return domain.SoloSession{}, err
	}
	return session, nil
}

// GetQuiz re-derives the session's randomized sequence from the stored seed.
// Every call within one exam returns the identical sequence.
func (s *SoloService) GetQuiz(ctx context.Context, token string) ([]domain.RandomizedQuestion, error) {
	session, err := s.validSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if !session.Started {
		return nil, domain.ErrNotStarted
	}
	return s.bank.DeriveQuiz(ctx, session.ListKey, session.Seed, session.RandomizeQuestions, session.RandomizeOptions)
}

// Submit scores the answer sheet against the re-derived quiz, records the
// outcome, and closes the session to further submissions.
func (s *SoloService) Submit(ctx context.Context, token string, answers map[string]any) (domain.ScoreResult, error) {
	session, err := s.validSession(ctx, token)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	if session.Submitted {
		return domain.ScoreResult{}, domain.ErrAlreadySubmitted
	}
	if !session.Started || session.Seed == 0 {
		return domain.ScoreResult{}, domain.ErrInvalidSession
	}

	questions, err := s.bank.DeriveQuiz(ctx, session.ListKey, session.Seed, session.RandomizeQuestions, session.RandomizeOptions)
	if err != nil {
		return domain.ScoreResult{}, err
	}
	result := Score(questions, answers)

	session.Submitted = true
	session.Results = &domain.ExamOutcome{
		Correct:     result.Correct,
		Total:       result.Total,
		Percentage:  result.Percentage,
		SubmittedAt: s.now(),
	}
	if err := s.store.Put(ctx, session); err != nil {
		return domain.ScoreResult{}, err
	}
	return result, nil
}

// Restart drops the session unconditionally and hands back a fresh NEW one.
func (s *SoloService) Restart(ctx context.Context, token string) (domain.SoloSession, error) {
	if token != "" {
		if err := s.store.Delete(ctx, token); err != nil {
			return domain.SoloSession{}, err
		}
	}
	return s.createSession(ctx)
}

func (s *SoloService) createSession(ctx context.Context) (domain.SoloSession, error) {
	session := domain.SoloSession{
		Token:              s.token(),
		CreatedAt:          s.now(),
		RandomizeQuestions: true,
		RandomizeOptions:   true,
	}
	if err := s.store.Put(ctx, session); err != nil {
		return domain.SoloSession{}, err
	}
	return session, nil
}

// validSession fetches a live session, failing with ErrInvalidSession for an
// unknown token and ErrSessionExpired for a stale one. Unlike EnsureSession it
// never recreates; quiz and submit calls must not silently switch to a
// different exam.
func (s *SoloService) validSession(ctx context.Context, token string) (domain.SoloSession, error) {
	if token == "" {
		return domain.SoloSession{}, domain.ErrInvalidSession
	}
	session, ok, err := s.store.Get(ctx, token)
	if err != nil {
		return domain.SoloSession{}, err
	}
	if !ok {
		return domain.SoloSession{}, domain.ErrInvalidSession
	}
	if session.Expired(s.now()) {
		return domain.SoloSession{}, domain.ErrSessionExpired
	}
	return session, nil
}
