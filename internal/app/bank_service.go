package app

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"quizhall/internal/domain"
)

// BankLoader fetches the question bank from a backing store (file, Postgres).
type BankLoader interface {
	LoadBank(ctx context.Context) (domain.QuestionBank, error)
}

// BankService loads the static question bank exactly once and serves list
// lookups from the cached copy for process lifetime. The bank is immutable
// after load; there is no eviction and no teardown.
type BankService struct {
	loader BankLoader
	sf     singleflight.Group

	mu   sync.RWMutex
	bank *domain.QuestionBank
}

func NewBankService(loader BankLoader) *BankService {
	return &BankService{loader: loader}
}

// Bank returns the cached question bank, loading it on first access.
// Concurrent first accesses share one load.
func (s *BankService) Bank(ctx context.Context) (domain.QuestionBank, error) {
	s.mu.RLock()
	if s.bank != nil {
		bank := *s.bank
		s.mu.RUnlock()
		return bank, nil
	}
	s.mu.RUnlock()

	result, err, _ := s.sf.Do("bank", func() (interface{}, error) {
		s.mu.RLock()
		if s.bank != nil {
			bank := *s.bank
			s.mu.RUnlock()
			return bank, nil
		}
		s.mu.RUnlock()

		bank, err := s.loader.LoadBank(ctx)
		if err != nil {
			return domain.QuestionBank{}, fmt.Errorf("%w: %v", domain.ErrRepositoryUnavailable, err)
		}
		if err := validateBank(bank); err != nil {
			return domain.QuestionBank{}, fmt.Errorf("%w: %v", domain.ErrRepositoryUnavailable, err)
		}

		s.mu.Lock()
		s.bank = &bank
		s.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return result.(domain.QuestionBank), nil
}

// ListNames returns the declared list keys plus the synthetic
// all_questions and random120 keys.
func (s *BankService) ListNames(ctx context.Context) ([]string, error) {
	bank, err := s.Bank(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(bank.Keys)+2)
	names = append(names, bank.Keys...)
	names = append(names, domain.ListAllQuestions, domain.ListRandom120)
	return names, nil
}

// Questions resolves a list key to its question pool. Both synthetic keys
// resolve to the combined pool; random120 sampling happens at quiz
// derivation so the sampled subset stays tied to the seed.
func (s *BankService) Questions(ctx context.Context, listKey string) ([]domain.Question, error) {
	bank, err := s.Bank(ctx)
	if err != nil {
		return nil, err
	}
	switch listKey {
	case domain.ListAllQuestions, domain.ListRandom120:
		return bank.All(), nil
	}
	questions, ok := bank.Lists[listKey]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrListNotFound, listKey)
	}
	return questions, nil
}

// DeriveQuiz produces the randomized sequence for (listKey, seed, flags).
// Every call with the same inputs yields the same sequence; both session
// managers depend on that to score what they served.
func (s *BankService) DeriveQuiz(ctx context.Context, listKey string, seed int64, shuffleQuestions, shuffleOptions bool) ([]domain.RandomizedQuestion, error) {
	pool, err := s.Questions(ctx, listKey)
	if err != nil {
		return nil, err
	}
	if listKey == domain.ListRandom120 {
		pool = Sample(pool, domain.Random120Size, seed)
	}
	return Shuffle(pool, seed, shuffleQuestions, shuffleOptions), nil
}

func validateBank(bank domain.QuestionBank) error {
	if len(bank.Keys) == 0 {
		return fmt.Errorf("bank declares no lists")
	}
	for _, key := range bank.Keys {
		questions, ok := bank.Lists[key]
		if !ok {
			return fmt.Errorf("list %q declared but missing", key)
		}
		for i, q := range questions {
			if q.Text == "" {
				return fmt.Errorf("list %q question %d: empty text", key, i)
			}
			if len(q.Options) == 0 {
				return fmt.Errorf("list %q question %d: no options", key, i)
			}
			if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
				return fmt.Errorf("list %q question %d: correct_answer %d out of range", key, i, q.CorrectAnswer)
			}
		}
	}
	return nil
}
