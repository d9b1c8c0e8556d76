package app

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"quizhall/internal/domain"
	"quizhall/internal/infra/memory"
)

func newTestSoloService(t *testing.T) *SoloService {
	t.Helper()
	bank := NewBankService(&countingLoader{bank: testBank()})
	return NewSoloService(memory.NewSoloStore(), bank)
}

func TestEnsureSessionCreatesAndReuses(t *testing.T) {
	ctx := context.Background()
	service := newTestSoloService(t)

	created, err := service.EnsureSession(ctx, "")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if created.Token == "" || created.Started || created.Submitted {
		t.Fatalf("fresh session in wrong state: %+v", created)
	}

	same, err := service.EnsureSession(ctx, created.Token)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if same.Token != created.Token {
		t.Fatalf("valid session was replaced")
	}
}

func TestEnsureSessionReplacesExpired(t *testing.T) {
	ctx := context.Background()
	service := newTestSoloService(t)

	now := time.Now()
	service.now = func() time.Time { return now }

	created, err := service.EnsureSession(ctx, "")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	now = now.Add(domain.SessionTTL + time.Minute)
	replaced, err := service.EnsureSession(ctx, created.Token)
	if err != nil {
		t.Fatalf("ensure after expiry: %v", err)
	}
	if replaced.Token == created.Token {
		t.Fatalf("expired session was not replaced")
	}
	if replaced.Started || replaced.Submitted {
		t.Fatalf("replacement session not fresh: %+v", replaced)
	}
}

func TestGetQuizAfterExpiry(t *testing.T) {
	ctx := context.Background()
	service := newTestSoloService(t)

	now := time.Now()
	service.now = func() time.Time { return now }

	session, _ := service.EnsureSession(ctx, "")
	session, err := service.StartExam(ctx, session.Token, "list1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	now = now.Add(domain.SessionTTL + time.Minute)
	if _, err := service.GetQuiz(ctx, session.Token); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestGetQuizRequiresStart(t *testing.T) {
	ctx := context.Background()
	service := newTestSoloService(t)

	session, _ := service.EnsureSession(ctx, "")
	if _, err := service.GetQuiz(ctx, session.Token); !errors.Is(err, domain.ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}

func TestGetQuizIsStableWithinSession(t *testing.T) {
	ctx := context.Background()
	service := newTestSoloService(t)

	session, _ := service.EnsureSession(ctx, "")
	session, err := service.StartExam(ctx, session.Token, "list1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	first, err := service.GetQuiz(ctx, session.Token)
	if err != nil {
		t.Fatalf("quiz: %v", err)
	}
	second, err := service.GetQuiz(ctx, session.Token)
	if err != nil {
		t.Fatalf("quiz: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same session returned different quizzes")
	}
}

func TestStartExamAgainReassignsSeed(t *testing.T) {
	ctx := context.Background()
	service := newTestSoloService(t)

	session, _ := service.EnsureSession(ctx, "")
	first, err := service.StartExam(ctx, session.Token, "list1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	second, err := service.StartExam(ctx, first.Token, "list1")
	if err != nil {
		t.Fatalf("restart exam: %v", err)
	}
	if second.Seed == first.Seed {
		t.Fatalf("expected a fresh seed on re-start")
	}
	if second.Submitted || second.Results != nil {
		t.Fatalf("re-start must clear submission state: %+v", second)
	}
}

func TestStartExamUnknownList(t *testing.T) {
	ctx := context.Background()
	service := newTestSoloService(t)

	session, _ := service.EnsureSession(ctx, "")
	if _, err := service.StartExam(ctx, session.Token, "nope"); !errors.Is(err, domain.ErrListNotFound) {
		t.Fatalf("expected ErrListNotFound, got %v", err)
	}
}

func TestSubmitScoresAgainstDerivedQuiz(t *testing.T) {
	ctx := context.Background()
	service := newTestSoloService(t)

	session, _ := service.EnsureSession(ctx, "")
	session, err := service.StartExam(ctx, session.Token, "list1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	// Disable shuffling so the sheet below targets the original order:
	// correct indices are [0, 1, 0].
	if _, err := service.SetRandomization(ctx, session.Token, false, false); err != nil {
		t.Fatalf("set randomization: %v", err)
	}

	result, err := service.Submit(ctx, session.Token, map[string]any{"0": 0, "1": 1, "2": 1})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Correct != 2 || result.Total != 3 {
		t.Fatalf("expected 2/3, got %d/%d", result.Correct, result.Total)
	}
	if math.Abs(result.Percentage-200.0/3.0) > 1e-9 {
		t.Fatalf("expected ~66.67%%, got %v", result.Percentage)
	}
}

func TestSubmitTwiceFailsAndKeepsResults(t *testing.T) {
	ctx := context.Background()
	service := newTestSoloService(t)

	session, _ := service.EnsureSession(ctx, "")
	session, _ = service.StartExam(ctx, session.Token, "list1")
	_, _ = service.SetRandomization(ctx, session.Token, false, false)

	first, err := service.Submit(ctx, session.Token, map[string]any{"0": 0, "1": 1, "2": 1})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := service.Submit(ctx, session.Token, map[string]any{"0": 0, "1": 1, "2": 0}); !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}

	stored, err := service.EnsureSession(ctx, session.Token)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if stored.Results == nil || stored.Results.Correct != first.Correct {
		t.Fatalf("second submit altered stored results: %+v", stored.Results)
	}
}

func TestSubmitWithoutStartIsInvalidSession(t *testing.T) {
	ctx := context.Background()
	service := newTestSoloService(t)

	session, _ := service.EnsureSession(ctx, "")
	if _, err := service.Submit(ctx, session.Token, map[string]any{"0": 0}); !errors.Is(err, domain.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if _, err := service.Submit(ctx, "unknown-token", nil); !errors.Is(err, domain.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for unknown token, got %v", err)
	}
}

func TestRestartClearsSession(t *testing.T) {
	ctx := context.Background()
	service := newTestSoloService(t)

	session, _ := service.EnsureSession(ctx, "")
	session, _ = service.StartExam(ctx, session.Token, "list1")

	fresh, err := service.Restart(ctx, session.Token)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if fresh.Token == session.Token {
		t.Fatalf("restart reused the old token")
	}
	if fresh.Started || fresh.Submitted || fresh.Seed != 0 {
		t.Fatalf("restart did not produce a NEW session: %+v", fresh)
	}

	if _, err := service.GetQuiz(ctx, session.Token); !errors.Is(err, domain.ErrInvalidSession) {
		t.Fatalf("old session should be gone, got %v", err)
	}
}

func TestSetRandomizationRequiresStartedExam(t *testing.T) {
	ctx := context.Background()
	service := newTestSoloService(t)

	session, _ := service.EnsureSession(ctx, "")
	if _, err := service.SetRandomization(ctx, session.Token, false, false); !errors.Is(err, domain.ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
}
