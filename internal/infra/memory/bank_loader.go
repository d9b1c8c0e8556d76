package memory

import (
	"context"

	"quizhall/internal/domain"
)

// StaticBankLoader serves a fixed in-memory bank (tests, demos).
type StaticBankLoader struct {
	bank domain.QuestionBank
}

// NewStaticBankLoader builds a loader over lists in the given key order.
func NewStaticBankLoader(keys []string, lists map[string][]domain.Question) *StaticBankLoader {
	return &StaticBankLoader{bank: domain.QuestionBank{Keys: keys, Lists: lists}}
}

func (l *StaticBankLoader) LoadBank(_ context.Context) (domain.QuestionBank, error) {
	return l.bank, nil
}
