package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"quizhall/internal/domain"
)

// BankLoader reads the question bank from a JSON document produced by the
// offline converter: an object keyed by list name, each value an ordered
// array of question objects. List order in the document is preserved so the
// combined all_questions view is stable across loads.
type BankLoader struct {
	path string
}

func NewBankLoader(path string) *BankLoader {
	return &BankLoader{path: path}
}

func (l *BankLoader) LoadBank(_ context.Context) (domain.QuestionBank, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return domain.QuestionBank{}, fmt.Errorf("open bank: %w", err)
	}
	defer f.Close()

	// Decode token by token: json.Unmarshal into a map would lose the
	// declaration order of the lists.
	dec := json.NewDecoder(f)
	tok, err := dec.Token()
	if err != nil {
		return domain.QuestionBank{}, fmt.Errorf("read bank: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return domain.QuestionBank{}, fmt.Errorf("bank document is not an object keyed by list name")
	}

	bank := domain.QuestionBank{Lists: make(map[string][]domain.Question)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return domain.QuestionBank{}, fmt.Errorf("read list key: %w", err)
		}
		key := keyTok.(string)

		var questions []domain.Question
		if err := dec.Decode(&questions); err != nil {
			return domain.QuestionBank{}, fmt.Errorf("list %q is not a question array: %w", key, err)
		}
		bank.Keys = append(bank.Keys, key)
		bank.Lists[key] = questions
	}
	if _, err := dec.Token(); err != nil {
		return domain.QuestionBank{}, fmt.Errorf("read bank: %w", err)
	}
	return bank, nil
}
