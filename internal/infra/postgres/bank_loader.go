package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quizhall/internal/domain"
)

// BankLoader reads the question bank from Postgres, one JSONB row per list.
// The position column preserves list declaration order.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) LoadBank(ctx context.Context) (domain.QuestionBank, error) {
	rows, err := l.pool.Query(ctx, `SELECT key, data FROM question_lists ORDER BY position, key`)
	if err != nil {
		return domain.QuestionBank{}, fmt.Errorf("load bank: %w", err)
	}
	defer rows.Close()

	bank := domain.QuestionBank{Lists: make(map[string][]domain.Question)}
	for rows.Next() {
		var key string
		var raw []byte
		if err := rows.Scan(&key, &raw); err != nil {
			return domain.QuestionBank{}, fmt.Errorf("scan list: %w", err)
		}
		var questions []domain.Question
		if err := json.Unmarshal(raw, &questions); err != nil {
			return domain.QuestionBank{}, fmt.Errorf("unmarshal list %q: %w", key, err)
		}
		bank.Keys = append(bank.Keys, key)
		bank.Lists[key] = questions
	}
	if err := rows.Err(); err != nil {
		return domain.QuestionBank{}, fmt.Errorf("load bank: %w", err)
	}
	return bank, nil
}
