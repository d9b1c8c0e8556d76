package app

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"quizhall/internal/domain"
)

// Score compares an answer sheet against a randomized question sequence.
// It is pure: safe to call repeatedly for live scoring and re-verification.
//
// Sheets arrive from JSON payloads, so keys are strings and values are
// whatever the decoder produced. Callers may key positions from 0 or from 1;
// the convention is detected per sheet, not assumed. A missing or unparsable
// answer counts as incorrect, never as an error.
func Score(questions []domain.RandomizedQuestion, answers map[string]any) domain.ScoreResult {
	total := len(questions)
	if total == 0 {
		return domain.ScoreResult{}
	}

	base := answerBase(answers, total)
	correct := 0
	for i, q := range questions {
		raw, ok := answers[strconv.Itoa(i+base)]
		if !ok {
			continue
		}
		selected, ok := answerIndex(raw)
		if ok && selected == q.CorrectAnswer {
			correct++
		}
	}

	return domain.ScoreResult{
		Correct:    correct,
		Total:      total,
		Percentage: 100 * float64(correct) / float64(total),
	}
}

// AnswersFromInts adapts an integer-keyed sheet to the Score input shape.
func AnswersFromInts(answers map[int]int) map[string]any {
	out := make(map[string]any, len(answers))
	for pos, idx := range answers {
		out[strconv.Itoa(pos)] = idx
	}
	return out
}

// answerBase detects whether the sheet keys positions from 0 or from 1.
// A "0" key can only mean 0-based; a key equal to the question count can
// only mean 1-based. Ambiguous sheets default to 0-based.
func answerBase(answers map[string]any, total int) int {
	if _, ok := answers["0"]; ok {
		return 0
	}
	if _, ok := answers[strconv.Itoa(total)]; ok {
		return 1
	}
	return 0
}

// answerIndex coerces a submitted option index out of a decoded JSON value.
func answerIndex(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
