package app

import (
	"math/rand"

	"quizhall/internal/domain"
)

// Shuffle derives a randomized question sequence from a seed. The same
// (questions, seed, flags) tuple always yields the same output; call sites
// rely on this to re-derive the exact quiz a client saw without ever sending
// correct indices over the wire.
//
// The generator is local to the call. Sharing a seeded generator across
// requests would break reproducibility under concurrency.
func Shuffle(questions []domain.Question, seed int64, shuffleQuestions, shuffleOptions bool) []domain.RandomizedQuestion {
	rng := rand.New(rand.NewSource(seed))

	out := make([]domain.RandomizedQuestion, 0, len(questions))
	for _, q := range questions {
		rq := domain.RandomizedQuestion{
			Text:          q.Text,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
		}
		if shuffleOptions && len(q.Options) > 0 {
			perm := rng.Perm(len(q.Options))
			options := make([]string, len(q.Options))
			for newPos, origPos := range perm {
				options[newPos] = q.Options[origPos]
				if origPos == q.CorrectAnswer {
					rq.CorrectAnswer = newPos
				}
			}
			rq.Options = options
		}
		out = append(out, rq)
	}

	if shuffleQuestions {
		rng.Shuffle(len(out), func(i, j int) {
			out[i], out[j] = out[j], out[i]
		})
	}
	return out
}

// Sample picks n questions without replacement, reproducibly from the seed.
// Used for the random120 list; sampling runs on its own generator so that the
// subsequent Shuffle call can reseed with the same value (two-phase scheme:
// sample, reseed, shuffle).
func Sample(questions []domain.Question, n int, seed int64) []domain.Question {
	if n >= len(questions) {
		n = len(questions)
	}
	if n < 0 {
		n = 0
	}
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(len(questions))

	sampled := make([]domain.Question, 0, n)
	for _, idx := range perm[:n] {
		sampled = append(sampled, questions[idx])
	}
	return sampled
}
