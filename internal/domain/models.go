package domain

import "time"

// Question is a single bank entry, immutable once loaded.
type Question struct {
	Number        int      `json:"number"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
}

// QuestionBank holds the full static bank partitioned into named lists.
// Keys preserves declaration order so the combined view is stable.
type QuestionBank struct {
	Lists map[string][]Question
	Keys  []string
}

// Synthetic list keys resolved by the bank service on top of declared lists.
const (
	ListAllQuestions = "all_questions"
	ListRandom120    = "random120"
)

// Random120Size is the sample size for the random120 synthetic list.
const Random120Size = 120

// All returns every question across declared lists, in declaration order.
func (b QuestionBank) All() []Question {
	var combined []Question
	for _, key := range b.Keys {
		combined = append(combined, b.Lists[key]...)
	}
	return combined
}

// RandomizedQuestion is a Question after a seeded shuffle. CorrectAnswer
// points at the same option value it did before the shuffle.
type RandomizedQuestion struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
}

// QuestionView is the client-facing shape of a randomized question. The
// correct index stays server-side; scoring is always server-authoritative.
type QuestionView struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// ViewOf strips the correct indices from a randomized sequence.
func ViewOf(questions []RandomizedQuestion) []QuestionView {
	views := make([]QuestionView, len(questions))
	for i, q := range questions {
		views[i] = QuestionView{Text: q.Text, Options: q.Options}
	}
	return views
}

// ScoreResult is the outcome of scoring one answer sheet.
type ScoreResult struct {
	Correct    int     `json:"correct_answers"`
	Total      int     `json:"total_questions"`
	Percentage float64 `json:"score_percentage"`
}

// SoloSession is the per-browser exam state. The token is opaque; the
// transport maps it to a cookie.
type SoloSession struct {
	Token              string       `json:"token"`
	CreatedAt          time.Time    `json:"created_at"`
	Started            bool         `json:"started"`
	Submitted          bool         `json:"submitted"`
	Seed               int64        `json:"seed"`
	ListKey            string       `json:"list_key"`
	RandomizeQuestions bool         `json:"randomize_questions"`
	RandomizeOptions   bool         `json:"randomize_options"`
	Results            *ExamOutcome `json:"results,omitempty"`
}

// ExamOutcome records a finished solo exam.
type ExamOutcome struct {
	Correct     int       `json:"correct_answers"`
	Total       int       `json:"total_questions"`
	Percentage  float64   `json:"score_percentage"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SessionTTL is how long a solo session stays valid after creation.
// Expiry is checked lazily on access, never by a background sweep.
const SessionTTL = 24 * time.Hour

// Expired reports whether the session has outlived SessionTTL.
func (s SoloSession) Expired(now time.Time) bool {
	return now.Sub(s.CreatedAt) > SessionTTL
}

// PlayerView is a snapshot of one room player for broadcasts.
type PlayerView struct {
	ClientID    string  `json:"clientId"`
	DisplayName string  `json:"displayName"`
	Score       int     `json:"score"`
	ElapsedTime float64 `json:"elapsedTime"`
	Progress    int     `json:"progress"`
	Finished    bool    `json:"finished"`
	IsHost      bool    `json:"isHost"`
}

// RoomEventType discriminates outbound room broadcasts.
type RoomEventType string

const (
	EventPlayerJoined RoomEventType = "playerJoined"
	EventPlayerLeft   RoomEventType = "playerLeft"
	EventGameStarted  RoomEventType = "gameStarted"
	EventLeaderboard  RoomEventType = "leaderboard"
)

// RoomEvent is a fire-and-forget broadcast to every member of a room.
// A missed event is corrected by the next state change, never retried.
type RoomEvent struct {
	Type           RoomEventType  `json:"type"`
	Code           string         `json:"code"`
	Players        []PlayerView   `json:"players,omitempty"`
	Leaderboard    []PlayerView   `json:"leaderboard,omitempty"`
	Questions      []QuestionView `json:"questions,omitempty"`
	TotalQuestions int            `json:"totalQuestions,omitempty"`
	StartTime      time.Time      `json:"startTime,omitempty"`
}
