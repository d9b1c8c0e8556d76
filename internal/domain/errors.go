package domain

import "errors"

var (
	// ErrRepositoryUnavailable is returned when the question backing store is missing or malformed.
	ErrRepositoryUnavailable = errors.New("question repository unavailable")
	// ErrListNotFound is returned for an unknown question list key.
	ErrListNotFound = errors.New("question list not found")
	// ErrInvalidSession is returned when a solo operation needs a started session and has none.
	ErrInvalidSession = errors.New("invalid session")
	// ErrSessionExpired marks a solo session past its TTL; callers recover by recreating.
	ErrSessionExpired = errors.New("session expired")
	// ErrNotStarted is returned when the quiz is requested before the exam started.
	ErrNotStarted = errors.New("exam not started")
	// ErrAlreadySubmitted guards against double submission in both solo and room play.
	ErrAlreadySubmitted = errors.New("answers already submitted")
	// ErrRoomNotFound is returned for an unknown room code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrAlreadyStarted is returned when joining a room whose game is in progress.
	ErrAlreadyStarted = errors.New("game already started")
	// ErrUnauthorized is returned when a non-host tries to start the game.
	ErrUnauthorized = errors.New("only the host can start the game")
	// ErrListMismatch is returned when a join requests a synthetic list key that
	// differs from the room's actual list.
	ErrListMismatch = errors.New("requested list does not match room list")
	// ErrPlayerNotFound is returned when a room operation names an unknown player.
	ErrPlayerNotFound = errors.New("player not found in room")
)
