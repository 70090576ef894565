package services

import "errors"

// Validation errors reject a single action and are surfaced only to the
// acting connection as an error event; they never mutate session state.
var (
	ErrAlreadyQueued    = errors.New("already in queue")
	ErrAlreadyInBattle  = errors.New("already in battle")
	ErrBattleNotFound   = errors.New("battle not found")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrCardNotFound     = errors.New("card not found")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrInvalidLane      = errors.New("invalid lane")
	ErrCardOwnership    = errors.New("card not in hand")
	ErrBattleNotStarted = errors.New("battle not started")
	ErrBattleOver       = errors.New("battle already completed")
	ErrPersistence      = errors.New("persistence failure")
)
