package rooms

import "errors"

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrInvalidState       = errors.New("invalid state")
	ErrAlreadyAnswered    = errors.New("already answered")
	ErrNoActiveBuzzer     = errors.New("no active buzzer")
)
