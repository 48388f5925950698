package core

import "errors"

var (
	ErrGameNotFound    = errors.New("game binary not found")
	ErrSessionNotFound = errors.New("game session not found")
	ErrInvalidRequest  = errors.New("invalid request")
)
