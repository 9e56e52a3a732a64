package store

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrPhoneTaken      = errors.New("phone already registered")
	ErrSessionNotFound = errors.New("session not found")
	ErrSalonNotFound   = errors.New("salon not found")
	ErrServiceNotFound = errors.New("service not found")
	ErrEntryNotFound   = errors.New("queue entry not found")
	ErrSalonClosed     = errors.New("salon is closed")
	ErrInvalidState    = errors.New("invalid queue entry state")
	ErrTokenConflict   = errors.New("token number already waiting")
)
