package models

import "errors"

// Domain errors. Services wrap these with context; callers match with errors.Is.
var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidCorrection = errors.New("invalid correction")
	ErrDuplicatePending  = errors.New("a pending application already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidState      = errors.New("invalid state")
	ErrIntegrity         = errors.New("integrity violation")
	ErrAlreadyExists     = errors.New("already exists")
)
