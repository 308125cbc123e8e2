package service

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidInput  = errors.New("invalid input")

	ErrInvalidTransition     = errors.New("invalid transition")
	ErrConflictingTransition = errors.New("conflicting transition")
	ErrInvalidBookingState   = errors.New("invalid booking state")
	ErrDuplicateSignature    = errors.New("duplicate signature")
	ErrContractNotFound      = errors.New("contract not found")
	ErrAlreadyResolved       = errors.New("proposal already resolved")
)
