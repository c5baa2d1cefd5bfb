package core

import "errors"

var (
	// ErrInvalidInput rejects an order or query before any state changes.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPersistence wraps a store failure. When it surfaces from PlaceOrder
	// the returned trades are the fills that committed before the failure.
	ErrPersistence = errors.New("persistence failure")
)
