package ledger

import "errors"

var (
	// ErrAlreadyExists indicates an item with the requested name is present.
	ErrAlreadyExists = errors.New("item already exists")

	// ErrNotFound indicates no item with the requested name exists.
	ErrNotFound = errors.New("item not found")

	// ErrInsufficientStock indicates the requested amount exceeds the current
	// quantity.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrContention indicates the bounded transaction retries were exhausted
	// by concurrent writers.
	ErrContention = errors.New("transaction contention")

	// ErrInvalidAmount indicates a negative quantity, amount, or price.
	ErrInvalidAmount = errors.New("amount must be non-negative")

	// ErrInvalidName indicates an empty item name.
	ErrInvalidName = errors.New("item name must not be empty")
)
