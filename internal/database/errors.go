package database

import "errors"

var (
	// ErrInsufficientCoins is returned when a debit would drive a balance
	// below zero.
	ErrInsufficientCoins = errors.New("insufficient coins")

	// ErrConcurrentModification is returned when the conditional balance
	// update lost a race and exhausted its retries.
	ErrConcurrentModification = errors.New("balance changed concurrently")
)
