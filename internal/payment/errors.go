package payment

import "errors"

var (
	// ErrDuplicateReference means the gateway reference was already
	// consumed by an earlier settlement, whatever its outcome.
	ErrDuplicateReference = errors.New("payment reference already used")

	// ErrVerificationFailed means the gateway knows the reference but did
	// not report a successful charge.
	ErrVerificationFailed = errors.New("payment verification failed")

	// ErrAmountMismatch means the paid amount does not match the price of
	// the claimed coin bundle.
	ErrAmountMismatch = errors.New("payment amount mismatch")

	// ErrVerifierUnavailable means the gateway could not be reached.
	ErrVerifierUnavailable = errors.New("payment verifier unavailable")
)
