package order

import "errors"

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrSolutionNotFound = errors.New("solution not found")
	ErrPaymentNotFound  = errors.New("payment not found")

	// ErrOrderNotPending rejects mutation of an order that already reached a
	// terminal state. Terminal orders are never deleted.
	ErrOrderNotPending = errors.New("order is not pending")

	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAlreadyFinalized is returned by the repository when a
	// pending -> terminal compare-and-swap finds the order already
	// finalized. Callers treat it as "already handled", not as a failure.
	ErrAlreadyFinalized = errors.New("order already finalized")

	// ErrCorrelationIDTaken signals a correlation-id unique-constraint
	// violation; Prepare regenerates the token and retries.
	ErrCorrelationIDTaken = errors.New("correlation id already taken")

	// ErrAmountMismatch is surfaced after the order has been failed and a
	// compensating cancellation has been attempted against the gateway.
	ErrAmountMismatch = errors.New("paid amount does not match order total")

	ErrNotPaid = errors.New("payment not completed")

	// ErrGatewayUnavailable wraps network and server failures talking to the
	// payment gateway. Retryable by the caller, never retried internally.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)
