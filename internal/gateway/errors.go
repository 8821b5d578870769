package gateway

import "errors"

// Sentinel errors for the gateway package.
var (
	ErrMessageRequired   = errors.New("message is required")
	ErrAtLeastOneMessage = errors.New("at least one message is required")

	// Validation errors
	ErrTypeRequired     = errors.New("type is required")
	ErrIdentityRequired = errors.New("either userId or anonymousId is required")
	ErrEventRequired    = errors.New("event name is required for track messages")
	ErrBatchTooLarge    = errors.New("batch exceeds maximum message count")
)
