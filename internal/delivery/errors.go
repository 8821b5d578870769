package delivery

import "errors"

// Sentinel errors for the delivery worker.
var (
	// ErrDeliveryFailed indicates a hit could not be delivered after all
	// retry attempts. Remaining hits in the same batch are not sent.
	ErrDeliveryFailed = errors.New("hit delivery failed")

	// ErrClientRejected indicates the collection endpoint rejected the hit
	// with a 4xx status. These are never retried.
	ErrClientRejected = errors.New("hit rejected by collection endpoint")

	// ErrNoSettings indicates no destination settings source was configured.
	ErrNoSettings = errors.New("either SETTINGS_JSON or SETTINGS_PATH is required")
)
