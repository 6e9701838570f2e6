package writer

import (
	"errors"

	"launchpad-indexer/internal/storage"
)

// Outcome classifies the result of a single write.
type Outcome int

const (
	// OutcomeStored means the event changed durable state.
	OutcomeStored Outcome = iota
	// OutcomeDuplicate means the event was already recorded. Counts as success.
	OutcomeDuplicate
	// OutcomeSkipped means the data was rejected and will never succeed as is.
	OutcomeSkipped
	// OutcomeTransient means the write may succeed when retried.
	OutcomeTransient
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStored:
		return "stored"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeTransient:
		return "transient"
	}
	return "unknown"
}

// Classify maps a store error to an Outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeStored
	case errors.Is(err, storage.ErrDuplicateKey):
		return OutcomeDuplicate
	case errors.Is(err, storage.ErrInvalidInput), errors.Is(err, storage.ErrNotFound):
		return OutcomeSkipped
	default:
		return OutcomeTransient
	}
}
