package ingestion

import (
	"errors"
	"sort"

	"launchpad-indexer/internal/domain"
)

// ErrInvalidOrdering is returned when events are not properly ordered.
var ErrInvalidOrdering = errors.New("events are not in chain order")

// SortEvents orders events by (block_number ASC, log_index ASC).
// Log indexes are unique within a block, so the order is total across event types.
func SortEvents(events []domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Position().Less(events[j].Position())
	})
}

// ValidateOrdering checks that events are strictly increasing in chain order.
// Returns ErrInvalidOrdering if not.
func ValidateOrdering(events []domain.Event) error {
	for i := 1; i < len(events); i++ {
		if !events[i-1].Position().Less(events[i].Position()) {
			return ErrInvalidOrdering
		}
	}
	return nil
}
