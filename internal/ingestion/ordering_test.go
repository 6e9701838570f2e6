package ingestion

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"launchpad-indexer/internal/domain"
)

func logrusDiscard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestSortEvents(t *testing.T) {
	events := []domain.Event{
		&domain.TradeEvent{EventBase: domain.At(2, "0xa", 1)},
		&domain.TokenCreatedEvent{EventBase: domain.At(1, "0xb", 4)},
		&domain.TradeEvent{EventBase: domain.At(2, "0xa", 0)},
		&domain.FeesCollectedEvent{EventBase: domain.At(1, "0xc", 2)},
	}

	assert.ErrorIs(t, ValidateOrdering(events), ErrInvalidOrdering)

	SortEvents(events)

	assert.NoError(t, ValidateOrdering(events))
	assert.Equal(t, domain.EventFeesCollected, events[0].Type())
	assert.Equal(t, domain.EventTokenCreated, events[1].Type())
	assert.Equal(t, uint(0), events[2].Position().LogIndex)
}

func TestValidateOrdering_RejectsDuplicates(t *testing.T) {
	events := []domain.Event{
		&domain.TradeEvent{EventBase: domain.At(1, "0xa", 0)},
		&domain.TradeEvent{EventBase: domain.At(1, "0xa", 0)},
	}
	assert.ErrorIs(t, ValidateOrdering(events), ErrInvalidOrdering)
}
