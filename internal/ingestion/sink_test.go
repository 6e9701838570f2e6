package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad-indexer/internal/domain"
)

func TestDispatcher_DurableFailureSkipsBroadcast(t *testing.T) {
	broadcast := &recordingSink{}
	durable := SinkFunc(func(context.Context, domain.Event) error { return errors.New("down") })

	d := NewDispatcher(durable, broadcast)
	err := d.Dispatch(context.Background(), &domain.TradeEvent{EventBase: domain.At(1, "0x1", 0)})

	require.Error(t, err)
	assert.Empty(t, broadcast.blocks())
}

func TestDispatcher_BroadcastFailureIsIsolated(t *testing.T) {
	failing := SinkFunc(func(context.Context, domain.Event) error { return errors.New("nats down") })
	recorded := &recordingSink{}

	d := NewDispatcher(nil, failing, recorded).WithLogger(logrusDiscard())
	err := d.Dispatch(context.Background(), &domain.TradeEvent{EventBase: domain.At(1, "0x1", 0)})

	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, recorded.blocks())
}

func TestDispatcher_DurableWriteSurvivesCancel(t *testing.T) {
	var writeErr error
	durable := SinkFunc(func(ctx context.Context, _ domain.Event) error {
		writeErr = ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDispatcher(durable)
	require.NoError(t, d.Dispatch(ctx, &domain.TradeEvent{EventBase: domain.At(1, "0x1", 0)}))
	assert.NoError(t, writeErr)
}
