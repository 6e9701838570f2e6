package ingestion

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"launchpad-indexer/internal/chain"
	"launchpad-indexer/internal/domain"
)

// Live subscribes once to each tracked event type and normalises incoming
// logs into the same domain events the backfill produces.
//
// Logs missed while the transport is reconnecting are not re-delivered;
// a backfill pass from the checkpoint closes such gaps.
type Live struct {
	ws       chain.WSClient
	contract *chain.Contract
	events   []string
	buffer   int
	logger   *logrus.Entry
}

// LiveOptions contains configuration for creating a Live engine.
type LiveOptions struct {
	WS       chain.WSClient
	Contract *chain.Contract
	Events   []string // default: chain.TrackedEvents
	Buffer   int      // output channel capacity
	Logger   *logrus.Entry
}

// NewLive creates a live subscription engine.
func NewLive(opts LiveOptions) *Live {
	events := opts.Events
	if len(events) == 0 {
		events = chain.TrackedEvents
	}

	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 4096
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.WithField("component", "live")
	}

	return &Live{
		ws:       opts.WS,
		contract: opts.Contract,
		events:   events,
		buffer:   buffer,
		logger:   logger,
	}
}

// Subscribe opens one subscription per event type and returns the merged,
// decoded stream. The channel is closed when ctx is done or every
// subscription channel has been closed.
func (l *Live) Subscribe(ctx context.Context) (<-chan domain.Event, error) {
	subs := make([]<-chan types.Log, 0, len(l.events))
	for _, name := range l.events {
		filter, err := l.contract.Filter(name)
		if err != nil {
			return nil, err
		}
		ch, err := l.ws.SubscribeLogs(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", name, err)
		}
		subs = append(subs, ch)
		l.logger.WithField("event", name).Info("subscribed")
	}

	out := make(chan domain.Event, l.buffer)

	var wg sync.WaitGroup
	for _, ch := range subs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.forward(ctx, ch, out)
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out, nil
}

func (l *Live) forward(ctx context.Context, in <-chan types.Log, out chan<- domain.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case lg, ok := <-in:
			if !ok {
				return
			}
			ev, ok := decodeLog(l.contract, lg, l.logger)
			if !ok {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}
