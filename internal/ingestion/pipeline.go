package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/observability"
)

// ErrLiveClosed is returned when the live event stream ends while the
// pipeline is running.
var ErrLiveClosed = errors.New("live event stream closed")

// Pipeline coordinates the handover from backfill to live subscription.
//
// The live subscription is opened first and its events are buffered while
// the backfill catches up. At handover, buffered events at or below the last
// backfilled block are dropped and the rest are dispatched in chain order.
// Afterwards live events are dispatched as they arrive.
type Pipeline struct {
	backfill        *Backfiller
	live            *Live
	dispatcher      *Dispatcher
	gapFillInterval time.Duration
	retryBackoff    time.Duration
	maxBackoff      time.Duration
	logger          *logrus.Entry

	gapFilling atomic.Bool
	handedOver atomic.Bool
}

// PipelineOptions contains configuration for creating a Pipeline.
type PipelineOptions struct {
	Backfill   *Backfiller
	Live       *Live
	Dispatcher *Dispatcher
	// GapFillInterval enables periodic backfill passes while live. Zero disables.
	GapFillInterval time.Duration
	RetryBackoff    time.Duration
	MaxBackoff      time.Duration
	Logger          *logrus.Entry
}

// NewPipeline creates a pipeline.
func NewPipeline(opts PipelineOptions) *Pipeline {
	retryBackoff := opts.RetryBackoff
	if retryBackoff <= 0 {
		retryBackoff = defaultRetryBackoff
	}

	maxBackoff := opts.MaxBackoff
	if maxBackoff < retryBackoff {
		maxBackoff = max(defaultMaxBackoff, retryBackoff)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.WithField("component", "pipeline")
	}

	return &Pipeline{
		backfill:        opts.Backfill,
		live:            opts.Live,
		dispatcher:      opts.Dispatcher,
		gapFillInterval: opts.GapFillInterval,
		retryBackoff:    retryBackoff,
		maxBackoff:      maxBackoff,
		logger:          logger,
	}
}

// HandedOver reports whether the live subscription has become authoritative.
func (p *Pipeline) HandedOver() bool {
	return p.handedOver.Load()
}

// Run subscribes, backfills to head, hands over and dispatches live events
// until ctx is done. Background gap-fill passes finish before Run returns.
func (p *Pipeline) Run(ctx context.Context) error {
	live, err := p.live.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	buf := &liveBuffer{}
	stop := make(chan struct{})
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-live:
				if !ok {
					return
				}
				buf.add(ev)
			}
		}
	}()

	result, err := p.backfill.Run(ctx)
	close(stop)
	<-collected
	// Pick up events already decoded when the collector stopped.
	for pending := true; pending; {
		select {
		case ev, ok := <-live:
			if !ok {
				pending = false
				break
			}
			buf.add(ev)
		default:
			pending = false
		}
	}
	if err != nil {
		return fmt.Errorf("backfill: %w", err)
	}
	last := result.LastBlock

	pending, dropped := buf.drain(last)
	p.logger.WithFields(logrus.Fields{
		"last_block": last,
		"buffered":   len(pending) + dropped,
		"replayed":   len(pending),
		"dropped":    dropped,
	}).Info("handing over to live subscription")

	for _, ev := range pending {
		if err := p.dispatchLive(ctx, ev); err != nil {
			return err
		}
	}
	p.handedOver.Store(true)

	var wg sync.WaitGroup
	defer wg.Wait()
	gapCtx, cancelGap := context.WithCancel(ctx)
	defer cancelGap()

	var gapFill <-chan time.Time
	if p.gapFillInterval > 0 {
		ticker := time.NewTicker(p.gapFillInterval)
		defer ticker.Stop()
		gapFill = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-live:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrLiveClosed
			}
			if ev.Position().BlockNumber <= last {
				continue
			}
			if err := p.dispatchLive(ctx, ev); err != nil {
				return err
			}

		case <-gapFill:
			if !p.gapFilling.CompareAndSwap(false, true) {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer p.gapFilling.Store(false)
				p.runGapFill(gapCtx)
			}()
		}
	}
}

// dispatchLive retries transient write failures of one live event with backoff.
func (p *Pipeline) dispatchLive(ctx context.Context, ev domain.Event) error {
	return retryForever(ctx, p.retryBackoff, p.maxBackoff, func() error {
		return p.dispatcher.Dispatch(ctx, ev)
	}, func(err error, wait time.Duration) {
		pos := ev.Position()
		p.logger.WithFields(logrus.Fields{
			"event": ev.Type(),
			"block": pos.BlockNumber,
			"retry": wait,
		}).WithError(err).Warn("live write failed, retrying")
	})
}

func (p *Pipeline) runGapFill(ctx context.Context) {
	result, err := p.backfill.Run(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.WithError(err).Error("gap fill failed")
		}
		return
	}
	if result.Events > 0 {
		p.logger.WithFields(logrus.Fields{
			"from":   result.FromBlock,
			"to":     result.LastBlock,
			"events": result.Events,
		}).Info("gap fill recovered events")
	}
}

// liveBuffer holds live events received before handover.
type liveBuffer struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *liveBuffer) add(ev domain.Event) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	n := len(b.events)
	b.mu.Unlock()
	observability.UpdateLiveBuffer(n)
}

// drain returns buffered events above last in chain order and the number
// of events dropped as already covered by the backfill.
func (b *liveBuffer) drain(last uint64) ([]domain.Event, int) {
	b.mu.Lock()
	events := b.events
	b.events = nil
	b.mu.Unlock()
	observability.UpdateLiveBuffer(0)

	pending := make([]domain.Event, 0, len(events))
	for _, ev := range events {
		if ev.Position().BlockNumber > last {
			pending = append(pending, ev)
		}
	}
	SortEvents(pending)
	return pending, len(events) - len(pending)
}
