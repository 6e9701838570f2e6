package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"launchpad-indexer/internal/chain"
	"launchpad-indexer/internal/domain"
	"launchpad-indexer/internal/observability"
	"launchpad-indexer/internal/storage"
)

// Backfiller walks historical logs from the checkpoint to the chain head in
// bounded block ranges. It is the only writer of the checkpoint.
type Backfiller struct {
	rpc          chain.RPCClient
	contract     *chain.Contract
	events       []string
	checkpoint   storage.CheckpointStore
	dispatcher   *Dispatcher
	startBlock   uint64
	batchSize    uint64
	retryBackoff time.Duration
	maxBackoff   time.Duration
	logger       *logrus.Entry
}

// BackfillOptions contains configuration for creating a Backfiller.
type BackfillOptions struct {
	RPC        chain.RPCClient
	Contract   *chain.Contract
	Events     []string // default: chain.TrackedEvents
	Checkpoint storage.CheckpointStore
	Dispatcher *Dispatcher
	// StartBlock is used when no checkpoint has been saved yet.
	StartBlock   uint64
	BatchSize    uint64
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
	Logger       *logrus.Entry
}

// NewBackfiller creates a new historical backfiller.
func NewBackfiller(opts BackfillOptions) *Backfiller {
	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = 2000
	}

	events := opts.Events
	if len(events) == 0 {
		events = chain.TrackedEvents
	}

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
		logger = logrus.WithField("component", "backfill")
	}

	return &Backfiller{
		rpc:          opts.RPC,
		contract:     opts.Contract,
		events:       events,
		checkpoint:   opts.Checkpoint,
		dispatcher:   opts.Dispatcher,
		startBlock:   opts.StartBlock,
		batchSize:    batchSize,
		retryBackoff: retryBackoff,
		maxBackoff:   maxBackoff,
		logger:       logger,
	}
}

// BackfillResult contains statistics from a backfill operation.
type BackfillResult struct {
	FromBlock  uint64
	LastBlock  uint64 // last fully processed block
	Ranges     int
	Events     int
	Retries    int
	Duration   time.Duration
	Resumed    bool // a checkpoint existed at start
}

// Run backfills from the block after the checkpoint (or StartBlock when no
// checkpoint exists) to the chain head. It returns once caught up.
func (b *Backfiller) Run(ctx context.Context) (*BackfillResult, error) {
	cp, err := b.checkpoint.Load(ctx)
	switch {
	case err == nil:
		return b.run(ctx, cp+1, &cp)
	case errors.Is(err, storage.ErrNotFound):
		return b.run(ctx, b.startBlock, nil)
	default:
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
}

// RunFrom backfills from an explicit block to the chain head.
// The checkpoint is only advanced past its current value, never lowered.
func (b *Backfiller) RunFrom(ctx context.Context, from uint64) (*BackfillResult, error) {
	cp, err := b.checkpoint.Load(ctx)
	switch {
	case err == nil:
		return b.run(ctx, from, &cp)
	case errors.Is(err, storage.ErrNotFound):
		return b.run(ctx, from, nil)
	default:
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
}

func (b *Backfiller) run(ctx context.Context, from uint64, checkpoint *uint64) (*BackfillResult, error) {
	start := time.Now()
	result := &BackfillResult{FromBlock: from, Resumed: checkpoint != nil}
	if from > 0 {
		result.LastBlock = from - 1
	}

	head, err := b.head(ctx)
	if err != nil {
		return result, err
	}

	b.logger.WithFields(logrus.Fields{"from": from, "head": head}).Info("starting backfill")

	for {
		if from > head {
			// Re-check once before declaring caught up.
			head, err = b.head(ctx)
			if err != nil {
				return result, err
			}
			if from > head {
				break
			}
		}

		to := min(from+b.batchSize-1, head)

		var n int
		err := retryForever(ctx, b.retryBackoff, b.maxBackoff, func() error {
			var rerr error
			n, rerr = b.RunRange(ctx, from, to)
			if rerr != nil {
				return rerr
			}
			if checkpoint != nil && *checkpoint >= to {
				return nil
			}
			if rerr = b.checkpoint.Save(ctx, to); rerr != nil {
				return fmt.Errorf("save checkpoint: %w", rerr)
			}
			return nil
		}, func(err error, wait time.Duration) {
			result.Retries++
			observability.RecordBackfillRetry()
			b.logger.WithFields(logrus.Fields{
				"from":  from,
				"to":    to,
				"retry": wait,
			}).WithError(err).Warn("backfill range failed, retrying")
		})
		if err != nil {
			return result, err
		}

		if checkpoint == nil || *checkpoint < to {
			cp := to
			checkpoint = &cp
			observability.UpdateCheckpoint(to)
		}
		observability.RecordBatchCommitted(time.Now().Unix())

		result.Ranges++
		result.Events += n
		result.LastBlock = to

		b.logger.WithFields(logrus.Fields{
			"from":   from,
			"to":     to,
			"events": n,
		}).Debug("range committed")

		from = to + 1
	}

	result.Duration = time.Since(start)
	b.logger.WithFields(logrus.Fields{
		"last_block": result.LastBlock,
		"ranges":     result.Ranges,
		"events":     result.Events,
		"retries":    result.Retries,
		"duration":   result.Duration,
	}).Info("backfill caught up")

	return result, nil
}

// RunRange fetches, decodes and dispatches every tracked event in
// [from, to] in chain order. It does not touch the checkpoint.
// Any fetch or durable write failure fails the whole range.
func (b *Backfiller) RunRange(ctx context.Context, from, to uint64) (int, error) {
	logs := make([][]types.Log, len(b.events))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range b.events {
		filter, err := b.contract.Filter(name)
		if err != nil {
			return 0, err
		}
		g.Go(func() error {
			res, err := b.rpc.GetLogs(gctx, from, to, filter)
			if err != nil {
				return fmt.Errorf("get %s logs [%d, %d]: %w", name, from, to, err)
			}
			logs[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var events []domain.Event
	for _, batch := range logs {
		for _, lg := range batch {
			if ev, ok := decodeLog(b.contract, lg, b.logger); ok {
				events = append(events, ev)
			}
		}
	}
	SortEvents(events)

	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := b.dispatcher.Dispatch(ctx, ev); err != nil {
			return 0, err
		}
	}
	return len(events), nil
}

// head reads the chain head, retrying until it succeeds or ctx is done.
func (b *Backfiller) head(ctx context.Context) (uint64, error) {
	var head uint64
	err := retryForever(ctx, b.retryBackoff, b.maxBackoff, func() error {
		h, err := b.rpc.BlockNumber(ctx)
		if err != nil {
			return err
		}
		head = h
		return nil
	}, func(err error, wait time.Duration) {
		b.logger.WithError(err).WithField("retry", wait).Warn("failed to read chain head")
	})
	if err != nil {
		return 0, err
	}
	observability.UpdateChainHead(head)
	return head, nil
}
