package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"launchpad-indexer/internal/bootstrap"
	"launchpad-indexer/internal/cache"
	"launchpad-indexer/internal/config"
	"launchpad-indexer/internal/ingestion"
	"launchpad-indexer/internal/logger"
	"launchpad-indexer/internal/writer"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	fromBlock := flag.Uint64("from-block", 0, "Force the start block (0 resumes from the checkpoint)")
	batchSize := flag.Uint64("batch-size", 0, "Override chain.batch_size")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	if *batchSize > 0 {
		cfg.Chain.BatchSize = *batchSize
	}

	base, err := logger.New(cfg.Logging)
	if err != nil {
		logrus.WithError(err).Fatal("failed to configure logger")
	}
	log := logger.Component(base, "backfill-cli")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := run(ctx, cfg, base, *fromBlock)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("backfill interrupted, checkpoint holds the last completed range")
			os.Exit(130)
		}
		log.WithError(err).Fatal("backfill failed")
	}

	log.WithFields(logrus.Fields{
		"from":     result.FromBlock,
		"last":     result.LastBlock,
		"ranges":   result.Ranges,
		"events":   result.Events,
		"retries":  result.Retries,
		"resumed":  result.Resumed,
		"duration": result.Duration.String(),
	}).Info("backfill complete")
}

func run(ctx context.Context, cfg *config.Config, base *logrus.Logger, from uint64) (*ingestion.BackfillResult, error) {
	res, err := bootstrap.OpenStores(ctx, cfg, logger.Component(base, "storage"))
	if err != nil {
		return nil, err
	}
	defer res.Close()

	if _, _, err := bootstrap.VerifyCheckpoint(ctx, res.Stores.Checkpoint); err != nil {
		return nil, err
	}

	contract, rpc, err := bootstrap.NewRPC(cfg.Chain)
	if err != nil {
		return nil, err
	}

	if err := res.ConnectNATS(cfg, logger.Component(base, "nats")); err != nil {
		return nil, err
	}
	shared, err := res.SharedCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	publisher, err := res.Publisher(ctx, cfg, logger.Component(base, "bus"))
	if err != nil {
		return nil, err
	}

	// Graduations found here must evict entries the running indexer cached.
	c := cache.New(cache.Options{
		Shared:     shared,
		Tokens:     res.Stores.Tokens,
		Metrics:    res.Stores.Metrics,
		TokenTTL:   cfg.Cache.TokenTTL,
		MetricsTTL: cfg.Cache.MetricsTTL,
		Logger:     logger.Component(base, "cache"),
	})
	defer c.Close()

	w := writer.New(res.Stores,
		writer.WithInvalidator(c),
		writer.WithLogger(logger.Component(base, "writer")),
	)

	var broadcast []ingestion.Sink
	if publisher != nil {
		broadcast = append(broadcast, publisher)
	}
	dispatcher := ingestion.NewDispatcher(w, broadcast...).WithLogger(logger.Component(base, "dispatcher"))

	backfiller := ingestion.NewBackfiller(ingestion.BackfillOptions{
		RPC:          rpc,
		Contract:     contract,
		Checkpoint:   res.Stores.Checkpoint,
		Dispatcher:   dispatcher,
		StartBlock:   cfg.Chain.StartBlock,
		BatchSize:    cfg.Chain.BatchSize,
		RetryBackoff: cfg.Chain.RetryBackoff,
		MaxBackoff:   cfg.Chain.MaxBackoff,
		Logger:       logger.Component(base, "backfill"),
	})

	if from > 0 {
		return backfiller.RunFrom(ctx, from)
	}
	return backfiller.Run(ctx)
}
