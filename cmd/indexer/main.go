package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"launchpad-indexer/internal/bootstrap"
	"launchpad-indexer/internal/cache"
	"launchpad-indexer/internal/chain"
	"launchpad-indexer/internal/config"
	"launchpad-indexer/internal/hub"
	"launchpad-indexer/internal/ingestion"
	"launchpad-indexer/internal/logger"
	"launchpad-indexer/internal/metrics"
	"launchpad-indexer/internal/observability"
	"launchpad-indexer/internal/writer"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	base, err := logger.New(cfg.Logging)
	if err != nil {
		logrus.WithError(err).Fatal("failed to configure logger")
	}
	log := logger.Component(base, "indexer")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigCh:
			log.WithField("signal", sig.String()).Info("initiating graceful shutdown")
			cancel()
		case <-done:
			return
		}

		select {
		case sig := <-sigCh:
			log.WithField("signal", sig.String()).Warn("second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(shutdownTimeout):
			log.Error("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, cfg, base)
	close(done)

	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("indexer stopped")
	}
	log.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, base *logrus.Logger) error {
	log := logger.Component(base, "indexer")
	if cfg.Chain.WSURL == "" {
		return fmt.Errorf("chain.ws_url is required")
	}

	res, err := bootstrap.OpenStores(ctx, cfg, logger.Component(base, "storage"))
	if err != nil {
		return err
	}
	defer res.Close()

	if block, found, err := bootstrap.VerifyCheckpoint(ctx, res.Stores.Checkpoint); err != nil {
		return err
	} else if found {
		log.WithField("block", block).Info("resuming from checkpoint")
	}

	contract, rpc, err := bootstrap.NewRPC(cfg.Chain)
	if err != nil {
		return err
	}
	head, err := bootstrap.CheckRPC(ctx, rpc)
	if err != nil {
		return err
	}
	observability.UpdateChainHead(head)

	wsCfg := chain.DefaultWSConfig()
	wsCfg.Logger = logger.Component(base, "ws")
	wsCfg.OnResubscribe = observability.RecordResubscribe
	ws, err := chain.NewWSClient(ctx, cfg.Chain.WSURL, &wsCfg)
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := res.ConnectNATS(cfg, logger.Component(base, "nats")); err != nil {
		return err
	}
	shared, err := res.SharedCache(ctx, cfg)
	if err != nil {
		return err
	}
	publisher, err := res.Publisher(ctx, cfg, logger.Component(base, "bus"))
	if err != nil {
		return err
	}

	local := cache.NewLocal()
	c := cache.New(cache.Options{
		Local:      local,
		Shared:     shared,
		Tokens:     res.Stores.Tokens,
		Metrics:    res.Stores.Metrics,
		TokenTTL:   cfg.Cache.TokenTTL,
		MetricsTTL: cfg.Cache.MetricsTTL,
		Logger:     logger.Component(base, "cache"),
	})
	defer c.Close()

	h := hub.New(hub.Config{
		SendBuffer:     cfg.Hub.SendBuffer,
		WriteTimeout:   cfg.Hub.WriteTimeout,
		PingInterval:   cfg.Hub.PingInterval,
		AllowedOrigins: cfg.Hub.AllowedOrigins,
		Logger:         logger.Component(base, "hub"),
	}, c)

	w := writer.New(res.Stores,
		writer.WithInvalidator(c),
		writer.WithLogger(logger.Component(base, "writer")),
	)

	broadcast := []ingestion.Sink{h}
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
	live := ingestion.NewLive(ingestion.LiveOptions{
		WS:       ws,
		Contract: contract,
		Logger:   logger.Component(base, "live"),
	})
	pipeline := ingestion.NewPipeline(ingestion.PipelineOptions{
		Backfill:        backfiller,
		Live:            live,
		Dispatcher:      dispatcher,
		GapFillInterval: cfg.Chain.GapFillInterval,
		RetryBackoff:    cfg.Chain.RetryBackoff,
		MaxBackoff:      cfg.Chain.MaxBackoff,
		Logger:          logger.Component(base, "pipeline"),
	})

	aggregator := metrics.NewAggregator(metrics.Options{
		Trades:   res.Stores.Trades,
		OnChain:  res.Stores.OnChain,
		Metrics:  res.Stores.Metrics,
		History:  res.Stores.History,
		Cache:    c,
		Sink:     ingestion.SinkFunc(dispatcher.Dispatch),
		Interval: cfg.Aggregator.Interval,
		Window:   cfg.Aggregator.Window,
		Logger:   logger.Component(base, "aggregator"),
	})

	health := observability.NewHealth()
	health.Register("checkpoint", func() error {
		_, _, err := bootstrap.VerifyCheckpoint(context.Background(), res.Stores.Checkpoint)
		return err
	})
	health.Register("nats", res.NATSHealth)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: observability.NewMux(health)}
	hubMux := http.NewServeMux()
	hubMux.Handle(cfg.Hub.Path, h)
	hubSrv := &http.Server{Addr: cfg.Hub.ListenAddr, Handler: hubMux}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	serve := func(name string, srv *http.Server) {
		log.WithFields(logrus.Fields{"server": name, "addr": srv.Addr}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).WithField("server", name).Error("http server failed")
			cancel()
		}
	}
	go serve("metrics", metricsSrv)
	go serve("hub", hubSrv)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hubDone := make(chan struct{})
	go func() {
		h.Run(hubCtx)
		close(hubDone)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pipeline.Run(gctx) })
	g.Go(func() error { return aggregator.Run(gctx) })
	g.Go(func() error {
		local.RunSweeper(gctx, time.Minute)
		return nil
	})

	log.WithFields(logrus.Fields{
		"contract": contract.Address().Hex(),
		"head":     head,
	}).Info("indexer started")
	runErr := g.Wait()

	// In-flight writes have finished; drain broadcasts before closing clients.
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := hubSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("hub server shutdown")
	}
	if err := h.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("hub shutdown")
	}
	stopHub()
	<-hubDone
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("metrics server shutdown")
	}

	return runErr
}
