package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/stonefinance/stone-sub002/internal/bundle"
	"github.com/stonefinance/stone-sub002/internal/chain"
	"github.com/stonefinance/stone-sub002/internal/config"
	"github.com/stonefinance/stone-sub002/internal/faucet"
	"github.com/stonefinance/stone-sub002/internal/indexer"
	"github.com/stonefinance/stone-sub002/internal/observability"
	"github.com/stonefinance/stone-sub002/internal/oracle"
	"github.com/stonefinance/stone-sub002/internal/server"
	"github.com/stonefinance/stone-sub002/internal/txlog"
)

func main() {
	configPath := flag.String("config", os.Getenv("STONE_CONFIG"), "path to TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	level := observability.ParseLogLevel(cfg.Log.Level)
	var log zerolog.Logger
	if cfg.Log.File != "" {
		log = observability.NewFileLogger("stone-client", cfg.Log.File, level)
	} else {
		log = observability.NewLoggerWithLevel("stone-client", level)
	}
	log.Info().Msg("stone-client starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// --- Observability ---
	metrics := observability.NewMetrics()
	healthChecker := observability.NewHealthChecker()

	// --- Local transaction log ---
	store, err := txlog.NewStore(cfg.TxLog.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("open transaction log")
	}
	log.Info().Str("path", cfg.TxLog.Path).Msg("transaction log opened")

	// --- Collaborator clients ---
	chainClient := chain.NewClient(cfg.Chain.RestURL, observability.NewLoggerWithLevel("chain", level))
	indexerClient := indexer.NewClient(cfg.Indexer.URL, observability.NewLoggerWithLevel("indexer", level))
	oracleClient := oracle.NewClient(cfg.Oracle.URL, cfg.Oracle.Feeds,
		observability.NewLoggerWithLevel("oracle", level), metrics).
		WithDisplayWindow(cfg.Oracle.DisplayWindow.Duration)
	signer := chain.NewRemoteSigner(cfg.Chain.SignerURL, cfg.Chain.SignerAddress,
		cfg.Chain.BroadcastTimeout.Duration, observability.NewLoggerWithLevel("signer", level))

	// --- Core services ---
	bundler := bundle.NewBundler(oracleClient, chainClient, signer,
		cfg.Oracle.TxFreshnessBudget.Duration,
		observability.NewLoggerWithLevel("bundle", level), metrics)
	merger := txlog.NewMerger(metrics)
	resolver := txlog.NewResolver(store, indexerClient, cfg.Chain.SignerAddress,
		cfg.Indexer.SettleAfter.Duration, observability.NewLoggerWithLevel("reconcile", level), metrics)

	var faucetSvc server.Fauceteer
	if cfg.Faucet.Enabled {
		cooldowns := faucet.NewCooldowns(cfg.Faucet.Cooldown.Duration, time.Now)
		faucetSvc = faucet.NewService(signer, cooldowns, cfg.Faucet.Grants,
			observability.NewLoggerWithLevel("faucet", level), metrics)
		log.Info().Msg("faucet enabled")
	}

	apiServer := server.New(server.Deps{
		Chain:   chainClient,
		Indexer: indexerClient,
		Prices:  oracleClient,
		Bundler: bundler,
		Store:   store,
		Merger:  merger,
		Faucet:  faucetSvc,
		Health:  healthChecker,
		Metrics: metrics,
		Log:     observability.NewLoggerWithLevel("api", level),
	})

	// --- Goroutines ---
	errChan := make(chan error, 4)

	pollDenoms := make([]string, 0, len(cfg.Oracle.Feeds))
	for denom := range cfg.Oracle.Feeds {
		pollDenoms = append(pollDenoms, denom)
	}

	// 1. Oracle poller: keeps display prices inside the freshness window.
	go oracleClient.Run(ctx, cfg.Oracle.PollInterval.Duration, pollDenoms)

	// 2. Reconciler: settles timed-out broadcasts against the indexer.
	go resolver.Run(ctx, cfg.Indexer.ReconcileInterval.Duration)

	// 3. API server.
	go func() {
		errChan <- apiServer.Run(ctx, cfg.Server.Listen)
	}()

	// 4. Prometheus metrics server.
	go func() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{
			Addr:    cfg.Server.MetricsListen,
			Handler: metricsMux,
		}
		go func() {
			<-ctx.Done()
			shutCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
			defer c()
			metricsServer.Shutdown(shutCtx)
		}()
		log.Info().Str("listen", cfg.Server.MetricsListen).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	healthChecker.SetReady(true)
	log.Info().
		Str("api", cfg.Server.Listen).
		Str("metrics", cfg.Server.MetricsListen).
		Int("feeds", len(pollDenoms)).
		Msg("stone-client ready")

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errChan:
		log.Error().Err(err).Msg("goroutine failed, shutting down")
	}

	healthChecker.SetReady(false)
	cancel()

	// Give the servers time to drain before exit.
	time.Sleep(time.Second)
	log.Info().Msg("stone-client shutdown complete")
}
