package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	httpapi "docrelay/internal/http"
	"docrelay/internal/inbound"
	inboundhandler "docrelay/internal/inbound/handler"
	inboundmetrics "docrelay/internal/inbound/metrics"
	"docrelay/internal/ledger"
	ledgerhandler "docrelay/internal/ledger/handler"
	ledgermetrics "docrelay/internal/ledger/metrics"
	"docrelay/internal/ledger/publisher"
	"docrelay/internal/ledger/worker"
	"docrelay/internal/orchestrator"
	"docrelay/internal/orchestrator/adapters"
	orchhandler "docrelay/internal/orchestrator/handler"
	orchmetrics "docrelay/internal/orchestrator/metrics"
	"docrelay/internal/orchestrator/ports"
	"docrelay/internal/outbound"
	"docrelay/internal/platform/config"
	"docrelay/internal/platform/httpserver"
	"docrelay/internal/platform/logger"
	platformmetrics "docrelay/internal/platform/metrics"
	platformredis "docrelay/internal/platform/redis"
	"docrelay/internal/resolution"
	resolutionhandler "docrelay/internal/resolution/handler"
	resolutionmetrics "docrelay/internal/resolution/metrics"
	"docrelay/pkg/platform/tx"
)

// main wires stores, services, and the HTTP surface together. Business
// logic lives in the internal packages; this file only composes them.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, db, err := openStores(cfg)
	if err != nil {
		log.Error("store setup failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis setup failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Ledger, with the Kafka fan-out when brokers are configured.
	ledgerOpts := []ledger.Option{ledger.WithMetrics(ledgermetrics.New())}
	if len(cfg.KafkaBrokers) > 0 {
		outbox := make(chan ledger.Entry, 256)
		pub, err := publisher.New(cfg.KafkaBrokers, cfg.LedgerTopic)
		if err != nil {
			log.Error("kafka publisher setup failed", "error", err)
			os.Exit(1)
		}
		defer pub.Close()
		go func() {
			if err := worker.New(pub, outbox, log).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("ledger fan-out worker stopped", "error", err)
			}
		}()
		ledgerOpts = append(ledgerOpts, ledger.WithOutbox(outbox))
	}
	ledgerSvc := ledger.NewService(stores.ledger, log, ledgerOpts...)

	resolutionOpts := []resolution.Option{resolution.WithMetrics(resolutionmetrics.New())}
	if db != nil {
		resolutionOpts = append(resolutionOpts, resolution.WithTxRunner(tx.NewSQLRunner(db)))
	}
	resolutionSvc := resolution.NewService(resolution.DefaultConfig(), stores.contacts, log, resolutionOpts...)

	orchOpts := []orchestrator.Option{orchestrator.WithMetrics(orchmetrics.New())}
	if redisClient != nil {
		orchOpts = append(orchOpts, orchestrator.WithSendGuard(orchestrator.NewRedisGuard(redisClient.Client)))
	}
	orchestratorSvc := orchestrator.NewService(
		policyChecker(cfg), timingGate(cfg), transportProvider(cfg),
		resolutionSvc, ledgerSvc, stores.requests, log, orchOpts...,
	)

	inboundOpts := []inbound.Option{inbound.WithMetrics(inboundmetrics.New())}
	if redisClient != nil {
		inboundOpts = append(inboundOpts, inbound.WithDedupIndex(inbound.NewRedisDedup(redisClient.Client)))
	}
	inboundSvc := inbound.NewService(
		stores.documents, stores.requests,
		inbound.NewClassifier(inbound.DefaultClassifierConfig()),
		inbound.NewMatcher(stores.requests, stores.contacts),
		ledgerSvc, log, inboundOpts...,
	)

	router := httpapi.NewRouter(
		httpapi.Config{
			Logger:        log,
			JWTSigningKey: []byte(cfg.JWTSigningKey),
			HTTPMetrics:   platformmetrics.NewHTTP(),
		},
		orchhandler.New(orchestratorSvc, log),
		inboundhandler.New(inboundSvc, log),
		resolutionhandler.New(resolutionSvc, log),
		ledgerhandler.New(ledgerSvc, log),
	)

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// storeSet groups one implementation of every persistence interface.
type storeSet struct {
	ledger    ledger.Store
	contacts  resolution.Store
	requests  outbound.Store
	documents inbound.Store
}

func openStores(cfg config.Config) (storeSet, *sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return storeSet{
			ledger:    ledger.NewInMemoryStore(),
			contacts:  resolution.NewInMemoryStore(),
			requests:  outbound.NewInMemoryStore(),
			documents: inbound.NewInMemoryStore(),
		}, nil, nil
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return storeSet{}, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return storeSet{}, nil, err
	}
	return storeSet{
		ledger:    ledger.NewPostgresStore(db),
		contacts:  resolution.NewPostgresStore(db),
		requests:  outbound.NewPostgresStore(db),
		documents: inbound.NewPostgresStore(db),
	}, db, nil
}

func policyChecker(cfg config.Config) ports.PolicyChecker {
	if cfg.PolicyURL != "" {
		return adapters.NewPolicyClient(cfg.PolicyURL)
	}
	return adapters.LocalPolicyChecker{}
}

func timingGate(cfg config.Config) ports.TimingGate {
	if cfg.TimingURL != "" {
		return adapters.NewTimingClient(cfg.TimingURL)
	}
	return adapters.LocalTimingGate{}
}

func transportProvider(cfg config.Config) ports.Transport {
	if cfg.TransportURL != "" {
		return adapters.NewTransportClient(cfg.TransportURL)
	}
	return adapters.LocalTransport{}
}
