// Package control wires the notarization worker's dependencies and manages
// its lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/pressly/goose/v3"

	"github.com/ingmarAvocado/abs-worker/internal/certify"
	"github.com/ingmarAvocado/abs-worker/internal/core/config"
	"github.com/ingmarAvocado/abs-worker/internal/core/worker"
	"github.com/ingmarAvocado/abs-worker/internal/health"
	"github.com/ingmarAvocado/abs-worker/internal/infra/arweave"
	"github.com/ingmarAvocado/abs-worker/internal/infra/ledger"
	redisq "github.com/ingmarAvocado/abs-worker/internal/infra/redis"
	"github.com/ingmarAvocado/abs-worker/internal/infra/storage/memory"
	"github.com/ingmarAvocado/abs-worker/internal/infra/storage/postgres"
	"github.com/ingmarAvocado/abs-worker/internal/notarize"
)

// Worker is the notarization worker application.
type Worker struct {
	cfg          *config.AppConfig
	db           *postgres.DB
	queue        *redisq.Queue
	dispatcher   *worker.Dispatcher
	pruner       *worker.Pruner
	healthServer *health.Server
	cancel       context.CancelFunc
	log          *slog.Logger
}

// NewWorker creates a worker with all dependencies initialized.
func NewWorker(cfg *config.AppConfig) (*Worker, error) {
	log := slog.Default()

	var store notarize.RecordStore
	var db *postgres.DB
	if cfg.Database.URL != "" {
		var err error
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		store = postgres.NewRecordRepo(db)
		log.Info("using PostgreSQL record store")
	} else {
		store = memory.NewRecordStore()
		log.Warn("database.url not set, using in-memory record store")
	}

	queue, err := redisq.NewQueue(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to init queue: %w", err)
	}

	var ledgerClient notarize.LedgerClient
	if cfg.Ledger.CombinedMint {
		ledgerClient = ledger.NewCombinedClient(cfg.Ledger)
	} else {
		ledgerClient = ledger.NewClient(cfg.Ledger)
	}

	keys, err := keyProvider(cfg.Certificate)
	if err != nil {
		return nil, err
	}
	signer := certify.NewSigner(keys, cfg.Certificate, log)

	engine := notarize.NewEngine(
		store,
		ledgerClient,
		arweave.NewClient(cfg.Storage),
		osContentSource{},
		signer,
		engineConfig(cfg),
		log,
	)

	dispatcher := worker.NewDispatcher(queue, engine, cfg.Worker.Concurrency, cfg.Worker.DequeueTimeout, log)

	checks := []health.Checker{
		health.CheckerFunc{CheckName: "redis", Check: queue.Health},
	}
	if db != nil {
		checks = append(checks, health.CheckerFunc{CheckName: "database", Check: db.Health})
	}

	return &Worker{
		cfg:          cfg,
		db:           db,
		queue:        queue,
		dispatcher:   dispatcher,
		pruner:       worker.NewPruner(cfg.Certificate.StoragePath, cfg.Certificate.RetentionPeriod, log),
		healthServer: health.NewServer(cfg.Server.Port, checks...),
		log:          log,
	}, nil
}

// Start launches the dispatcher pool and the health server.
func (w *Worker) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	go func() {
		if err := w.healthServer.Start(); err != nil && err != http.ErrServerClosed {
			w.log.Error("health server failed", "error", err)
		}
	}()

	w.dispatcher.Start(runCtx)
	go w.pruner.Start(runCtx)
	w.log.Info("worker started", "port", w.cfg.Server.Port)
	return nil
}

// Stop drains the dispatcher and closes all connections.
func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}
	w.dispatcher.Wait()

	if err := w.healthServer.Stop(ctx); err != nil {
		w.log.Warn("health server shutdown failed", "error", err)
	}
	if err := w.queue.Close(); err != nil {
		w.log.Warn("queue close failed", "error", err)
	}
	if w.db != nil {
		if err := w.db.Close(); err != nil {
			w.log.Warn("db close failed", "error", err)
		}
	}
	return nil
}

func keyProvider(cfg certify.Config) (certify.KeyProvider, error) {
	switch {
	case cfg.SigningKeyPath != "":
		return certify.NewFileKeyProvider(cfg.SigningKeyPath), nil
	case cfg.SigningKeyHex != "":
		return certify.NewHexKeyProvider(cfg.SigningKeyHex), nil
	default:
		return nil, fmt.Errorf("certificate signing key not configured (set signing_key_path or signing_key_hex)")
	}
}

func engineConfig(cfg *config.AppConfig) notarize.Config {
	submitRetry := notarize.RetryConfig{
		MaxAttempts:     cfg.Retry.MaxAttempts,
		InitialDelay:    cfg.Retry.InitialDelay,
		MaxDelay:        cfg.Retry.MaxDelay,
		BackoffMultiple: cfg.Retry.BackoffMultiple,
	}
	return notarize.Config{
		SubmitRetry: submitRetry,
		FetchRetry:  submitRetry,
		ConfirmRetry: notarize.RetryConfig{
			MaxAttempts:     cfg.Retry.ConfirmAttempts,
			InitialDelay:    cfg.Monitor.PollInterval,
			MaxDelay:        cfg.Retry.MaxDelay,
			BackoffMultiple: cfg.Retry.BackoffMultiple,
		},
		Monitor: notarize.MonitorConfig{
			RequiredConfirmations: cfg.Monitor.RequiredConfirmations,
			PollInterval:          cfg.Monitor.PollInterval,
			MaxWait:               cfg.Monitor.MaxWait,
		},
	}
}

// osContentSource reads document bytes from the local filesystem path
// recorded on the record.
type osContentSource struct{}

func (osContentSource) Read(ctx context.Context, locator string) ([]byte, error) {
	return os.ReadFile(locator)
}
