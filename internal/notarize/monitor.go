package notarize

import (
	"context"
	"log/slog"
	"time"

	"github.com/ingmarAvocado/abs-worker/internal/core/domain"
)

// Monitor polls the ledger for a submitted proof's receipt until it is
// final, reverted, or the wait budget is exhausted.
type Monitor struct {
	ledger     LedgerClient
	cfg        MonitorConfig
	fetchRetry RetryConfig
	log        *slog.Logger
}

// NewMonitor creates a confirmation monitor. fetchRetry governs transient
// receipt-fetch failures; a failed fetch does not restart the wait clock.
func NewMonitor(ledger LedgerClient, cfg MonitorConfig, fetchRetry RetryConfig, log *slog.Logger) *Monitor {
	if cfg.RequiredConfirmations == 0 {
		cfg.RequiredConfirmations = DefaultMonitorConfig.RequiredConfirmations
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultMonitorConfig.PollInterval
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = DefaultMonitorConfig.MaxWait
	}
	return &Monitor{
		ledger:     ledger,
		cfg:        cfg,
		fetchRetry: fetchRetry,
		log:        log,
	}
}

// AwaitFinality blocks until the proof has accrued the required
// confirmations and returns its receipt. A reverted proof fails
// immediately with a FatalLedgerError; exceeding MaxWait returns a
// ConfirmationTimeoutError, leaving the resubmit decision to the caller.
func (m *Monitor) AwaitFinality(ctx context.Context, proofReference string) (*domain.Receipt, error) {
	start := time.Now()

	for {
		receipt, err := Do(ctx, "fetch_receipt", m.fetchRetry, func(ctx context.Context) (*domain.Receipt, error) {
			return m.ledger.FetchReceipt(ctx, proofReference)
		})
		if err != nil {
			return nil, err
		}
		ReceiptPolls.Inc()

		if receipt != nil {
			if receipt.Reverted {
				m.log.Error("proof reverted on ledger", "proof_ref", proofReference)
				return nil, &domain.FatalLedgerError{
					Kind:   domain.FaultReverted,
					Detail: "proof " + proofReference + " reverted",
				}
			}

			if receipt.Confirmations >= m.cfg.RequiredConfirmations {
				m.log.Info("proof confirmed",
					"proof_ref", proofReference,
					"confirmations", receipt.Confirmations,
					"block", receipt.BlockNumber)
				return receipt, nil
			}

			m.log.Debug("proof awaiting confirmations",
				"proof_ref", proofReference,
				"confirmations", receipt.Confirmations,
				"required", m.cfg.RequiredConfirmations)
		} else {
			m.log.Debug("proof not yet included", "proof_ref", proofReference)
		}

		if elapsed := time.Since(start); elapsed > m.cfg.MaxWait {
			return nil, &domain.ConfirmationTimeoutError{
				ProofReference: proofReference,
				Waited:         elapsed,
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.cfg.PollInterval):
		}
	}
}
