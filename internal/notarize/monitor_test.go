package notarize

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ingmarAvocado/abs-worker/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedLedger returns canned FetchReceipt results in order, holding the
// last one once the script is exhausted.
type scriptedLedger struct {
	receipts []*domain.Receipt
	errs     []error
	fetches  int
}

func (l *scriptedLedger) SubmitProof(ctx context.Context, fingerprint string, metadata map[string]string) (string, error) {
	return "0xproof", nil
}

func (l *scriptedLedger) FetchReceipt(ctx context.Context, proofReference string) (*domain.Receipt, error) {
	i := l.fetches
	if i >= len(l.receipts) {
		i = len(l.receipts) - 1
	}
	l.fetches++
	if i < len(l.errs) && l.errs[i] != nil {
		return nil, l.errs[i]
	}
	return l.receipts[i], nil
}

var fastMonitor = MonitorConfig{
	RequiredConfirmations: 3,
	PollInterval:          time.Millisecond,
	MaxWait:               time.Second,
}

func TestAwaitFinalityConfirmed(t *testing.T) {
	ledger := &scriptedLedger{receipts: []*domain.Receipt{
		nil,
		{ProofReference: "0xproof", BlockNumber: 100, Confirmations: 1},
		{ProofReference: "0xproof", BlockNumber: 100, Confirmations: 3},
	}}
	m := NewMonitor(ledger, fastMonitor, fastRetry, testLogger())

	receipt, err := m.AwaitFinality(context.Background(), "0xproof")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.Confirmations != 3 || receipt.BlockNumber != 100 {
		t.Errorf("got receipt %+v, want 3 confirmations at block 100", receipt)
	}
	if ledger.fetches != 3 {
		t.Errorf("made %d fetches, want 3", ledger.fetches)
	}
}

func TestAwaitFinalityReverted(t *testing.T) {
	ledger := &scriptedLedger{receipts: []*domain.Receipt{
		{ProofReference: "0xproof", BlockNumber: 100, Reverted: true},
	}}
	m := NewMonitor(ledger, fastMonitor, fastRetry, testLogger())

	_, err := m.AwaitFinality(context.Background(), "0xproof")
	var lerr *domain.FatalLedgerError
	if !errors.As(err, &lerr) || lerr.Kind != domain.FaultReverted {
		t.Fatalf("got %v, want FatalLedgerError(reverted)", err)
	}
	if ledger.fetches != 1 {
		t.Errorf("reverted proof polled %d times, want 1", ledger.fetches)
	}
}

func TestAwaitFinalityTimesOut(t *testing.T) {
	ledger := &scriptedLedger{receipts: []*domain.Receipt{
		{ProofReference: "0xproof", Confirmations: 1},
	}}
	cfg := fastMonitor
	cfg.MaxWait = 10 * time.Millisecond
	m := NewMonitor(ledger, cfg, fastRetry, testLogger())

	_, err := m.AwaitFinality(context.Background(), "0xproof")
	var terr *domain.ConfirmationTimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("got %v, want ConfirmationTimeoutError", err)
	}
	if terr.ProofReference != "0xproof" {
		t.Errorf("timeout carries proof %q, want 0xproof", terr.ProofReference)
	}
}

func TestAwaitFinalityRetriesTransientFetch(t *testing.T) {
	transient := &domain.RetryableInfraError{Kind: domain.InfraNetwork, Err: errors.New("refused")}
	ledger := &scriptedLedger{
		receipts: []*domain.Receipt{
			nil,
			nil,
			{ProofReference: "0xproof", Confirmations: 6},
		},
		errs: []error{transient, transient, nil},
	}
	cfg := fastMonitor
	cfg.RequiredConfirmations = 6
	m := NewMonitor(ledger, cfg, fastRetry, testLogger())

	receipt, err := m.AwaitFinality(context.Background(), "0xproof")
	if err != nil {
		t.Fatalf("transient fetch failures should be retried: %v", err)
	}
	if receipt.Confirmations != 6 {
		t.Errorf("got %d confirmations, want 6", receipt.Confirmations)
	}
}

func TestAwaitFinalityFatalFetch(t *testing.T) {
	ledger := &scriptedLedger{
		receipts: []*domain.Receipt{nil},
		errs:     []error{errors.New("malformed response")},
	}
	m := NewMonitor(ledger, fastMonitor, fastRetry, testLogger())

	_, err := m.AwaitFinality(context.Background(), "0xproof")
	if err == nil {
		t.Fatal("expected error")
	}
	if ledger.fetches != 1 {
		t.Errorf("fatal fetch error retried: %d fetches, want 1", ledger.fetches)
	}
}

func TestNewMonitorDefaults(t *testing.T) {
	m := NewMonitor(&scriptedLedger{}, MonitorConfig{}, fastRetry, testLogger())
	if m.cfg.RequiredConfirmations != DefaultMonitorConfig.RequiredConfirmations {
		t.Errorf("confirmations default %d, want %d", m.cfg.RequiredConfirmations, DefaultMonitorConfig.RequiredConfirmations)
	}
	if m.cfg.PollInterval != DefaultMonitorConfig.PollInterval {
		t.Errorf("poll interval default %v, want %v", m.cfg.PollInterval, DefaultMonitorConfig.PollInterval)
	}
	if m.cfg.MaxWait != DefaultMonitorConfig.MaxWait {
		t.Errorf("max wait default %v, want %v", m.cfg.MaxWait, DefaultMonitorConfig.MaxWait)
	}
}
