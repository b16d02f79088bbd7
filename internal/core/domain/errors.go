package domain

import (
	"fmt"
	"time"
)

// NotFoundError indicates the record does not exist.
type NotFoundError struct {
	RecordID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("record %s not found", e.RecordID)
}

// InvalidStateError indicates an operation against a record whose status
// does not permit it (e.g. reprocessing a terminal record without reset).
type InvalidStateError struct {
	RecordID string
	Status   RecordStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("record %s in invalid state %s", e.RecordID, e.Status)
}

// InfraKind identifies a transient infrastructure failure.
type InfraKind string

const (
	InfraNetwork       InfraKind = "network"
	InfraTimeout       InfraKind = "timeout"
	InfraNonceConflict InfraKind = "nonce_conflict"
	InfraFeeEstimation InfraKind = "fee_estimation"
)

// RetryableInfraError wraps a transient failure that is safe to retry.
type RetryableInfraError struct {
	Kind InfraKind
	Err  error
}

func (e *RetryableInfraError) Error() string {
	return fmt.Sprintf("transient %s error: %v", e.Kind, e.Err)
}

func (e *RetryableInfraError) Unwrap() error {
	return e.Err
}

// LedgerFaultKind identifies a permanent ledger-side rejection.
type LedgerFaultKind string

const (
	FaultReverted             LedgerFaultKind = "reverted"
	FaultInsufficientFunds    LedgerFaultKind = "insufficient_funds"
	FaultInvalidSignature     LedgerFaultKind = "invalid_signature"
	FaultDuplicateFingerprint LedgerFaultKind = "duplicate_fingerprint"
)

// FatalLedgerError is a permanent rejection; retrying cannot succeed.
type FatalLedgerError struct {
	Kind   LedgerFaultKind
	Detail string
}

func (e *FatalLedgerError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("ledger rejected operation: %s", e.Kind)
	}
	return fmt.Sprintf("ledger rejected operation: %s: %s", e.Kind, e.Detail)
}

// ConfirmationTimeoutError indicates a proof did not reach finality within
// the monitor's wait budget. The attempt may be repeated.
type ConfirmationTimeoutError struct {
	ProofReference string
	Waited         time.Duration
}

func (e *ConfirmationTimeoutError) Error() string {
	return fmt.Sprintf("proof %s not final after %s", e.ProofReference, e.Waited)
}

// SigningKeyUnavailableError indicates key material could not be obtained
// or failed a security check. Certificates are never produced without a
// real signature, so this always fails the workflow.
type SigningKeyUnavailableError struct {
	Reason string
}

func (e *SigningKeyUnavailableError) Error() string {
	return fmt.Sprintf("signing key unavailable: %s", e.Reason)
}
