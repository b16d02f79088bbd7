// Package notarize drives a document's notarization workflow: claim the
// record, submit its proof to the ledger, wait for finality and persist the
// outcome in a single terminal commit.
package notarize

import (
	"context"
	"time"

	"github.com/ingmarAvocado/abs-worker/internal/core/domain"
)

// RecordStore is the persistence contract the workflow requires. Create
// rejects duplicate content fingerprints before any workflow step runs.
type RecordStore interface {
	Create(ctx context.Context, rec *domain.NotarizationRecord) error
	Load(ctx context.Context, id string) (*domain.NotarizationRecord, error)
	Begin(ctx context.Context) (RecordSession, error)
}

// RecordSession is one transactional context over the record store. The
// workflow acquires exactly one session per run and uses it for both the
// entry guard and the terminal write.
type RecordSession interface {
	Load(ctx context.Context, id string) (*domain.NotarizationRecord, error)
	// Transition atomically moves the record from expected to next while
	// applying fields, as a single durable commit. Returns false without
	// error if the current status did not match expected.
	Transition(ctx context.Context, id string, expected, next domain.RecordStatus, fields domain.TransitionFields) (bool, error)
	Close() error
}

// LedgerClient submits proofs and reports on their receipts.
type LedgerClient interface {
	SubmitProof(ctx context.Context, fingerprint string, metadata map[string]string) (string, error)
	// FetchReceipt returns nil when the proof is not yet included.
	FetchReceipt(ctx context.Context, proofReference string) (*domain.Receipt, error)
}

// AssetMinter is the two-step mint shape: the caller uploads content and
// metadata to external storage first, then mints against the metadata
// locator.
type AssetMinter interface {
	MintAsset(ctx context.Context, ownerAddress, metadataLocator string) (*domain.MintResult, error)
}

// CombinedMinter is the one-call mint shape: the ledger service performs
// the storage uploads itself and returns the resulting locators alongside
// the proof. When the ledger client implements it, the workflow prefers it
// over the two-step shape.
type CombinedMinter interface {
	MintAssetWithContent(ctx context.Context, ownerAddress string, content []byte, contentType string) (*domain.MintResult, error)
}

// StorageClient uploads a payload to external storage and returns its
// locator.
type StorageClient interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

// ContentSource reads the original document bytes for upload.
type ContentSource interface {
	Read(ctx context.Context, locator string) ([]byte, error)
}

// CertificateSigner produces the signed JSON and PDF artifacts for a
// finalized record and returns their paths.
type CertificateSigner interface {
	Sign(ctx context.Context, rec *domain.NotarizationRecord, receipt *domain.Receipt) (jsonPath, pdfPath string, err error)
}

// MonitorConfig controls confirmation polling.
type MonitorConfig struct {
	RequiredConfirmations uint64
	PollInterval          time.Duration
	MaxWait               time.Duration
}

// DefaultMonitorConfig provides sensible defaults.
var DefaultMonitorConfig = MonitorConfig{
	RequiredConfirmations: 6,
	PollInterval:          2 * time.Second,
	MaxWait:               10 * time.Minute,
}
