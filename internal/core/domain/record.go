package domain

import (
	"time"
)

// NotarizationRecord represents one document's notarization attempt.
type NotarizationRecord struct {
	ID                  string
	OwnerID             string
	OwnerAddress        string
	FileName            string
	FilePath            string
	Status              RecordStatus
	Kind                RecordKind
	ContentFingerprint  string
	ProofReference      string
	StorageReferences   []string
	AssetReference      string
	CertificateJSONPath string
	CertificatePDFPath  string
	ErrorDetail         string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type RecordStatus string

const (
	StatusPending    RecordStatus = "pending"
	StatusProcessing RecordStatus = "processing"
	StatusFinalized  RecordStatus = "finalized"
	StatusError      RecordStatus = "error"
)

// Terminal reports whether the status is an end state.
func (s RecordStatus) Terminal() bool {
	return s == StatusFinalized || s == StatusError
}

type RecordKind string

const (
	KindHashOnly  RecordKind = "hash_only"
	KindAssetMint RecordKind = "asset_mint"
)

// TransitionFields carries the mutations applied alongside a status
// transition. Nil pointers leave the column untouched; set-once fields
// (proof reference, locators) are never cleared by a transition.
type TransitionFields struct {
	ProofReference      *string
	StorageReferences   []string
	AssetReference      *string
	CertificateJSONPath *string
	CertificatePDFPath  *string
	ErrorDetail         *string
}

// Receipt is the ledger's view of a submitted proof.
type Receipt struct {
	ProofReference string
	BlockNumber    uint64
	Confirmations  uint64
	Reverted       bool
}

// MintResult is what the ledger returns for an asset mint. The combined
// one-call mint also fills StorageReferences; the two-step shape leaves
// them empty because the caller performed the uploads itself.
type MintResult struct {
	ProofReference    string
	AssetReference    string
	StorageReferences []string
}
