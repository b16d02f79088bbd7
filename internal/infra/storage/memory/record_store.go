// Package memory provides an in-memory record store for development and
// tests. Transitions have the same compare-and-set semantics as the
// PostgreSQL store.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ingmarAvocado/abs-worker/internal/core/domain"
	"github.com/ingmarAvocado/abs-worker/internal/notarize"
)

// RecordStore keeps records in a map guarded by a mutex.
type RecordStore struct {
	mu           sync.Mutex
	records      map[string]*domain.NotarizationRecord
	fingerprints map[string]string
}

// NewRecordStore creates an empty in-memory store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		records:      make(map[string]*domain.NotarizationRecord),
		fingerprints: make(map[string]string),
	}
}

// Create inserts a record, rejecting duplicate content fingerprints.
func (s *RecordStore) Create(ctx context.Context, rec *domain.NotarizationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("record %s already exists", rec.ID)
	}
	if _, exists := s.fingerprints[rec.ContentFingerprint]; exists {
		return &domain.FatalLedgerError{
			Kind:   domain.FaultDuplicateFingerprint,
			Detail: fmt.Sprintf("fingerprint %s already notarized", rec.ContentFingerprint),
		}
	}

	clone := *rec
	now := time.Now().UTC()
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = now
	}
	clone.UpdatedAt = now
	if clone.Status == "" {
		clone.Status = domain.StatusPending
	}

	s.records[rec.ID] = &clone
	s.fingerprints[rec.ContentFingerprint] = rec.ID
	return nil
}

// Load returns a copy of the record.
func (s *RecordStore) Load(ctx context.Context, id string) (*domain.NotarizationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(id)
}

// Begin returns a session backed by the shared store lock.
func (s *RecordStore) Begin(ctx context.Context) (notarize.RecordSession, error) {
	return &session{store: s}, nil
}

// Reset forces a record back to pending and clears its attempt fields.
// Operator tooling only.
func (s *RecordStore) Reset(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.loadLocked(id)
	if err != nil {
		return err
	}
	rec.Status = domain.StatusPending
	rec.ErrorDetail = ""
	rec.UpdatedAt = time.Now().UTC()
	s.records[id] = rec
	return nil
}

func (s *RecordStore) loadLocked(id string) (*domain.NotarizationRecord, error) {
	rec, ok := s.records[id]
	if !ok {
		return nil, &domain.NotFoundError{RecordID: id}
	}
	clone := *rec
	clone.StorageReferences = append([]string(nil), rec.StorageReferences...)
	return &clone, nil
}

type session struct {
	store *RecordStore
}

func (s *session) Load(ctx context.Context, id string) (*domain.NotarizationRecord, error) {
	return s.store.Load(ctx, id)
}

func (s *session) Transition(
	ctx context.Context,
	id string,
	expected, next domain.RecordStatus,
	fields domain.TransitionFields,
) (bool, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	rec, ok := s.store.records[id]
	if !ok {
		return false, &domain.NotFoundError{RecordID: id}
	}
	if rec.Status != expected {
		return false, nil
	}

	rec.Status = next
	if fields.ProofReference != nil {
		rec.ProofReference = *fields.ProofReference
	}
	if fields.StorageReferences != nil {
		rec.StorageReferences = append([]string(nil), fields.StorageReferences...)
	}
	if fields.AssetReference != nil {
		rec.AssetReference = *fields.AssetReference
	}
	if fields.CertificateJSONPath != nil {
		rec.CertificateJSONPath = *fields.CertificateJSONPath
	}
	if fields.CertificatePDFPath != nil {
		rec.CertificatePDFPath = *fields.CertificatePDFPath
	}
	if fields.ErrorDetail != nil {
		rec.ErrorDetail = *fields.ErrorDetail
	}
	rec.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *session) Close() error {
	return nil
}
