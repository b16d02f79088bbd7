package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ingmarAvocado/abs-worker/internal/core/domain"
	"github.com/ingmarAvocado/abs-worker/internal/notarize"
)

const uniqueViolation = "23505"

const recordColumns = `id, owner_id, owner_address, file_name, file_path, status, kind,
	content_fingerprint, proof_reference, storage_references, asset_reference,
	certificate_json_path, certificate_pdf_path, error_detail, created_at, updated_at`

// RecordRepo implements notarize.RecordStore using PostgreSQL. Status
// transitions are single conditional UPDATEs, so every commit point is one
// atomic compare-and-set against the current status.
type RecordRepo struct {
	db *DB
}

// NewRecordRepo creates a new PostgreSQL record repository.
func NewRecordRepo(db *DB) *RecordRepo {
	return &RecordRepo{db: db}
}

// Create inserts a new record. A duplicate content fingerprint is rejected
// with a FatalLedgerError before any workflow step runs.
func (r *RecordRepo) Create(ctx context.Context, rec *domain.NotarizationRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = domain.StatusPending
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notarization_records
			(id, owner_id, owner_address, file_name, file_path, status, kind,
			 content_fingerprint, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.OwnerID, rec.OwnerAddress, rec.FileName, rec.FilePath,
		string(rec.Status), string(rec.Kind), rec.ContentFingerprint,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return &domain.FatalLedgerError{
				Kind:   domain.FaultDuplicateFingerprint,
				Detail: fmt.Sprintf("fingerprint %s already notarized", rec.ContentFingerprint),
			}
		}
		return fmt.Errorf("failed to create record: %w", err)
	}
	return nil
}

// Load retrieves a record by id.
func (r *RecordRepo) Load(ctx context.Context, id string) (*domain.NotarizationRecord, error) {
	return loadRecord(ctx, r.db, id)
}

// Reset forces a record back to pending and clears its error detail.
// Operator tooling only; the workflow itself never re-enters pending.
func (r *RecordRepo) Reset(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notarization_records
		SET status = $2, error_detail = NULL, updated_at = $3
		WHERE id = $1`,
		id, string(domain.StatusPending), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to reset record %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return &domain.NotFoundError{RecordID: id}
	}
	return nil
}

// Begin acquires a dedicated connection for one workflow run. Both the
// entry guard and the terminal write go through it.
func (r *RecordRepo) Begin(ctx context.Context) (notarize.RecordSession, error) {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return &recordSession{conn: conn}, nil
}

type recordSession struct {
	conn *sqlx.Conn
}

func (s *recordSession) Load(ctx context.Context, id string) (*domain.NotarizationRecord, error) {
	return loadRecord(ctx, s.conn, id)
}

func (s *recordSession) Transition(
	ctx context.Context,
	id string,
	expected, next domain.RecordStatus,
	fields domain.TransitionFields,
) (bool, error) {
	var storageRefs pq.StringArray
	if fields.StorageReferences != nil {
		storageRefs = pq.StringArray(fields.StorageReferences)
	}

	res, err := s.conn.ExecContext(ctx, `
		UPDATE notarization_records
		SET status = $3,
			proof_reference = COALESCE($4::text, proof_reference),
			storage_references = COALESCE($5::text[], storage_references),
			asset_reference = COALESCE($6::text, asset_reference),
			certificate_json_path = COALESCE($7::text, certificate_json_path),
			certificate_pdf_path = COALESCE($8::text, certificate_pdf_path),
			error_detail = CASE WHEN $9::boolean THEN $10::text ELSE error_detail END,
			updated_at = $11
		WHERE id = $1 AND status = $2`,
		id, string(expected), string(next),
		fields.ProofReference, storageRefs, fields.AssetReference,
		fields.CertificateJSONPath, fields.CertificatePDFPath,
		fields.ErrorDetail != nil, nullable(fields.ErrorDetail),
		time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to transition record %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *recordSession) Close() error {
	return s.conn.Close()
}

type querier interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

func loadRecord(ctx context.Context, q querier, id string) (*domain.NotarizationRecord, error) {
	var row recordRow
	err := q.GetContext(ctx, &row,
		`SELECT `+recordColumns+` FROM notarization_records WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{RecordID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", id, err)
	}
	return row.toDomain(), nil
}

type recordRow struct {
	ID                  string         `db:"id"`
	OwnerID             string         `db:"owner_id"`
	OwnerAddress        string         `db:"owner_address"`
	FileName            string         `db:"file_name"`
	FilePath            string         `db:"file_path"`
	Status              string         `db:"status"`
	Kind                string         `db:"kind"`
	ContentFingerprint  string         `db:"content_fingerprint"`
	ProofReference      sql.NullString `db:"proof_reference"`
	StorageReferences   pq.StringArray `db:"storage_references"`
	AssetReference      sql.NullString `db:"asset_reference"`
	CertificateJSONPath sql.NullString `db:"certificate_json_path"`
	CertificatePDFPath  sql.NullString `db:"certificate_pdf_path"`
	ErrorDetail         sql.NullString `db:"error_detail"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

func (r *recordRow) toDomain() *domain.NotarizationRecord {
	return &domain.NotarizationRecord{
		ID:                  r.ID,
		OwnerID:             r.OwnerID,
		OwnerAddress:        r.OwnerAddress,
		FileName:            r.FileName,
		FilePath:            r.FilePath,
		Status:              domain.RecordStatus(r.Status),
		Kind:                domain.RecordKind(r.Kind),
		ContentFingerprint:  r.ContentFingerprint,
		ProofReference:      r.ProofReference.String,
		StorageReferences:   []string(r.StorageReferences),
		AssetReference:      r.AssetReference.String,
		CertificateJSONPath: r.CertificateJSONPath.String,
		CertificatePDFPath:  r.CertificatePDFPath.String,
		ErrorDetail:         r.ErrorDetail.String,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
