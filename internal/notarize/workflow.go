package notarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"time"

	"github.com/ingmarAvocado/abs-worker/internal/core/domain"
)

const defaultErrorDetailLimit = 500

// Config holds the workflow's retry and monitoring budgets.
type Config struct {
	// SubmitRetry wraps ledger submissions and storage uploads.
	SubmitRetry RetryConfig
	// FetchRetry wraps individual receipt fetches inside the monitor.
	FetchRetry RetryConfig
	// ConfirmRetry is the outer budget for confirmation timeouts; once
	// exhausted the timeout fails the workflow.
	ConfirmRetry RetryConfig
	Monitor      MonitorConfig
	// ErrorDetailLimit bounds the persisted failure description in bytes.
	ErrorDetailLimit int
}

// Engine is the workflow orchestrator. It owns the record's state
// transitions; all collaborators are passed in, never constructed here.
type Engine struct {
	store   RecordStore
	ledger  LedgerClient
	storage StorageClient
	source  ContentSource
	signer  CertificateSigner
	monitor *Monitor
	cfg     Config
	log     *slog.Logger
}

// NewEngine creates a workflow engine over the given collaborators.
func NewEngine(
	store RecordStore,
	ledger LedgerClient,
	storage StorageClient,
	source ContentSource,
	signer CertificateSigner,
	cfg Config,
	log *slog.Logger,
) *Engine {
	if cfg.ErrorDetailLimit <= 0 {
		cfg.ErrorDetailLimit = defaultErrorDetailLimit
	}
	if cfg.SubmitRetry.MaxAttempts == 0 {
		cfg.SubmitRetry = DefaultRetryConfig
	}
	if cfg.FetchRetry.MaxAttempts == 0 {
		cfg.FetchRetry = DefaultRetryConfig
	}
	if cfg.ConfirmRetry.MaxAttempts == 0 {
		cfg.ConfirmRetry = RetryConfig{
			MaxAttempts:     2,
			InitialDelay:    time.Second,
			MaxDelay:        time.Minute,
			BackoffMultiple: 2.0,
		}
	}
	return &Engine{
		store:   store,
		ledger:  ledger,
		storage: storage,
		source:  source,
		signer:  signer,
		monitor: NewMonitor(ledger, cfg.Monitor, cfg.FetchRetry, log),
		cfg:     cfg,
		log:     log,
	}
}

// Run drives one record through the workflow. A record already in
// processing or a terminal state is a no-op; otherwise the run ends with
// the record finalized or marked as error, each in a single commit. The
// original failure is returned to the caller after the error state is
// persisted.
func (e *Engine) Run(ctx context.Context, recordID string) error {
	sess, err := e.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin record session: %w", err)
	}
	defer func() { _ = sess.Close() }()

	rec, err := sess.Load(ctx, recordID)
	if err != nil {
		return err
	}

	if rec.Status == domain.StatusProcessing {
		e.log.Info("record already processing, skipping", "record_id", recordID)
		return nil
	}
	if rec.Status.Terminal() {
		e.log.Info("record already terminal, skipping", "record_id", recordID, "status", rec.Status)
		return nil
	}
	if rec.Status != domain.StatusPending {
		return &domain.InvalidStateError{RecordID: recordID, Status: rec.Status}
	}

	// Commit point 1: claim the record before any external call. Losing
	// the compare-and-set means a concurrent run owns it.
	cleared := ""
	claimed, err := sess.Transition(ctx, recordID, domain.StatusPending, domain.StatusProcessing,
		domain.TransitionFields{ErrorDetail: &cleared})
	if err != nil {
		return fmt.Errorf("claim record %s: %w", recordID, err)
	}
	if !claimed {
		e.log.Info("record claimed by concurrent run, skipping", "record_id", recordID)
		return nil
	}

	WorkflowsStarted.WithLabelValues(string(rec.Kind)).Inc()
	e.log.Info("workflow started", "record_id", recordID, "kind", rec.Kind)
	start := time.Now()

	result, err := e.execute(ctx, rec)
	if err != nil {
		e.fail(ctx, sess, rec, err)
		WorkflowsCompleted.WithLabelValues(string(rec.Kind), "error").Inc()
		WorkflowDuration.WithLabelValues(string(rec.Kind)).Observe(time.Since(start).Seconds())
		return err
	}

	// Commit point 2: every success field lands in one durable write.
	done, err := sess.Transition(ctx, recordID, domain.StatusProcessing, domain.StatusFinalized, result.fields())
	if err == nil && !done {
		err = fmt.Errorf("record %s left processing before finalize", recordID)
	}
	if err != nil {
		e.fail(ctx, sess, rec, err)
		WorkflowsCompleted.WithLabelValues(string(rec.Kind), "error").Inc()
		WorkflowDuration.WithLabelValues(string(rec.Kind)).Observe(time.Since(start).Seconds())
		return err
	}

	WorkflowsCompleted.WithLabelValues(string(rec.Kind), "finalized").Inc()
	WorkflowDuration.WithLabelValues(string(rec.Kind)).Observe(time.Since(start).Seconds())
	e.log.Info("workflow finalized",
		"record_id", recordID,
		"proof_ref", result.proofReference,
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}

type workResult struct {
	proofReference    string
	storageReferences []string
	assetReference    string
	jsonPath          string
	pdfPath           string
}

func (r *workResult) fields() domain.TransitionFields {
	f := domain.TransitionFields{
		ProofReference:      &r.proofReference,
		StorageReferences:   r.storageReferences,
		CertificateJSONPath: &r.jsonPath,
		CertificatePDFPath:  &r.pdfPath,
	}
	if r.assetReference != "" {
		f.AssetReference = &r.assetReference
	}
	return f
}

func (e *Engine) execute(ctx context.Context, rec *domain.NotarizationRecord) (*workResult, error) {
	var (
		proofRef    string
		assetRef    string
		storageRefs []string
	)

	switch rec.Kind {
	case domain.KindAssetMint:
		res, err := e.mintAsset(ctx, rec)
		if err != nil {
			return nil, err
		}
		proofRef = res.ProofReference
		assetRef = res.AssetReference
		storageRefs = res.StorageReferences

	default:
		ref, err := Do(ctx, "submit_proof", e.cfg.SubmitRetry, func(ctx context.Context) (string, error) {
			return e.ledger.SubmitProof(ctx, rec.ContentFingerprint, map[string]string{
				"file_name": rec.FileName,
				"timestamp": rec.CreatedAt.UTC().Format(time.RFC3339),
			})
		})
		if err != nil {
			return nil, err
		}
		proofRef = ref
	}

	e.log.Info("proof submitted", "record_id", rec.ID, "proof_ref", proofRef)

	receipt, err := Do(ctx, "await_finality", e.cfg.ConfirmRetry, func(ctx context.Context) (*domain.Receipt, error) {
		return e.monitor.AwaitFinality(ctx, proofRef)
	})
	if err != nil {
		return nil, err
	}

	signed := *rec
	signed.ProofReference = proofRef
	signed.AssetReference = assetRef
	signed.StorageReferences = storageRefs

	jsonPath, pdfPath, err := e.signer.Sign(ctx, &signed, receipt)
	if err != nil {
		return nil, err
	}

	return &workResult{
		proofReference:    proofRef,
		storageReferences: storageRefs,
		assetReference:    assetRef,
		jsonPath:          jsonPath,
		pdfPath:           pdfPath,
	}, nil
}

// mintAsset supports both mint shapes: the one-call variant that uploads
// content internally, and the two-step variant where we upload content and
// metadata first.
func (e *Engine) mintAsset(ctx context.Context, rec *domain.NotarizationRecord) (*domain.MintResult, error) {
	content, err := e.source.Read(ctx, rec.FilePath)
	if err != nil {
		return nil, fmt.Errorf("read content for %s: %w", rec.ID, err)
	}

	if cm, ok := e.ledger.(CombinedMinter); ok {
		return Do(ctx, "mint_asset", e.cfg.SubmitRetry, func(ctx context.Context) (*domain.MintResult, error) {
			return cm.MintAssetWithContent(ctx, rec.OwnerAddress, content, contentType(rec.FileName))
		})
	}

	minter, ok := e.ledger.(AssetMinter)
	if !ok {
		return nil, fmt.Errorf("ledger client supports neither mint shape")
	}

	fileURL, err := Do(ctx, "upload_content", e.cfg.SubmitRetry, func(ctx context.Context) (string, error) {
		return e.storage.Upload(ctx, content, contentType(rec.FileName))
	})
	if err != nil {
		return nil, err
	}

	metadata, err := json.Marshal(map[string]string{
		"name":        rec.FileName,
		"description": "Notarized document: " + rec.FileName,
		"file_hash":   rec.ContentFingerprint,
		"file_url":    fileURL,
		"timestamp":   rec.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal asset metadata: %w", err)
	}

	metadataURL, err := Do(ctx, "upload_metadata", e.cfg.SubmitRetry, func(ctx context.Context) (string, error) {
		return e.storage.Upload(ctx, metadata, "application/json")
	})
	if err != nil {
		return nil, err
	}

	res, err := Do(ctx, "mint_asset", e.cfg.SubmitRetry, func(ctx context.Context) (*domain.MintResult, error) {
		return minter.MintAsset(ctx, rec.OwnerAddress, metadataURL)
	})
	if err != nil {
		return nil, err
	}

	res.StorageReferences = []string{fileURL, metadataURL}
	return res, nil
}

// fail persists the error state through the session that claimed the
// record. The persist uses an uncancelable context so a canceled workflow
// still records its failure. If the persist itself fails the record stays
// in processing and needs an operator reset; there is no further fallback.
func (e *Engine) fail(ctx context.Context, sess RecordSession, rec *domain.NotarizationRecord, cause error) {
	detail := truncateDetail(cause.Error(), e.cfg.ErrorDetailLimit)
	persistCtx := context.WithoutCancel(ctx)

	ok, err := sess.Transition(persistCtx, rec.ID, domain.StatusProcessing, domain.StatusError,
		domain.TransitionFields{ErrorDetail: &detail})
	if err != nil {
		e.log.Error("could not persist error state, record stuck in processing",
			"record_id", rec.ID, "cause", cause, "error", err)
		return
	}
	if !ok {
		e.log.Error("record left processing before error state could be persisted",
			"record_id", rec.ID, "cause", cause)
		return
	}

	e.log.Error("workflow failed", "record_id", rec.ID, "kind", rec.Kind, "error", cause)
}

func truncateDetail(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

func contentType(fileName string) string {
	if ct := mime.TypeByExtension(filepath.Ext(fileName)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
