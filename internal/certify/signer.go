// Package certify produces signed certificate artifacts for finalized
// notarization records: a JSON certificate carrying a detached Ed25519
// signature over the canonical payload, and a PDF rendition with a
// scannable explorer reference.
package certify

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ingmarAvocado/abs-worker/internal/core/domain"
)

// Config holds certificate generation settings.
type Config struct {
	// StoragePath is the root directory for generated artifacts;
	// certificates land in a per-owner subdirectory.
	StoragePath string `yaml:"storage_path"`
	// SigningKeyPath points to a hex-encoded seed file. Mutually
	// exclusive with SigningKeyHex; the file takes precedence.
	SigningKeyPath string `yaml:"signing_key_path"`
	SigningKeyHex  string `yaml:"signing_key_hex"`
	// Version is the certificate schema version embedded in the signed
	// payload.
	Version string `yaml:"version"`
	// Network names the ledger the proof lives on.
	Network string `yaml:"network"`
	// ExplorerBaseURL is the public explorer prefix used for the PDF's
	// QR code, e.g. https://explorer.example.org.
	ExplorerBaseURL string `yaml:"explorer_base_url"`
	// RetentionPeriod bounds how long generated artifacts are kept on
	// disk. Zero disables pruning.
	RetentionPeriod time.Duration `yaml:"retention_period"`
}

// Signer builds, signs and writes certificate artifacts.
type Signer struct {
	keys     KeyProvider
	renderer PDFRenderer
	cfg      Config
	log      *slog.Logger
}

// NewSigner creates a signer rendering PDFs with pdfcpu.
func NewSigner(keys KeyProvider, cfg Config, log *slog.Logger) *Signer {
	return NewSignerWithRenderer(keys, &pdfcpuRenderer{}, cfg, log)
}

// NewSignerWithRenderer creates a signer with a custom PDF renderer.
func NewSignerWithRenderer(keys KeyProvider, renderer PDFRenderer, cfg Config, log *slog.Logger) *Signer {
	if cfg.Version == "" {
		cfg.Version = "1.0"
	}
	return &Signer{keys: keys, renderer: renderer, cfg: cfg, log: log}
}

// Sign writes both certificate artifacts for the record and returns their
// paths. Key material is obtained first: if it is unavailable the method
// fails before a single artifact byte is written.
func (s *Signer) Sign(ctx context.Context, rec *domain.NotarizationRecord, receipt *domain.Receipt) (string, string, error) {
	key, err := s.keys.SigningKey()
	if err != nil {
		var unavailable *domain.SigningKeyUnavailableError
		if errors.As(err, &unavailable) {
			return "", "", err
		}
		return "", "", &domain.SigningKeyUnavailableError{Reason: err.Error()}
	}

	payload := s.payload(rec, receipt)

	canonical, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("canonicalize certificate payload: %w", err)
	}

	signature := ed25519.Sign(key, canonical)
	payload["signature"] = hex.EncodeToString(signature)
	payload["public_key"] = hex.EncodeToString(key.Public().(ed25519.PublicKey))

	dir := filepath.Join(s.cfg.StoragePath, rec.OwnerID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create certificate directory: %w", err)
	}

	base := fmt.Sprintf("cert_%s_%s", rec.ID, shortFingerprint(rec.ContentFingerprint))

	jsonPath := filepath.Join(dir, base+".json")
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode certificate: %w", err)
	}
	if err := os.WriteFile(jsonPath, out, 0o644); err != nil {
		return "", "", fmt.Errorf("write json certificate: %w", err)
	}

	pdfPath := filepath.Join(dir, base+".pdf")
	if err := s.renderer.Render(pdfPath, payload, s.explorerURL(rec.ProofReference)); err != nil {
		return "", "", fmt.Errorf("write pdf certificate: %w", err)
	}

	s.log.Info("certificates generated",
		"record_id", rec.ID,
		"json_path", jsonPath,
		"pdf_path", pdfPath)
	return jsonPath, pdfPath, nil
}

// payload builds the canonical certificate fields. Key order does not
// matter: encoding/json emits map keys sorted, so signing the marshaled
// bytes is order-independent.
func (s *Signer) payload(rec *domain.NotarizationRecord, receipt *domain.Receipt) map[string]any {
	payload := map[string]any{
		"certificate_version": s.cfg.Version,
		"document_id":         rec.ID,
		"owner_id":            rec.OwnerID,
		"file_name":           rec.FileName,
		"file_hash":           rec.ContentFingerprint,
		"proof_reference":     rec.ProofReference,
		"block_number":        receipt.BlockNumber,
		"confirmations":       receipt.Confirmations,
		"network":             s.cfg.Network,
		"type":                string(rec.Kind),
		"timestamp":           rec.CreatedAt.UTC().Format(time.RFC3339),
	}

	if rec.Kind == domain.KindAssetMint {
		if len(rec.StorageReferences) > 0 {
			payload["storage_file_url"] = rec.StorageReferences[0]
		}
		if len(rec.StorageReferences) > 1 {
			payload["storage_metadata_url"] = rec.StorageReferences[1]
		}
		if rec.AssetReference != "" {
			payload["asset_reference"] = rec.AssetReference
		}
	}

	return payload
}

func (s *Signer) explorerURL(proofReference string) string {
	base := strings.TrimSuffix(s.cfg.ExplorerBaseURL, "/")
	if base == "" {
		base = "https://explorer.invalid"
	}
	return base + "/tx/" + proofReference
}

func shortFingerprint(fingerprint string) string {
	if len(fingerprint) > 8 {
		return fingerprint[:8]
	}
	return fingerprint
}
