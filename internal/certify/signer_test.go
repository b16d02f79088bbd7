package certify

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ingmarAvocado/abs-worker/internal/core/domain"
)

type stubRenderer struct {
	path        string
	explorerURL string
	err         error
}

func (r *stubRenderer) Render(path string, payload map[string]any, explorerURL string) error {
	if r.err != nil {
		return r.err
	}
	r.path = path
	r.explorerURL = explorerURL
	return os.WriteFile(path, []byte("%PDF-stub"), 0o644)
}

func testRecord(kind domain.RecordKind) *domain.NotarizationRecord {
	return &domain.NotarizationRecord{
		ID:                 "rec-1",
		OwnerID:            "owner-1",
		FileName:           "contract.pdf",
		Kind:               kind,
		ContentFingerprint: "deadbeefcafe0123456789",
		ProofReference:     "0xproof",
		CreatedAt:          time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
}

func testReceipt() *domain.Receipt {
	return &domain.Receipt{ProofReference: "0xproof", BlockNumber: 4242, Confirmations: 6}
}

func newTestSigner(t *testing.T, renderer PDFRenderer) (*Signer, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		StoragePath:     dir,
		Version:         "1.0",
		Network:         "testnet",
		ExplorerBaseURL: "https://explorer.example.org",
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSignerWithRenderer(NewHexKeyProvider(testSeedHex), renderer, cfg, log), dir
}

func TestSignWritesBothArtifacts(t *testing.T) {
	renderer := &stubRenderer{}
	signer, dir := newTestSigner(t, renderer)

	jsonPath, pdfPath, err := signer.Sign(context.Background(), testRecord(domain.KindHashOnly), testReceipt())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantBase := filepath.Join(dir, "owner-1", "cert_rec-1_deadbeef")
	if jsonPath != wantBase+".json" {
		t.Errorf("json path %q, want %q", jsonPath, wantBase+".json")
	}
	if pdfPath != wantBase+".pdf" {
		t.Errorf("pdf path %q, want %q", pdfPath, wantBase+".pdf")
	}
	for _, p := range []string{jsonPath, pdfPath} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("artifact missing: %v", err)
		}
	}
	if renderer.explorerURL != "https://explorer.example.org/tx/0xproof" {
		t.Errorf("explorer URL %q", renderer.explorerURL)
	}
}

func TestSignSignatureVerifies(t *testing.T) {
	signer, _ := newTestSigner(t, &stubRenderer{})

	jsonPath, _, err := signer.Sign(context.Background(), testRecord(domain.KindHashOnly), testReceipt())
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatal(err)
	}

	sigHex, _ := payload["signature"].(string)
	pubHex, _ := payload["public_key"].(string)
	if sigHex == "" || pubHex == "" {
		t.Fatal("certificate missing signature or public key")
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		t.Fatal(err)
	}
	pub, err := hex.DecodeString(pubHex)
	if err != nil {
		t.Fatal(err)
	}

	// The signature covers the payload without the signature fields,
	// marshaled with sorted keys.
	delete(payload, "signature")
	delete(payload, "public_key")
	canonical, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}

	if !ed25519.Verify(ed25519.PublicKey(pub), canonical, sig) {
		t.Error("certificate signature does not verify")
	}
}

func TestSignPayloadFields(t *testing.T) {
	signer, _ := newTestSigner(t, &stubRenderer{})

	jsonPath, _, err := signer.Sign(context.Background(), testRecord(domain.KindHashOnly), testReceipt())
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(jsonPath)
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatal(err)
	}

	wants := map[string]any{
		"certificate_version": "1.0",
		"document_id":         "rec-1",
		"owner_id":            "owner-1",
		"file_name":           "contract.pdf",
		"file_hash":           "deadbeefcafe0123456789",
		"proof_reference":     "0xproof",
		"block_number":        float64(4242),
		"confirmations":       float64(6),
		"network":             "testnet",
		"type":                "hash_only",
		"timestamp":           "2026-03-14T12:00:00Z",
	}
	for k, want := range wants {
		if got := payload[k]; got != want {
			t.Errorf("payload[%q] = %v, want %v", k, got, want)
		}
	}
	if _, ok := payload["asset_reference"]; ok {
		t.Error("hash-only certificate carries asset fields")
	}
}

func TestSignAssetMintExtras(t *testing.T) {
	signer, _ := newTestSigner(t, &stubRenderer{})

	rec := testRecord(domain.KindAssetMint)
	rec.AssetReference = "asset-7"
	rec.StorageReferences = []string{"ar://file", "ar://meta"}

	jsonPath, _, err := signer.Sign(context.Background(), rec, testReceipt())
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(jsonPath)
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatal(err)
	}

	if payload["asset_reference"] != "asset-7" {
		t.Errorf("asset_reference = %v", payload["asset_reference"])
	}
	if payload["storage_file_url"] != "ar://file" || payload["storage_metadata_url"] != "ar://meta" {
		t.Errorf("storage urls = %v, %v", payload["storage_file_url"], payload["storage_metadata_url"])
	}
	if payload["type"] != "asset_mint" {
		t.Errorf("type = %v", payload["type"])
	}
}

func TestSignKeyUnavailableWritesNothing(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{StoragePath: dir, Network: "testnet"}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	signer := NewSignerWithRenderer(NewHexKeyProvider("bogus"), &stubRenderer{}, cfg, log)

	_, _, err := signer.Sign(context.Background(), testRecord(domain.KindHashOnly), testReceipt())
	if err == nil {
		t.Fatal("expected error for unavailable key")
	}

	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(entries) != 0 {
		t.Errorf("artifacts written despite missing key: %v", entries)
	}
}

func TestSignRendererFailure(t *testing.T) {
	renderer := &stubRenderer{err: os.ErrPermission}
	signer, _ := newTestSigner(t, renderer)

	_, _, err := signer.Sign(context.Background(), testRecord(domain.KindHashOnly), testReceipt())
	if err == nil {
		t.Fatal("expected error when the renderer fails")
	}
}

func TestShortFingerprint(t *testing.T) {
	if got := shortFingerprint("abcdef0123456789"); got != "abcdef01" {
		t.Errorf("got %q, want abcdef01", got)
	}
	if got := shortFingerprint("abc"); got != "abc" {
		t.Errorf("short input mangled: %q", got)
	}
}
