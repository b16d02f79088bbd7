package certify

import (
	"crypto/ed25519"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ingmarAvocado/abs-worker/internal/core/domain"
)

const testSeedHex = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"

func TestHexKeyProvider(t *testing.T) {
	tests := []struct {
		name    string
		seed    string
		wantErr string
	}{
		{"valid", testSeedHex, ""},
		{"valid with 0x prefix", "0x" + testSeedHex, ""},
		{"not hex", "zzzz", "not valid hexadecimal"},
		{"too short", "deadbeef", "must be 32 bytes"},
		{"too long", testSeedHex + "00", "must be 32 bytes"},
		{"empty", "", "must be 32 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := NewHexKeyProvider(tt.seed).SigningKey()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(key) != ed25519.PrivateKeySize {
					t.Errorf("key size %d, want %d", len(key), ed25519.PrivateKeySize)
				}
				return
			}

			var unavailable *domain.SigningKeyUnavailableError
			if !errors.As(err, &unavailable) {
				t.Fatalf("got %v, want SigningKeyUnavailableError", err)
			}
			if !strings.Contains(unavailable.Reason, tt.wantErr) {
				t.Errorf("reason %q does not mention %q", unavailable.Reason, tt.wantErr)
			}
		})
	}
}

func TestFileKeyProvider(t *testing.T) {
	dir := t.TempDir()

	writeKey := func(name string, content string, mode os.FileMode) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), mode); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("valid", func(t *testing.T) {
		path := writeKey("good.key", testSeedHex+"\n", 0o600)
		key, err := NewFileKeyProvider(path).SigningKey()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(key) != ed25519.PrivateKeySize {
			t.Errorf("key size %d, want %d", len(key), ed25519.PrivateKeySize)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewFileKeyProvider(filepath.Join(dir, "absent.key")).SigningKey()
		var unavailable *domain.SigningKeyUnavailableError
		if !errors.As(err, &unavailable) {
			t.Fatalf("got %v, want SigningKeyUnavailableError", err)
		}
	})

	t.Run("group readable rejected", func(t *testing.T) {
		path := writeKey("loose.key", testSeedHex, 0o640)
		_, err := NewFileKeyProvider(path).SigningKey()
		var unavailable *domain.SigningKeyUnavailableError
		if !errors.As(err, &unavailable) {
			t.Fatalf("got %v, want SigningKeyUnavailableError", err)
		}
		if !strings.Contains(unavailable.Reason, "permissive mode") {
			t.Errorf("reason %q does not mention permissive mode", unavailable.Reason)
		}
	})

	t.Run("world readable rejected", func(t *testing.T) {
		path := writeKey("world.key", testSeedHex, 0o644)
		if _, err := NewFileKeyProvider(path).SigningKey(); err == nil {
			t.Fatal("world-readable key file accepted")
		}
	})

	t.Run("bad content", func(t *testing.T) {
		path := writeKey("bad.key", "not a key", 0o600)
		_, err := NewFileKeyProvider(path).SigningKey()
		var unavailable *domain.SigningKeyUnavailableError
		if !errors.As(err, &unavailable) {
			t.Fatalf("got %v, want SigningKeyUnavailableError", err)
		}
	})
}

func TestKeyDerivationIsDeterministic(t *testing.T) {
	a, err := NewHexKeyProvider(testSeedHex).SigningKey()
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewHexKeyProvider("0x" + testSeedHex).SigningKey()
	if err != nil {
		t.Fatal(err)
	}
	if !a.Equal(b) {
		t.Error("same seed produced different keys")
	}
}
