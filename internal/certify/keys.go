package certify

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/ingmarAvocado/abs-worker/internal/core/domain"
)

// KeyProvider supplies the certificate signing key. Implementations return
// SigningKeyUnavailableError for any failure; the signer never falls back
// to an unsigned artifact.
type KeyProvider interface {
	SigningKey() (ed25519.PrivateKey, error)
}

// FileKeyProvider reads a hex-encoded 32-byte seed from a file. The file
// must not be readable by group or others.
type FileKeyProvider struct {
	path string
}

func NewFileKeyProvider(path string) *FileKeyProvider {
	return &FileKeyProvider{path: path}
}

func (p *FileKeyProvider) SigningKey() (ed25519.PrivateKey, error) {
	info, err := os.Stat(p.path)
	if err != nil {
		return nil, &domain.SigningKeyUnavailableError{
			Reason: fmt.Sprintf("stat %s: %v", p.path, err),
		}
	}

	if info.Mode().Perm()&0o077 != 0 {
		return nil, &domain.SigningKeyUnavailableError{
			Reason: fmt.Sprintf("%s has permissive mode %04o, expected owner-only access", p.path, info.Mode().Perm()),
		}
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, &domain.SigningKeyUnavailableError{
			Reason: fmt.Sprintf("read %s: %v", p.path, err),
		}
	}

	return keyFromHex(strings.TrimSpace(string(data)))
}

// HexKeyProvider holds a hex-encoded seed supplied through configuration.
type HexKeyProvider struct {
	seedHex string
}

func NewHexKeyProvider(seedHex string) *HexKeyProvider {
	return &HexKeyProvider{seedHex: seedHex}
}

func (p *HexKeyProvider) SigningKey() (ed25519.PrivateKey, error) {
	return keyFromHex(p.seedHex)
}

func keyFromHex(s string) (ed25519.PrivateKey, error) {
	s = strings.TrimPrefix(s, "0x")

	seed, err := hex.DecodeString(s)
	if err != nil {
		return nil, &domain.SigningKeyUnavailableError{Reason: "signing key is not valid hexadecimal"}
	}
	if len(seed) != ed25519.SeedSize {
		return nil, &domain.SigningKeyUnavailableError{
			Reason: fmt.Sprintf("signing key must be %d bytes, got %d", ed25519.SeedSize, len(seed)),
		}
	}

	return ed25519.NewKeyFromSeed(seed), nil
}
