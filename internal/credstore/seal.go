package credstore

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// sealInfo binds derived keys to this store's format version.
const sealInfo = "al-ilm-credstore-v1"

var errSealCorrupt = errors.New("sealed value corrupt")

// sealer encrypts stored values at rest with XChaCha20-Poly1305, keyed from a
// per-install random salt file. The salt lives beside the database, so this
// binds credentials to the install directory rather than guarding against an
// attacker who can read the whole data dir.
type sealer struct {
	aead cipher.AEAD
}

// newSealer loads or creates the salt file at saltPath and derives the AEAD key.
func newSealer(saltPath string) (*sealer, error) {
	salt, err := os.ReadFile(saltPath)
	if os.IsNotExist(err) {
		salt = make([]byte, 32)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("generate seal salt: %w", err)
		}
		if err := os.WriteFile(saltPath, salt, 0o600); err != nil {
			return nil, fmt.Errorf("write seal salt: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("read seal salt: %w", err)
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, salt, nil, []byte(sealInfo)), key); err != nil {
		return nil, fmt.Errorf("derive seal key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &sealer{aead: aead}, nil
}

// seal encrypts plaintext for the given slot. The key name is authenticated
// data, so a value copied between slots fails to open.
func (s *sealer) seal(key Key, plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	ct := s.aead.Seal(nonce, nonce, []byte(plaintext), []byte(key))
	return base64.StdEncoding.EncodeToString(ct), nil
}

// open decrypts a stored value for the given slot.
func (s *sealer) open(key Key, stored string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", errSealCorrupt
	}
	if len(raw) < s.aead.NonceSize() {
		return "", errSealCorrupt
	}
	nonce, ct := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	pt, err := s.aead.Open(nil, nonce, ct, []byte(key))
	if err != nil {
		return "", errSealCorrupt
	}
	return string(pt), nil
}
