package memory

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// sealer is the authenticated stream cipher used for history-at-rest
//: XChaCha20-Poly1305, chosen over plain ChaCha20-Poly1305
// for its 24-byte nonce, which makes random nonce generation safe for the
// lifetime of a single key without a counter.
type sealer struct {
	aead cipher.AEAD
}

func newSealer(key []byte) (*sealer, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("construct cipher: %w", err)
	}
	return &sealer{aead: aead}, nil
}

// seal encrypts plaintext, returning (ciphertext, nonce). additionalData
// is authenticated but not encrypted (here, the record id, so a
// ciphertext can't be silently reattached to a different index row).
func (s *sealer) seal(plaintext, additionalData []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("generate nonce: %w", err)
	}
	ciphertext = s.aead.Seal(nil, nonce, plaintext, additionalData)
	return ciphertext, nonce, nil
}

func (s *sealer) open(ciphertext, nonce, additionalData []byte) ([]byte, error) {
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	return plaintext, nil
}
