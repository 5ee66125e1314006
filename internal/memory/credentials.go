package memory

import (
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrCredentialStoreUnavailable is returned by a CredentialStore when no
// key can be obtained. This disables history persistence entirely rather
// than downgrading to plaintext — callers must not fall back to writing
// unencrypted records.
var ErrCredentialStoreUnavailable = errors.New("memory: host credential store unavailable")

// CredentialStore resolves the symmetric key used to encrypt history at
// rest. No pack example binds an OS keychain (Keychain/Credential
// Manager/Secret Service), so this interface is the seam a real
// integration would satisfy; FileCredentialStore below is the best
// available stand-in, documented as such in DESIGN.md.
type CredentialStore interface {
	Key() ([]byte, error)
}

// FileCredentialStore treats a single 0600-permissioned key file under the
// platform-conventional config directory as the host credential store. It
// generates a random key on first use and refuses to proceed if the file
// cannot be created or read with the expected permissions — it does not
// silently accept a world-readable key.
type FileCredentialStore struct {
	path string
}

// NewFileCredentialStore constructs a store rooted at path (typically
// <config dir>/caro/history.key).
func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{path: path}
}

// Key returns the stored key, generating and persisting one on first call.
func (f *FileCredentialStore) Key() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err == nil {
		if runtime.GOOS != "windows" {
			if info, serr := os.Stat(f.path); serr == nil && info.Mode().Perm()&0o077 != 0 {
				return nil, fmt.Errorf("%w: key file %s is accessible to other users (mode %o)", ErrCredentialStoreUnavailable, f.path, info.Mode().Perm())
			}
		}
		if len(data) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("%w: key file %s has unexpected length %d", ErrCredentialStoreUnavailable, f.path, len(data))
		}
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %v", ErrCredentialStoreUnavailable, err)
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("%w: generate key: %v", ErrCredentialStoreUnavailable, err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return nil, fmt.Errorf("%w: create key directory: %v", ErrCredentialStoreUnavailable, err)
	}
	if err := os.WriteFile(f.path, key, 0o600); err != nil {
		return nil, fmt.Errorf("%w: persist key: %v", ErrCredentialStoreUnavailable, err)
	}
	return key, nil
}

// NoCredentialStore always reports unavailability, used when the caller
// has explicitly disabled history persistence.
type NoCredentialStore struct{}

func (NoCredentialStore) Key() ([]byte, error) {
	return nil, ErrCredentialStoreUnavailable
}
