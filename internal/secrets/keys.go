// Package secrets derives the store encryption key from a master password.
// The database layer never sees the password, only opaque key bytes.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
)

const (
	saltLen = 32

	// argon2id parameters: 3 iterations, 64 MiB, single lane.
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 1

	// KeyLen is the derived key size in bytes.
	KeyLen = 32
)

// DeriveKey derives a key from the master password with argon2id. The
// purpose string is mixed into the salt so one password yields independent
// keys for independent uses (store encryption vs. anything else).
func DeriveKey(password string, salt []byte, purpose string) []byte {
	mixed := sha256.Sum256(append(append([]byte{}, salt...), []byte(purpose)...))
	return argon2.IDKey([]byte(password), mixed[:], argonTime, argonMemory, argonThreads, KeyLen)
}

// LoadOrCreateSalt reads the salt file, generating it (0600) on first use.
// The salt is not secret, but it must be stable: losing it loses the store.
func LoadOrCreateSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	if err == nil {
		if len(salt) != saltLen {
			return nil, fmt.Errorf("salt file %s: expected %d bytes, got %d", path, saltLen, len(salt))
		}
		return salt, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read salt file %s: %w", path, err)
	}

	salt = make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create salt dir: %w", err)
	}
	if err := os.WriteFile(path, salt, 0o600); err != nil {
		return nil, fmt.Errorf("write salt file %s: %w", path, err)
	}
	return salt, nil
}
