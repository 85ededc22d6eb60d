// Package security hashes staff login passwords.
package security

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLen = 8
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordLen = 72
)

var (
	ErrPasswordLength   = fmt.Errorf("password must be %d to %d bytes", MinPasswordLen, MaxPasswordLen)
	ErrPasswordMismatch = errors.New("password mismatch")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
	// CompareMissing spends the same work as Compare for a login whose
	// username does not exist.
	CompareMissing(password string)
}

// Bcrypt is a PasswordHasher. Costs outside bcrypt's range fall back to
// bcrypt.DefaultCost.
type Bcrypt struct {
	cost int

	decoyOnce sync.Once
	decoy     []byte
}

func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

func (b *Bcrypt) Hash(password string) (string, error) {
	if n := len(password); n < MinPasswordLen || n > MaxPasswordLen {
		return "", ErrPasswordLength
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (b *Bcrypt) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

func (b *Bcrypt) CompareMissing(password string) {
	b.decoyOnce.Do(func() {
		// The decoy only needs the configured cost; its plaintext is never checked.
		b.decoy, _ = bcrypt.GenerateFromPassword([]byte("no-such-account"), b.cost)
	})
	_ = bcrypt.CompareHashAndPassword(b.decoy, []byte(password))
}
