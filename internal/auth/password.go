package auth

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor for stored passwords.
//
// COST TUNING RULE OF THUMB:
// Pick the cost so one hash takes ~200–300ms on the production box. Each +1
// doubles the work. The dev server runs on laptops, so 12 is plenty.
const DefaultCost = 12

// maxPasswordBytes is bcrypt's input limit. Longer input is silently
// truncated by the algorithm, so Hash refuses it instead.
const maxPasswordBytes = 72

// ErrPasswordMismatch means the password does not match the stored hash.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService hashes and verifies passwords with bcrypt.
//
// WHY BCRYPT?
// It is slow on purpose and salts every hash, so equal passwords produce
// different strings and a leaked users table is expensive to crack. The
// salt and the cost live inside the hash itself:
//
//	$2a$12$<22-char salt><31-char hash>
type PasswordService struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewPasswordService returns a PasswordService using DefaultCost.
func NewPasswordService() *PasswordService {
	return NewPasswordServiceWithCost(DefaultCost)
}

// NewPasswordServiceWithCost is for tests in other packages: bcrypt.MinCost
// (4) hashes in well under a millisecond. Never use a low cost in production.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash of plaintext.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", maxPasswordBytes)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil if plaintext matches hash and ErrPasswordMismatch if
// it does not. Any other error means the stored hash is malformed.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrPasswordMismatch
	default:
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
}

// VerifyUnknown burns the same bcrypt time as Verify for an email that has
// no account, so login latency does not reveal which emails are registered.
// It always returns ErrPasswordMismatch.
func (p *PasswordService) VerifyUnknown(plaintext string) error {
	p.dummyOnce.Do(func() {
		p.dummy, _ = bcrypt.GenerateFromPassword([]byte("jobpilot-unknown-user"), p.cost)
	})
	_ = bcrypt.CompareHashAndPassword(p.dummy, []byte(plaintext))
	return ErrPasswordMismatch
}
