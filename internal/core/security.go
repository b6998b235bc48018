// AngelaMos | 2026
// security.go

package core

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor for new digests. Raising it makes
// NeedsRehash report older digests so logins can upgrade them.
const PasswordCost = bcrypt.DefaultCost

const maxPasswordBytes = 72

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("hash password: empty password: %w", ErrInvalidInput)
	}

	if !utf8.ValidString(password) {
		return "", fmt.Errorf("hash password: not valid text: %w", ErrInvalidInput)
	}

	if len(password) > maxPasswordBytes {
		return "", fmt.Errorf(
			"hash password: longer than %d bytes: %w",
			maxPasswordBytes,
			ErrInvalidInput,
		)
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	return string(digest), nil
}

// VerifyPassword never fails loudly: an empty or malformed digest is simply a
// mismatch.
func VerifyPassword(password, digest string) bool {
	if digest == "" || password == "" {
		return false
	}

	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	return err == nil
}

func NeedsRehash(digest string) bool {
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil {
		return true
	}
	return cost != PasswordCost
}

var dummyHash string

func init() {
	hash, err := HashPassword("dummy_password_for_timing_attack_prevention")
	if err != nil {
		panic(fmt.Sprintf("security: failed to generate dummy hash: %v", err))
	}
	dummyHash = hash
}

// VerifyPasswordTimingSafe burns the same bcrypt work whether or not the
// account exists, so response timing does not leak which identifiers are
// registered.
func VerifyPasswordTimingSafe(password string, digest *string) bool {
	if digest == nil || *digest == "" {
		_ = VerifyPassword(password, dummyHash)
		return false
	}

	return VerifyPassword(password, *digest)
}

var errBadCodeLength = errors.New("code length must be between 1 and 18")

// GenerateNumericCode returns a uniformly random, zero-padded decimal code.
func GenerateNumericCode(digits int) (string, error) {
	if digits < 1 || digits > 18 {
		return "", errBadCodeLength
	}

	upper := big.NewInt(1)
	for range digits {
		upper.Mul(upper, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
