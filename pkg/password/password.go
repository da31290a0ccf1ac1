package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/w3villa-riyaz-ahmad/tutorconnect-api/pkg/errors"
)

// MinLength is the minimum accepted password length
const MinLength = 8

// Validate checks a plaintext password against the signup policy
func Validate(plain string) error {
	if len(plain) < MinLength {
		return apperrors.ValidationError(fmt.Sprintf("Password must be at least %d characters", MinLength))
	}
	if len(plain) > 72 {
		// bcrypt truncates beyond 72 bytes
		return apperrors.ValidationError("Password must be at most 72 characters")
	}
	return nil
}

// Hash hashes a plaintext password with bcrypt
func Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify compares a plaintext password against a bcrypt hash
func Verify(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
