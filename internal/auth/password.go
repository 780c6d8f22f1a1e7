package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost clamps a configured cost into the range bcrypt accepts. Zero or
// negative values fall back to bcrypt.DefaultCost.
func BcryptCost(cost int) int {
	if cost <= 0 {
		return bcrypt.DefaultCost
	}
	return min(max(cost, bcrypt.MinCost), bcrypt.MaxCost)
}

// HashPassword hashes an account password for storage in users.password.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost(cost))
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// ComparePassword reports a non-nil error unless plain matches the stored hash.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
