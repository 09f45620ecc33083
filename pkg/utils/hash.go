package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and verifies passwords with bcrypt at a fixed cost.
type Hasher struct {
	Cost int
}

// DefaultHasher uses bcrypt.DefaultCost.
var DefaultHasher = Hasher{Cost: bcrypt.DefaultCost}

// Hash hashes a plain password.
func (h Hasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

// Check compares plain password with hashed password.
func (h Hasher) Check(plain, hashed string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	return err == nil
}

// HashPassword hashes a plain password using bcrypt.DefaultCost.
func HashPassword(password string) (string, error) {
	return DefaultHasher.Hash(password)
}

// CheckPassword compares plain password with hashed password.
func CheckPassword(plain, hashed string) bool {
	return DefaultHasher.Check(plain, hashed)
}
