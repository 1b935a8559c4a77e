package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Admin is the single operator account allowed to mutate the catalog.
type Admin struct {
	Username     string
	PasswordHash []byte
}

func NewAdmin(username, passwordHash string) *Admin {
	return &Admin{
		Username:     strings.TrimSpace(username),
		PasswordHash: []byte(passwordHash),
	}
}

// Verify checks the credentials. The bcrypt comparison runs even for an
// unknown username so both failures take the same time.
func (a *Admin) Verify(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(a.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password))
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword produces a value suitable for admin.password_hash.
func HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
