package identity

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

type RegisterDTO struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginDTO struct {
	Email    string `json:"email"    binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password"     binding:"required"`
}

// UserView is the identity payload returned by auth endpoints.
type UserView struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	IsActive   bool      `json:"is_active"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// TokenPair carries freshly signed tokens from the service to the handler,
// which turns them into cookies.
type TokenPair struct {
	Access  string
	Refresh string
}

// DeletionSummary reports what the user data service removed.
type DeletionSummary struct {
	ProfilesDeleted int `json:"profiles_deleted"`
	PetsDeleted     int `json:"pets_deleted"`
	AnalysesDeleted int `json:"analyses_deleted"`
}

var (
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrUserNotFound       = errors.New("user not found")
	ErrTokenRevoked       = errors.New("refresh token revoked")
	ErrTokenUnknown       = errors.New("refresh token unknown")
	ErrDeletionFailed     = errors.New("user data deletion failed")
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// FoldEmail canonicalizes an email for storage and lookup.
func FoldEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks basic address shape.
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(FoldEmail(email))
}

// ValidatePassword enforces the password policy: at least 8 characters with
// at least one letter and one digit.
func ValidatePassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		}
	}
	return hasLetter && hasDigit
}
