package models

import "time"

// Roles assignable to an identity.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// IdentityModel is an account row owned by the identity service.
// Email is stored case-folded; uniqueness is enforced on the folded form.
type IdentityModel struct {
	Base
	Email      string `json:"email"       gorm:"uniqueIndex;size:191;not null"`
	Password   string `json:"-"           gorm:"size:512;not null"` // argon2id encoded verifier
	Role       string `json:"role"        gorm:"size:16;not null;default:user"`
	IsActive   bool   `json:"is_active"   gorm:"not null;default:true"`
	IsVerified bool   `json:"is_verified" gorm:"not null;default:false"`
}

func (IdentityModel) TableName() string { return "users" }

// RefreshTokenModel is the server-side record backing a refresh credential.
// Only the SHA-256 digest of the signed token is stored, never the token.
type RefreshTokenModel struct {
	Base
	UserID      string     `json:"user_id"      gorm:"index;type:char(36);not null"`
	TokenDigest string     `json:"-"            gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt   time.Time  `json:"expires_at"   gorm:"index;not null"`
	LastUsedAt  *time.Time `json:"last_used_at"`
	Revoked     bool       `json:"revoked"      gorm:"not null;default:false"`
}

func (RefreshTokenModel) TableName() string { return "refresh_tokens" }
