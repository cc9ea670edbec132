package token

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Token classes. The token_type claim is checked on every verification so an
// access token can never stand in for a refresh token or vice versa.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrExpired   = errors.New("token expired")
	ErrInvalid   = errors.New("token invalid")
	ErrWrongType = errors.New("token type mismatch")
)

// AccessClaims is the signed payload of an access token. Not stored anywhere.
type AccessClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwtlib.RegisteredClaims
}

// RefreshClaims is the signed payload of a refresh token. TokenID references
// the server-side refresh record.
type RefreshClaims struct {
	UserID    string `json:"user_id"`
	TokenID   string `json:"token_id"`
	TokenType string `json:"token_type"`
	jwtlib.RegisteredClaims
}

// Signer holds the private half of the key pair. Only the identity service
// constructs one.
type Signer struct {
	key *rsa.PrivateKey
}

// Verifier holds the public half. Loaded once at startup and never rotated
// in-process.
type Verifier struct {
	key *rsa.PublicKey
}

// NewSigner loads an RSA private key from a PEM file.
func NewSigner(path string) (*Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	key, err := jwtlib.ParseRSAPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Signer{key: key}, nil
}

// NewVerifier loads an RSA public key from a PEM file.
func NewVerifier(path string) (*Verifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	key, err := jwtlib.ParseRSAPublicKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return &Verifier{key: key}, nil
}

// NewSignerFromKey wraps an in-memory key. Used by tests.
func NewSignerFromKey(key *rsa.PrivateKey) *Signer { return &Signer{key: key} }

// NewVerifierFromKey wraps an in-memory key. Used by tests.
func NewVerifierFromKey(key *rsa.PublicKey) *Verifier { return &Verifier{key: key} }

// SignAccess creates a signed access token.
func (s *Signer) SignAccess(userID, email, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID:    userID,
		Email:     email,
		Role:      role,
		TokenType: TypeAccess,
		RegisteredClaims: jwtlib.RegisteredClaims{
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims).SignedString(s.key)
}

// SignRefresh creates a signed refresh token bound to a refresh record id.
func (s *Signer) SignRefresh(userID, tokenID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		UserID:    userID,
		TokenID:   tokenID,
		TokenType: TypeRefresh,
		RegisteredClaims: jwtlib.RegisteredClaims{
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims).SignedString(s.key)
}

// VerifyAccess validates an access token. Expired tokens return ErrExpired,
// any other failure ErrInvalid, and a refresh token presented here ErrWrongType.
func (v *Verifier) VerifyAccess(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := v.parse(raw, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TypeAccess {
		return nil, ErrWrongType
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token with the same error taxonomy.
func (v *Verifier) VerifyRefresh(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := v.parse(raw, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TypeRefresh {
		return nil, ErrWrongType
	}
	return claims, nil
}

func (v *Verifier) parse(raw string, claims jwtlib.Claims) error {
	tok, err := jwtlib.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return ErrExpired
		}
		return ErrInvalid
	}
	if !tok.Valid {
		return ErrInvalid
	}
	return nil
}

// Digest returns the hex SHA-256 digest of a signed token; the refresh store
// keeps digests, never tokens.
func Digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
