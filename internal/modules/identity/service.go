package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/petlens/core/internal/models"
	"github.com/petlens/core/internal/pkg/password"
	"github.com/petlens/core/internal/pkg/token"
	"go.uber.org/zap"
)

// UserDataClient is the synchronous call into the user data service used by
// the account deletion protocol.
type UserDataClient interface {
	DeleteUserData(ctx context.Context, userID, role string) (*DeletionSummary, error)
}

// Service implements the token lifecycle.
type Service struct {
	users      UserStore
	refresh    RefreshStore
	signer     *token.Signer
	verifier   *token.Verifier
	userData   UserDataClient
	accessTTL  time.Duration
	refreshTTL time.Duration
	log        *zap.Logger
}

func NewService(users UserStore, refresh RefreshStore, signer *token.Signer, verifier *token.Verifier,
	userData UserDataClient, accessTTL, refreshTTL time.Duration, log *zap.Logger) *Service {
	return &Service{
		users:      users,
		refresh:    refresh,
		signer:     signer,
		verifier:   verifier,
		userData:   userData,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		log:        log,
	}
}

// signPair issues a fresh (access, refresh) pair and builds the refresh
// record to persist. The record is not saved here: login and refresh persist
// it through different atomic store operations.
func (s *Service) signPair(user *models.IdentityModel) (TokenPair, *models.RefreshTokenModel, error) {
	recID := uuid.New().String()

	access, err := s.signer.SignAccess(user.ID, user.Email, user.Role, s.accessTTL)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.signer.SignRefresh(user.ID, recID, s.refreshTTL)
	if err != nil {
		return TokenPair{}, nil, fmt.Errorf("sign refresh token: %w", err)
	}

	rec := &models.RefreshTokenModel{
		Base:        models.Base{ID: recID},
		UserID:      user.ID,
		TokenDigest: token.Digest(refresh),
		ExpiresAt:   time.Now().Add(s.refreshTTL),
	}
	return TokenPair{Access: access, Refresh: refresh}, rec, nil
}

// Register creates an identity and logs it in.
func (s *Service) Register(ctx context.Context, dto *RegisterDTO) (*models.IdentityModel, TokenPair, error) {
	user := &models.IdentityModel{
		Email:    FoldEmail(dto.Email),
		Role:     models.RoleUser,
		IsActive: true,
	}
	verifier, err := password.Hash(dto.Password)
	if err != nil {
		return nil, TokenPair{}, err
	}
	user.Password = verifier

	if err := s.users.Create(ctx, user); err != nil {
		return nil, TokenPair{}, err
	}

	pair, rec, err := s.signPair(user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if err := s.refresh.ReplaceActive(ctx, user.ID, rec); err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Login verifies credentials, revokes all outstanding refresh records
// (single-session policy) and issues a new pair.
func (s *Service) Login(ctx context.Context, email, plain string) (*models.IdentityModel, TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, err
	}

	ok, err := password.Verify(user.Password, plain)
	if err != nil || !ok {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, TokenPair{}, ErrAccountDisabled
	}

	pair, rec, err := s.signPair(user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if err := s.refresh.ReplaceActive(ctx, user.ID, rec); err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// Refresh rotates a refresh credential: the presented record is consumed and
// a new pair issued. Any replay of the consumed token fails the digest match
// or the rotation guard.
func (s *Service) Refresh(ctx context.Context, raw string) (*models.IdentityModel, TokenPair, error) {
	claims, err := s.verifyRefreshClaims(raw)
	if err != nil {
		return nil, TokenPair{}, err
	}

	rec, err := s.refresh.FindByID(ctx, claims.TokenID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if rec.Revoked {
		return nil, TokenPair{}, ErrTokenRevoked
	}
	if time.Now().After(rec.ExpiresAt) {
		return nil, TokenPair{}, token.ErrExpired
	}
	if rec.TokenDigest != token.Digest(raw) {
		return nil, TokenPair{}, token.ErrInvalid
	}

	user, err := s.users.FindByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, TokenPair{}, token.ErrInvalid
		}
		return nil, TokenPair{}, err
	}
	if !user.IsActive {
		return nil, TokenPair{}, ErrAccountDisabled
	}

	pair, newRec, err := s.signPair(user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if err := s.refresh.Rotate(ctx, rec.ID, newRec); err != nil {
		return nil, TokenPair{}, err
	}
	s.refresh.TouchLastUsed(ctx, rec.ID)
	return user, pair, nil
}

// Logout revokes the presented refresh record, best-effort. It never fails:
// the handler clears cookies and returns success regardless.
func (s *Service) Logout(ctx context.Context, raw string) {
	if raw == "" {
		return
	}
	claims, err := s.verifyRefreshClaims(raw)
	if err != nil {
		return
	}
	if _, err := s.refresh.Revoke(ctx, claims.TokenID); err != nil {
		s.log.Warn("logout revoke failed", zap.Error(err))
	}
}

// Verify returns the identity behind a validated access token, checking the
// account is still present and active.
func (s *Service) Verify(ctx context.Context, userID string) (*models.IdentityModel, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return user, nil
}

// ChangePassword replaces the verifier, revokes every outstanding refresh
// record and issues a fresh pair.
func (s *Service) ChangePassword(ctx context.Context, userID string, dto *ChangePasswordDTO) (*models.IdentityModel, TokenPair, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, TokenPair{}, err
	}
	ok, err := password.Verify(user.Password, dto.CurrentPassword)
	if err != nil || !ok {
		return nil, TokenPair{}, ErrInvalidCredentials
	}

	verifier, err := password.Hash(dto.NewPassword)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if err := s.users.UpdatePassword(ctx, userID, verifier); err != nil {
		return nil, TokenPair{}, err
	}
	user.Password = verifier

	pair, rec, err := s.signPair(user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	if err := s.refresh.ReplaceActive(ctx, userID, rec); err != nil {
		return nil, TokenPair{}, err
	}
	return user, pair, nil
}

// DeleteSelf runs the two-step deletion protocol: user data first, identity
// row only after that succeeds. A failed first step leaves the identity row
// untouched.
func (s *Service) DeleteSelf(ctx context.Context, userID, role string) (*DeletionSummary, error) {
	summary, err := s.userData.DeleteUserData(ctx, userID, role)
	if err != nil {
		s.log.Error("user data deletion failed, identity row kept",
			zap.String("user_id", userID), zap.Error(err))
		return nil, ErrDeletionFailed
	}

	if err := s.refresh.RevokeAllForUser(ctx, userID); err != nil {
		s.log.Warn("revoking refresh records during deletion failed", zap.Error(err))
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *Service) verifyRefreshClaims(raw string) (*token.RefreshClaims, error) {
	return s.verifier.VerifyRefresh(raw)
}
