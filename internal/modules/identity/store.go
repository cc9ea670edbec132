package identity

import (
	"context"
	"errors"
	"time"

	"github.com/petlens/core/internal/database"
	"github.com/petlens/core/internal/models"
	"gorm.io/gorm"
)

// UserStore persists identities.
type UserStore interface {
	Create(ctx context.Context, user *models.IdentityModel) error
	FindByEmail(ctx context.Context, email string) (*models.IdentityModel, error)
	FindByID(ctx context.Context, id string) (*models.IdentityModel, error)
	UpdatePassword(ctx context.Context, id, verifier string) error
	Delete(ctx context.Context, id string) error
}

// RefreshStore persists refresh records. ReplaceActive and Rotate are the
// two atomic operations the lifecycle depends on.
type RefreshStore interface {
	// ReplaceActive revokes every non-revoked record of the user and inserts
	// rec, atomically. Enforces the single-session policy on login.
	ReplaceActive(ctx context.Context, userID string, rec *models.RefreshTokenModel) error
	// Rotate marks the record with oldID revoked (guarded on revoked=false)
	// and inserts rec. Returns ErrTokenRevoked when the guard finds the old
	// record already consumed, so concurrent refreshes yield one winner.
	Rotate(ctx context.Context, oldID string, rec *models.RefreshTokenModel) error
	FindByID(ctx context.Context, id string) (*models.RefreshTokenModel, error)
	// Revoke marks one record revoked. Reports whether a row transitioned.
	Revoke(ctx context.Context, id string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string) error
	TouchLastUsed(ctx context.Context, id string)
}

type gormUserStore struct{ db *gorm.DB }

// NewUserStore returns the MySQL-backed user store.
func NewUserStore(db *gorm.DB) UserStore { return &gormUserStore{db: db} }

func (s *gormUserStore) Create(ctx context.Context, user *models.IdentityModel) error {
	err := s.db.WithContext(ctx).Create(user).Error
	if err != nil && database.IsDuplicateKey(err) {
		return ErrEmailExists
	}
	return err
}

func (s *gormUserStore) FindByEmail(ctx context.Context, email string) (*models.IdentityModel, error) {
	var u models.IdentityModel
	err := s.db.WithContext(ctx).Where("email = ?", FoldEmail(email)).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return &u, err
}

func (s *gormUserStore) FindByID(ctx context.Context, id string) (*models.IdentityModel, error) {
	var u models.IdentityModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return &u, err
}

func (s *gormUserStore) UpdatePassword(ctx context.Context, id, verifier string) error {
	return s.db.WithContext(ctx).Model(&models.IdentityModel{}).
		Where("id = ?", id).Update("password", verifier).Error
}

// Delete removes the identity row. Deleting a missing row is a no-op so the
// second leg of the deletion protocol stays idempotent.
func (s *gormUserStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).
		Delete(&models.IdentityModel{}).Error
}

type gormRefreshStore struct{ db *gorm.DB }

// NewRefreshStore returns the MySQL-backed refresh record store.
func NewRefreshStore(db *gorm.DB) RefreshStore { return &gormRefreshStore{db: db} }

func (s *gormRefreshStore) ReplaceActive(ctx context.Context, userID string, rec *models.RefreshTokenModel) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.RefreshTokenModel{}).
			Where("user_id = ? AND revoked = ?", userID, false).
			Update("revoked", true).Error; err != nil {
			return err
		}
		return tx.Create(rec).Error
	})
}

func (s *gormRefreshStore) Rotate(ctx context.Context, oldID string, rec *models.RefreshTokenModel) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RefreshTokenModel{}).
			Where("id = ? AND revoked = ?", oldID, false).
			Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTokenRevoked
		}
		return tx.Create(rec).Error
	})
}

func (s *gormRefreshStore) FindByID(ctx context.Context, id string) (*models.RefreshTokenModel, error) {
	var rec models.RefreshTokenModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenUnknown
	}
	return &rec, err
}

func (s *gormRefreshStore) Revoke(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.RefreshTokenModel{}).
		Where("id = ? AND revoked = ?", id, false).
		Update("revoked", true)
	return res.RowsAffected > 0, res.Error
}

func (s *gormRefreshStore) RevokeAllForUser(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Model(&models.RefreshTokenModel{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}

func (s *gormRefreshStore) TouchLastUsed(ctx context.Context, id string) {
	now := time.Now()
	_ = s.db.WithContext(ctx).Model(&models.RefreshTokenModel{}).
		Where("id = ?", id).Update("last_used_at", &now).Error
}
