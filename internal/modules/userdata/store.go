package userdata

import (
	"context"
	"errors"

	"github.com/petlens/core/internal/models"
	"gorm.io/gorm"
)

// ProfileStore persists per-identity profiles.
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID string) (*models.ProfileModel, error)
	Upsert(ctx context.Context, profile *models.ProfileModel) error
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
}

// PetStore persists pets, always scoped to an owner.
type PetStore interface {
	Create(ctx context.Context, pet *models.PetModel) error
	ListByUser(ctx context.Context, userID string) ([]models.PetModel, error)
	GetOwned(ctx context.Context, userID, petID string) (*models.PetModel, error)
	Save(ctx context.Context, pet *models.PetModel) error
	DeleteOwned(ctx context.Context, userID, petID string) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

// AnalysisStore persists append-only analysis records.
type AnalysisStore interface {
	Create(ctx context.Context, a *models.PetAnalysisModel) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.PetAnalysisModel, int64, error)
	GetOwned(ctx context.Context, userID, id string) (*models.PetAnalysisModel, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

type gormProfileStore struct{ db *gorm.DB }

func NewProfileStore(db *gorm.DB) ProfileStore { return &gormProfileStore{db: db} }

func (s *gormProfileStore) GetByUserID(ctx context.Context, userID string) (*models.ProfileModel, error) {
	var p models.ProfileModel
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *gormProfileStore) Upsert(ctx context.Context, profile *models.ProfileModel) error {
	var existing models.ProfileModel
	err := s.db.WithContext(ctx).Where("user_id = ?", profile.UserID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.WithContext(ctx).Create(profile).Error
	}
	if err != nil {
		return err
	}
	profile.Base = existing.Base
	return s.db.WithContext(ctx).Save(profile).Error
}

func (s *gormProfileStore) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.ProfileModel{})
	return res.RowsAffected, res.Error
}

type gormPetStore struct{ db *gorm.DB }

func NewPetStore(db *gorm.DB) PetStore { return &gormPetStore{db: db} }

func (s *gormPetStore) Create(ctx context.Context, pet *models.PetModel) error {
	return s.db.WithContext(ctx).Create(pet).Error
}

func (s *gormPetStore) ListByUser(ctx context.Context, userID string) ([]models.PetModel, error) {
	var pets []models.PetModel
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Find(&pets).Error
	return pets, err
}

func (s *gormPetStore) GetOwned(ctx context.Context, userID, petID string) (*models.PetModel, error) {
	var pet models.PetModel
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", petID, userID).First(&pet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPetNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pet, nil
}

func (s *gormPetStore) Save(ctx context.Context, pet *models.PetModel) error {
	return s.db.WithContext(ctx).Save(pet).Error
}

func (s *gormPetStore) DeleteOwned(ctx context.Context, userID, petID string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", petID, userID).
		Delete(&models.PetModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPetNotFound
	}
	return nil
}

func (s *gormPetStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PetModel{})
	return res.RowsAffected, res.Error
}

type gormAnalysisStore struct{ db *gorm.DB }

func NewAnalysisStore(db *gorm.DB) AnalysisStore { return &gormAnalysisStore{db: db} }

func (s *gormAnalysisStore) Create(ctx context.Context, a *models.PetAnalysisModel) error {
	return s.db.WithContext(ctx).Create(a).Error
}

func (s *gormAnalysisStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.PetAnalysisModel, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.PetAnalysisModel{}).
		Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.PetAnalysisModel
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, total, err
}

func (s *gormAnalysisStore) GetOwned(ctx context.Context, userID, id string) (*models.PetAnalysisModel, error) {
	var a models.PetAnalysisModel
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAnalysisNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *gormAnalysisStore) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PetAnalysisModel{})
	return res.RowsAffected, res.Error
}
