package recommend

import (
	"context"
	"errors"

	"github.com/petlens/core/internal/models"
	"gorm.io/gorm"
)

// ProductStore persists the catalog.
type ProductStore interface {
	Create(ctx context.Context, p *models.ProductModel) error
	Get(ctx context.Context, id string) (*models.ProductModel, error)
	List(ctx context.Context, species string, includeInactive bool, limit int) ([]models.ProductModel, error)
	// ListActive returns active products for a species, ordered by id so the
	// ranking tie-break is deterministic before scoring.
	ListActive(ctx context.Context, species string) ([]models.ProductModel, error)
	Save(ctx context.Context, p *models.ProductModel) error
	// Deactivate soft-deletes. Reports whether a row transitioned; repeating
	// the call is a no-op.
	Deactivate(ctx context.Context, id string) (bool, error)
}

// HistoryStore appends served recommendation sets and feedback.
type HistoryStore interface {
	RecordServed(ctx context.Context, rec *models.RecommendationModel) error
	RecordFeedback(ctx context.Context, fb *models.FeedbackModel) error
}

type gormProductStore struct{ db *gorm.DB }

func NewProductStore(db *gorm.DB) ProductStore { return &gormProductStore{db: db} }

func (s *gormProductStore) Create(ctx context.Context, p *models.ProductModel) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *gormProductStore) Get(ctx context.Context, id string) (*models.ProductModel, error) {
	var p models.ProductModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *gormProductStore) List(ctx context.Context, species string, includeInactive bool, limit int) ([]models.ProductModel, error) {
	q := s.db.WithContext(ctx).Model(&models.ProductModel{})
	if species != "" {
		q = q.Where("target_species = ?", species)
	}
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var products []models.ProductModel
	err := q.Order("created_at DESC").Find(&products).Error
	return products, err
}

func (s *gormProductStore) ListActive(ctx context.Context, species string) ([]models.ProductModel, error) {
	var products []models.ProductModel
	err := s.db.WithContext(ctx).
		Where("target_species = ? AND is_active = ?", species, true).
		Order("id ASC").Find(&products).Error
	return products, err
}

func (s *gormProductStore) Save(ctx context.Context, p *models.ProductModel) error {
	return s.db.WithContext(ctx).Save(p).Error
}

func (s *gormProductStore) Deactivate(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("id = ?", id).Update("is_active", false)
	return res.RowsAffected > 0, res.Error
}

type gormHistoryStore struct{ db *gorm.DB }

func NewHistoryStore(db *gorm.DB) HistoryStore { return &gormHistoryStore{db: db} }

func (s *gormHistoryStore) RecordServed(ctx context.Context, rec *models.RecommendationModel) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *gormHistoryStore) RecordFeedback(ctx context.Context, fb *models.FeedbackModel) error {
	return s.db.WithContext(ctx).Create(fb).Error
}
