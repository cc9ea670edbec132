package recommend

import (
	"context"
	"fmt"

	"github.com/petlens/core/internal/config"
	"github.com/petlens/core/internal/models"
	"go.uber.org/zap"
)

// Service ranks catalog items for a pet and administers the catalog.
type Service struct {
	products ProductStore
	history  HistoryStore
	pets     PetFetcher
	cfg      *config.RecommendConfig
	log      *zap.Logger
}

func NewService(products ProductStore, history HistoryStore, pets PetFetcher,
	cfg *config.RecommendConfig, log *zap.Logger) *Service {
	return &Service{products: products, history: history, pets: pets, cfg: cfg, log: log}
}

// RecommendFood runs the ranking protocol for one pet. The served set is
// appended to history best-effort.
func (s *Service) RecommendFood(ctx context.Context, userID, role, petID string, limit int, minScore float64) ([]Recommendation, *Pet, error) {
	pet, err := s.pets.FetchPet(ctx, userID, role, petID)
	if err != nil {
		return nil, nil, err
	}

	candidates, err := s.products.ListActive(ctx, pet.Species)
	if err != nil {
		return nil, nil, err
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	ranked := Rank(pet, candidates, s.cfg.SimilarityThreshold, minScore, limit)

	if len(ranked) > 0 {
		results := models.JSONMap{}
		for _, rec := range ranked {
			results[rec.Product.ID] = rec.Score
		}
		record := &models.RecommendationModel{UserID: userID, PetID: pet.ID, Results: results}
		if err := s.history.RecordServed(ctx, record); err != nil {
			s.log.Warn("recommendation history write failed",
				zap.String("pet_id", pet.ID), zap.Error(err))
		}
	}
	return ranked, pet, nil
}

// RecordFeedback stores a 1..5 rating for a recommended product.
func (s *Service) RecordFeedback(ctx context.Context, userID string, dto *FeedbackDTO) (*models.FeedbackModel, error) {
	if dto.Rating < 1 || dto.Rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	if _, err := s.products.Get(ctx, dto.ProductID); err != nil {
		return nil, err
	}

	fb := &models.FeedbackModel{
		UserID:    userID,
		ProductID: dto.ProductID,
		Rating:    dto.Rating,
		Comment:   dto.Comment,
	}
	if err := s.history.RecordFeedback(ctx, fb); err != nil {
		return nil, err
	}
	return fb, nil
}

func (s *Service) CreateProduct(ctx context.Context, dto *ProductCreateDTO) (*models.ProductModel, error) {
	p := &models.ProductModel{
		Name:           dto.Name,
		Brand:          dto.Brand,
		Description:    dto.Description,
		Price:          dto.Price,
		TargetSpecies:  dto.TargetSpecies,
		AgeMinMonths:   dto.AgeMinMonths,
		AgeMaxMonths:   dto.AgeMaxMonths,
		WeightMinKg:    dto.WeightMinKg,
		WeightMaxKg:    dto.WeightMaxKg,
		SuitableBreeds: dto.SuitableBreeds,

		ProteinPercentage: dto.ProteinPercentage,
		FatPercentage:     dto.FatPercentage,
		FiberPercentage:   dto.FiberPercentage,
		CaloriesPer100g:   dto.CaloriesPer100g,

		GrainFree:           dto.GrainFree,
		Organic:             dto.Organic,
		Hypoallergenic:      dto.Hypoallergenic,
		LimitedIngredient:   dto.LimitedIngredient,
		RawFood:             dto.RawFood,
		ForSensitiveStomach: dto.ForSensitiveStomach,
		ForWeightManagement: dto.ForWeightManagement,
		ForJointHealth:      dto.ForJointHealth,
		ForSkinAllergies:    dto.ForSkinAllergies,
		ForDentalHealth:     dto.ForDentalHealth,
		ForKidneyHealth:     dto.ForKidneyHealth,
		IsActive:            true,
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (*models.ProductModel, error) {
	return s.products.Get(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, species string, includeInactive bool, limit int) ([]models.ProductModel, error) {
	return s.products.List(ctx, species, includeInactive, limit)
}

// UpdateProduct applies a partial update: only fields present in dto
// overwrite stored values.
func (s *Service) UpdateProduct(ctx context.Context, id string, dto *ProductUpdateDTO) (*models.ProductModel, error) {
	p, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	applyString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	applyFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	applyBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}

	applyString(&p.Name, dto.Name)
	applyString(&p.Brand, dto.Brand)
	applyString(&p.Description, dto.Description)
	applyFloat(&p.Price, dto.Price)
	applyString(&p.TargetSpecies, dto.TargetSpecies)
	if dto.AgeMinMonths != nil {
		p.AgeMinMonths = dto.AgeMinMonths
	}
	if dto.AgeMaxMonths != nil {
		p.AgeMaxMonths = dto.AgeMaxMonths
	}
	if dto.WeightMinKg != nil {
		p.WeightMinKg = dto.WeightMinKg
	}
	if dto.WeightMaxKg != nil {
		p.WeightMaxKg = dto.WeightMaxKg
	}
	if dto.SuitableBreeds != nil {
		p.SuitableBreeds = dto.SuitableBreeds
	}
	applyFloat(&p.ProteinPercentage, dto.ProteinPercentage)
	applyFloat(&p.FatPercentage, dto.FatPercentage)
	applyFloat(&p.FiberPercentage, dto.FiberPercentage)
	applyFloat(&p.CaloriesPer100g, dto.CaloriesPer100g)
	applyBool(&p.GrainFree, dto.GrainFree)
	applyBool(&p.Organic, dto.Organic)
	applyBool(&p.Hypoallergenic, dto.Hypoallergenic)
	applyBool(&p.LimitedIngredient, dto.LimitedIngredient)
	applyBool(&p.RawFood, dto.RawFood)
	applyBool(&p.ForSensitiveStomach, dto.ForSensitiveStomach)
	applyBool(&p.ForWeightManagement, dto.ForWeightManagement)
	applyBool(&p.ForJointHealth, dto.ForJointHealth)
	applyBool(&p.ForSkinAllergies, dto.ForSkinAllergies)
	applyBool(&p.ForDentalHealth, dto.ForDentalHealth)
	applyBool(&p.ForKidneyHealth, dto.ForKidneyHealth)

	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.products.Save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProduct soft-deletes. Idempotent: deleting an already-inactive or
// missing product reports success.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	_, err := s.products.Deactivate(ctx, id)
	return err
}

func validateProduct(p *models.ProductModel) error {
	if p.TargetSpecies != models.SpeciesDog && p.TargetSpecies != models.SpeciesCat {
		return fmt.Errorf("%w: target_species must be dog or cat", ErrInvalidInput)
	}
	if p.AgeMinMonths != nil && p.AgeMaxMonths != nil && *p.AgeMinMonths > *p.AgeMaxMonths {
		return fmt.Errorf("%w: age range is inverted", ErrInvalidInput)
	}
	if p.WeightMinKg != nil && p.WeightMaxKg != nil && *p.WeightMinKg > *p.WeightMaxKg {
		return fmt.Errorf("%w: weight range is inverted", ErrInvalidInput)
	}
	for name, pct := range map[string]float64{
		"protein_percentage": p.ProteinPercentage,
		"fat_percentage":     p.FatPercentage,
		"fiber_percentage":   p.FiberPercentage,
	} {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("%w: %s out of range", ErrInvalidInput, name)
		}
	}
	if p.CaloriesPer100g <= 0 {
		return fmt.Errorf("%w: calories_per_100g must be positive", ErrInvalidInput)
	}
	return nil
}
