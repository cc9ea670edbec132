package userdata

import (
	"context"
	"fmt"

	"github.com/petlens/core/internal/models"
	"go.uber.org/zap"
)

// Service owns profile, pet and analysis semantics for one identity at a time.
type Service struct {
	profiles ProfileStore
	pets     PetStore
	analyses AnalysisStore
	log      *zap.Logger
}

func NewService(profiles ProfileStore, pets PetStore, analyses AnalysisStore, log *zap.Logger) *Service {
	return &Service{profiles: profiles, pets: pets, analyses: analyses, log: log}
}

// GetProfile returns the profile, or an empty one when none has been saved.
func (s *Service) GetProfile(ctx context.Context, userID string) (*models.ProfileModel, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile = &models.ProfileModel{UserID: userID}
	}
	return profile, nil
}

// PutProfile upserts the profile after validating the address key set.
func (s *Service) PutProfile(ctx context.Context, userID string, dto *ProfileDTO) (*models.ProfileModel, error) {
	if dto.Address != nil && !validAddress(dto.Address) {
		return nil, fmt.Errorf("%w: unknown address key", ErrInvalidInput)
	}

	profile := &models.ProfileModel{
		UserID:      userID,
		Address:     dto.Address,
		Preferences: dto.Preferences,
	}
	if dto.Phone != nil {
		profile.Phone = *dto.Phone
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *Service) CreatePet(ctx context.Context, userID string, dto *PetCreateDTO) (*models.PetModel, error) {
	if err := validatePetFields(dto.Species, dto.BreedConfidence, dto.AgeMonths, dto.WeightKg, dto.HealthConditions); err != nil {
		return nil, err
	}

	pet := &models.PetModel{
		UserID:           userID,
		Name:             dto.Name,
		Species:          dto.Species,
		Breed:            dto.Breed,
		BreedConfidence:  dto.BreedConfidence,
		AgeMonths:        dto.AgeMonths,
		WeightKg:         dto.WeightKg,
		HealthConditions: dto.HealthConditions,
	}
	if err := s.pets.Create(ctx, pet); err != nil {
		return nil, err
	}
	return pet, nil
}

func (s *Service) ListPets(ctx context.Context, userID string) ([]models.PetModel, error) {
	return s.pets.ListByUser(ctx, userID)
}

func (s *Service) GetPet(ctx context.Context, userID, petID string) (*models.PetModel, error) {
	return s.pets.GetOwned(ctx, userID, petID)
}

// UpdatePet applies a partial update: only fields present in dto overwrite.
func (s *Service) UpdatePet(ctx context.Context, userID, petID string, dto *PetUpdateDTO) (*models.PetModel, error) {
	pet, err := s.pets.GetOwned(ctx, userID, petID)
	if err != nil {
		return nil, err
	}

	species := pet.Species
	if dto.Species != nil {
		species = *dto.Species
	}
	conf := pet.BreedConfidence
	if dto.BreedConfidence != nil {
		conf = dto.BreedConfidence
	}
	age := pet.AgeMonths
	if dto.AgeMonths != nil {
		age = dto.AgeMonths
	}
	weight := pet.WeightKg
	if dto.WeightKg != nil {
		weight = dto.WeightKg
	}
	conditions := pet.HealthConditions
	if dto.HealthConditions != nil {
		conditions = dto.HealthConditions
	}
	if err := validatePetFields(species, conf, age, weight, conditions); err != nil {
		return nil, err
	}

	if dto.Name != nil {
		pet.Name = *dto.Name
	}
	pet.Species = species
	if dto.Breed != nil {
		pet.Breed = *dto.Breed
	}
	pet.BreedConfidence = conf
	pet.AgeMonths = age
	pet.WeightKg = weight
	pet.HealthConditions = conditions

	if err := s.pets.Save(ctx, pet); err != nil {
		return nil, err
	}
	return pet, nil
}

func (s *Service) DeletePet(ctx context.Context, userID, petID string) error {
	return s.pets.DeleteOwned(ctx, userID, petID)
}

func (s *Service) CreateAnalysis(ctx context.Context, userID string, dto *AnalysisCreateDTO) (*models.PetAnalysisModel, error) {
	if dto.Confidence < 0 || dto.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence out of range", ErrInvalidInput)
	}
	if dto.PetID != nil {
		if _, err := s.pets.GetOwned(ctx, userID, *dto.PetID); err != nil {
			return nil, err
		}
	}

	a := &models.PetAnalysisModel{
		UserID:        userID,
		PetID:         dto.PetID,
		ImageRef:      dto.ImageRef,
		DetectedBreed: dto.DetectedBreed,
		Confidence:    dto.Confidence,
		Traits:        dto.Traits,
		RawResponse:   dto.RawResponse,
	}
	if err := s.analyses.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) ListAnalyses(ctx context.Context, userID string, limit, offset int) ([]models.PetAnalysisModel, int64, error) {
	return s.analyses.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) GetAnalysis(ctx context.Context, userID, id string) (*models.PetAnalysisModel, error) {
	return s.analyses.GetOwned(ctx, userID, id)
}

// DeleteAll cascades in a fixed order: analyses, pets, profile. The counts
// feed the deletion summary returned to the identity service.
func (s *Service) DeleteAll(ctx context.Context, userID string) (*DeletionSummary, error) {
	analyses, err := s.analyses.DeleteByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("delete analyses: %w", err)
	}
	pets, err := s.pets.DeleteByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("delete pets: %w", err)
	}
	profiles, err := s.profiles.DeleteByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("delete profile: %w", err)
	}

	s.log.Info("user data deleted",
		zap.String("user_id", userID),
		zap.Int64("analyses", analyses),
		zap.Int64("pets", pets),
		zap.Int64("profiles", profiles))
	return &DeletionSummary{
		ProfilesDeleted: int(profiles),
		PetsDeleted:     int(pets),
		AnalysesDeleted: int(analyses),
	}, nil
}

func validatePetFields(species string, conf *float64, age *int, weight *float64, conditions []string) error {
	if !validSpecies(species) {
		return fmt.Errorf("%w: species must be dog, cat or other", ErrInvalidInput)
	}
	if conf != nil && (*conf < 0 || *conf > 1) {
		return fmt.Errorf("%w: breed_confidence out of range", ErrInvalidInput)
	}
	if age != nil && *age < 0 {
		return fmt.Errorf("%w: age_months must not be negative", ErrInvalidInput)
	}
	if weight != nil && *weight <= 0 {
		return fmt.Errorf("%w: weight_kg must be positive", ErrInvalidInput)
	}
	if !validHealthConditions(conditions) {
		return fmt.Errorf("%w: unknown health condition", ErrInvalidInput)
	}
	return nil
}
