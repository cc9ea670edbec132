package recommend

import (
	"errors"

	"github.com/petlens/core/internal/models"
)

type ProductCreateDTO struct {
	Name           string   `json:"name"           binding:"required"`
	Brand          string   `json:"brand"`
	Description    string   `json:"description"`
	Price          float64  `json:"price"`
	TargetSpecies  string   `json:"target_species" binding:"required"`
	AgeMinMonths   *int     `json:"age_min_months"`
	AgeMaxMonths   *int     `json:"age_max_months"`
	WeightMinKg    *float64 `json:"weight_min_kg"`
	WeightMaxKg    *float64 `json:"weight_max_kg"`
	SuitableBreeds []string `json:"suitable_breeds"`

	ProteinPercentage float64 `json:"protein_percentage"`
	FatPercentage     float64 `json:"fat_percentage"`
	FiberPercentage   float64 `json:"fiber_percentage"`
	CaloriesPer100g   float64 `json:"calories_per_100g"`

	GrainFree           bool `json:"grain_free"`
	Organic             bool `json:"organic"`
	Hypoallergenic      bool `json:"hypoallergenic"`
	LimitedIngredient   bool `json:"limited_ingredient"`
	RawFood             bool `json:"raw_food"`
	ForSensitiveStomach bool `json:"for_sensitive_stomach"`
	ForWeightManagement bool `json:"for_weight_management"`
	ForJointHealth      bool `json:"for_joint_health"`
	ForSkinAllergies    bool `json:"for_skin_allergies"`
	ForDentalHealth     bool `json:"for_dental_health"`
	ForKidneyHealth     bool `json:"for_kidney_health"`
}

// ProductUpdateDTO carries a partial update: only non-nil fields overwrite.
type ProductUpdateDTO struct {
	Name           *string  `json:"name"`
	Brand          *string  `json:"brand"`
	Description    *string  `json:"description"`
	Price          *float64 `json:"price"`
	TargetSpecies  *string  `json:"target_species"`
	AgeMinMonths   *int     `json:"age_min_months"`
	AgeMaxMonths   *int     `json:"age_max_months"`
	WeightMinKg    *float64 `json:"weight_min_kg"`
	WeightMaxKg    *float64 `json:"weight_max_kg"`
	SuitableBreeds []string `json:"suitable_breeds"`

	ProteinPercentage *float64 `json:"protein_percentage"`
	FatPercentage     *float64 `json:"fat_percentage"`
	FiberPercentage   *float64 `json:"fiber_percentage"`
	CaloriesPer100g   *float64 `json:"calories_per_100g"`

	GrainFree           *bool `json:"grain_free"`
	Organic             *bool `json:"organic"`
	Hypoallergenic      *bool `json:"hypoallergenic"`
	LimitedIngredient   *bool `json:"limited_ingredient"`
	RawFood             *bool `json:"raw_food"`
	ForSensitiveStomach *bool `json:"for_sensitive_stomach"`
	ForWeightManagement *bool `json:"for_weight_management"`
	ForJointHealth      *bool `json:"for_joint_health"`
	ForSkinAllergies    *bool `json:"for_skin_allergies"`
	ForDentalHealth     *bool `json:"for_dental_health"`
	ForKidneyHealth     *bool `json:"for_kidney_health"`
}

type FeedbackDTO struct {
	ProductID string `json:"product_id" binding:"required"`
	Rating    int    `json:"rating"     binding:"required"`
	Comment   string `json:"comment"`
}

// Pet is the slice of the user data pet record the engine needs.
type Pet struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Species          string   `json:"species"`
	Breed            string   `json:"breed"`
	AgeMonths        *int     `json:"age_months"`
	WeightKg         *float64 `json:"weight_kg"`
	HealthConditions []string `json:"health_conditions"`
}

// Recommendation is one ranked catalog item with explainability reasons.
type Recommendation struct {
	Product      *models.ProductModel `json:"product"`
	Score        float64              `json:"similarity_score"`
	RankPosition int                  `json:"rank_position"`
	MatchReasons []string             `json:"match_reasons"`
}

var (
	ErrPetNotFound     = errors.New("pet not found")
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidInput    = errors.New("invalid input")
)
