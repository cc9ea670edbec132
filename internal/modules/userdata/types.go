package userdata

import (
	"errors"

	"github.com/petlens/core/internal/models"
)

type ProfileDTO struct {
	Phone       *string                `json:"phone"`
	Address     map[string]interface{} `json:"address"`
	Preferences map[string]interface{} `json:"preferences"`
}

type PetCreateDTO struct {
	Name             string   `json:"name"              binding:"required"`
	Species          string   `json:"species"           binding:"required"`
	Breed            string   `json:"breed"`
	BreedConfidence  *float64 `json:"breed_confidence"`
	AgeMonths        *int     `json:"age_months"`
	WeightKg         *float64 `json:"weight_kg"`
	HealthConditions []string `json:"health_conditions"`
}

// PetUpdateDTO uses pointers throughout: only fields present in the request
// body overwrite stored values.
type PetUpdateDTO struct {
	Name             *string  `json:"name"`
	Species          *string  `json:"species"`
	Breed            *string  `json:"breed"`
	BreedConfidence  *float64 `json:"breed_confidence"`
	AgeMonths        *int     `json:"age_months"`
	WeightKg         *float64 `json:"weight_kg"`
	HealthConditions []string `json:"health_conditions"`
}

type AnalysisCreateDTO struct {
	PetID         *string                `json:"pet_id"`
	ImageRef      string                 `json:"image_ref"`
	DetectedBreed string                 `json:"detected_breed" binding:"required"`
	Confidence    float64                `json:"confidence"`
	Traits        map[string]interface{} `json:"traits"`
	RawResponse   string                 `json:"raw_response"`
}

// DeletionSummary counts what the cascade removed, in deletion order.
type DeletionSummary struct {
	ProfilesDeleted int `json:"profiles_deleted"`
	PetsDeleted     int `json:"pets_deleted"`
	AnalysesDeleted int `json:"analyses_deleted"`
}

var (
	ErrPetNotFound      = errors.New("pet not found")
	ErrAnalysisNotFound = errors.New("analysis not found")
	ErrInvalidInput     = errors.New("invalid input")
)

// validSpecies reports whether s is in the accepted species vocabulary.
func validSpecies(s string) bool {
	return s == models.SpeciesDog || s == models.SpeciesCat || s == models.SpeciesOther
}

// validHealthConditions checks every tag against the closed vocabulary.
func validHealthConditions(tags []string) bool {
	for _, tag := range tags {
		known := false
		for _, v := range models.HealthConditions {
			if tag == v {
				known = true
				break
			}
		}
		if !known {
			return false
		}
	}
	return true
}

// validAddress checks every key against the closed address key set.
func validAddress(addr map[string]interface{}) bool {
	for key := range addr {
		known := false
		for _, v := range models.AddressKeys {
			if key == v {
				known = true
				break
			}
		}
		if !known {
			return false
		}
	}
	return true
}
