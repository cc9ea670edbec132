package models

// Species values accepted for pets.
const (
	SpeciesDog   = "dog"
	SpeciesCat   = "cat"
	SpeciesOther = "other"
)

// HealthConditions is the closed tag vocabulary used by the ranking engine.
// Order matters: it fixes the feature-vector slots 4..9.
var HealthConditions = []string{
	"sensitive_stomach",
	"weight_management",
	"joint_health",
	"skin_allergies",
	"dental_health",
	"kidney_health",
}

// AddressKeys is the closed key set for structured addresses.
var AddressKeys = []string{"street", "city", "state", "zip", "country"}

// ProfileModel is the per-identity profile owned by the user data service.
type ProfileModel struct {
	Base
	UserID      string  `json:"user_id"     gorm:"uniqueIndex;type:char(36);not null"`
	Phone       string  `json:"phone"       gorm:"size:32"`
	Address     JSONMap `json:"address"     gorm:"type:text"`
	Preferences JSONMap `json:"preferences" gorm:"type:text"`
}

func (ProfileModel) TableName() string { return "profiles" }

// PetModel is a pet owned by an identity.
type PetModel struct {
	Base
	UserID           string      `json:"user_id"           gorm:"index;type:char(36);not null"`
	Name             string      `json:"name"              gorm:"size:128;not null"`
	Species          string      `json:"species"           gorm:"size:16;not null"`
	Breed            string      `json:"breed"             gorm:"size:128"`
	BreedConfidence  *float64    `json:"breed_confidence"`
	AgeMonths        *int        `json:"age_months"`
	WeightKg         *float64    `json:"weight_kg"`
	HealthConditions StringArray `json:"health_conditions" gorm:"type:text"`
}

func (PetModel) TableName() string { return "pets" }

// PetAnalysisModel is an append-only record of a vision pipeline run.
type PetAnalysisModel struct {
	Base
	UserID        string  `json:"user_id"        gorm:"index;type:char(36);not null"`
	PetID         *string `json:"pet_id"         gorm:"type:char(36)"`
	ImageRef      string  `json:"image_ref"      gorm:"size:512"`
	DetectedBreed string  `json:"detected_breed" gorm:"size:128"`
	Confidence    float64 `json:"confidence"`
	Traits        JSONMap `json:"traits"         gorm:"type:text"`
	RawResponse   string  `json:"-"              gorm:"type:longtext"`
}

func (PetAnalysisModel) TableName() string { return "pet_analyses" }
