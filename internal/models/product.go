package models

// ProductModel is a catalog item. Rows are never hard-deleted through the
// public surface; DELETE flips IsActive off.
type ProductModel struct {
	Base
	Name          string      `json:"name"           gorm:"size:255;not null"`
	Brand         string      `json:"brand"          gorm:"size:128"`
	Description   string      `json:"description"    gorm:"type:text"`
	Price         float64     `json:"price"`
	TargetSpecies string      `json:"target_species" gorm:"size:16;index;not null"`
	AgeMinMonths  *int        `json:"age_min_months"`
	AgeMaxMonths  *int        `json:"age_max_months"`
	WeightMinKg   *float64    `json:"weight_min_kg"`
	WeightMaxKg   *float64    `json:"weight_max_kg"`
	SuitableBreeds StringArray `json:"suitable_breeds" gorm:"type:text"`

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
	IsActive            bool `json:"is_active" gorm:"index;not null;default:true"`
}

func (ProductModel) TableName() string { return "products" }

// HealthFlag returns the targeted-condition flag matching a pet health tag.
func (p *ProductModel) HealthFlag(condition string) bool {
	switch condition {
	case "sensitive_stomach":
		return p.ForSensitiveStomach
	case "weight_management":
		return p.ForWeightManagement
	case "joint_health":
		return p.ForJointHealth
	case "skin_allergies":
		return p.ForSkinAllergies
	case "dental_health":
		return p.ForDentalHealth
	case "kidney_health":
		return p.ForKidneyHealth
	}
	return false
}

// RecommendationModel is the history ledger of served recommendation sets.
type RecommendationModel struct {
	Base
	UserID  string  `json:"user_id" gorm:"index;type:char(36);not null"`
	PetID   string  `json:"pet_id"  gorm:"index;type:char(36);not null"`
	Results JSONMap `json:"results" gorm:"type:text"` // product id -> score
}

func (RecommendationModel) TableName() string { return "recommendations" }

// FeedbackModel stores user feedback on recommended products.
type FeedbackModel struct {
	Base
	UserID    string `json:"user_id"    gorm:"index;type:char(36);not null"`
	ProductID string `json:"product_id" gorm:"index;type:char(36);not null"`
	Rating    int    `json:"rating"     gorm:"not null"`
	Comment   string `json:"comment"    gorm:"type:text"`
}

func (FeedbackModel) TableName() string { return "user_feedback" }
