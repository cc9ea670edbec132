package recommend

import (
	"testing"

	"github.com/petlens/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }
func boolPtr(v bool) *bool        { return &v }

func adultDog() *Pet {
	return &Pet{
		ID:        "pet-1",
		Name:      "Rex",
		Species:   models.SpeciesDog,
		Breed:     "labrador_retriever",
		AgeMonths: intPtr(36),
		WeightKg:  floatPtr(28),
	}
}

// balancedProduct aligns with an adult pet's nutrition profile and carries no
// health flags.
func balancedProduct(id string) models.ProductModel {
	return models.ProductModel{
		Base:              models.Base{ID: id},
		Name:              "Balanced Kibble " + id,
		TargetSpecies:     models.SpeciesDog,
		ProteinPercentage: 70,
		FatPercentage:     50,
		CaloriesPer100g:   400,
		IsActive:          true,
	}
}

func TestPetVectorAgeBuckets(t *testing.T) {
	puppy := &Pet{Species: models.SpeciesDog, AgeMonths: intPtr(6)}
	v := PetVector(puppy)
	assert.Equal(t, [3]float64{0.9, 0.8, 0.9}, [3]float64{v[11], v[12], v[13]})

	senior := &Pet{Species: models.SpeciesDog, AgeMonths: intPtr(90)}
	v = PetVector(senior)
	assert.Equal(t, [3]float64{0.8, 0.6, 0.7}, [3]float64{v[11], v[12], v[13]})

	adult := &Pet{Species: models.SpeciesDog, AgeMonths: intPtr(36)}
	v = PetVector(adult)
	assert.Equal(t, [3]float64{0.7, 0.5, 0.6}, [3]float64{v[11], v[12], v[13]})

	unknown := &Pet{Species: models.SpeciesDog}
	v = PetVector(unknown)
	assert.Equal(t, [3]float64{0.7, 0.5, 0.6}, [3]float64{v[11], v[12], v[13]})
	assert.Zero(t, v[0])
}

func TestPetVectorHealthSlots(t *testing.T) {
	pet := &Pet{
		Species:          models.SpeciesDog,
		HealthConditions: []string{"joint_health", "kidney_health"},
	}
	v := PetVector(pet)

	// Slots follow the models.HealthConditions order.
	assert.Zero(t, v[4]) // sensitive_stomach
	assert.Zero(t, v[5]) // weight_management
	assert.Equal(t, 1.0, v[6])
	assert.Zero(t, v[7])
	assert.Zero(t, v[8])
	assert.Equal(t, 1.0, v[9])
}

func TestPetVectorBreedAndWeight(t *testing.T) {
	v := PetVector(&Pet{Species: models.SpeciesDog, Breed: "poodle", WeightKg: floatPtr(30)})
	assert.Equal(t, 1.0, v[2])
	assert.Equal(t, 0.3, v[1])
	assert.Equal(t, 0.3, v[3])

	v = PetVector(&Pet{Species: models.SpeciesDog})
	assert.Equal(t, 0.5, v[2])
}

func TestProductVectorLayout(t *testing.T) {
	p := models.ProductModel{
		TargetSpecies:     models.SpeciesDog,
		AgeMinMonths:      intPtr(20),
		AgeMaxMonths:      intPtr(60),
		WeightMinKg:       floatPtr(10),
		WeightMaxKg:       floatPtr(30),
		SuitableBreeds:    models.StringArray{"poodle"},
		ProteinPercentage: 30,
		FatPercentage:     15,
		CaloriesPer100g:   375,
		GrainFree:         true,
		Hypoallergenic:    true,
		ForJointHealth:    true,
	}
	v := ProductVector(&p)

	assert.InDelta(t, 0.2, v[0], 1e-9)  // (20+60)/2 / 200
	assert.InDelta(t, 0.2, v[1], 1e-9)  // (10+30)/2 / 100
	assert.Equal(t, 1.0, v[2])
	assert.InDelta(t, 0.2, v[3], 1e-9)
	assert.Equal(t, 1.0, v[6]) // joint_health slot
	assert.InDelta(t, 0.30, v[11], 1e-9)
	assert.InDelta(t, 0.15, v[12], 1e-9)
	assert.InDelta(t, 0.5, v[13], 1e-9)  // (375-250)/250
	assert.InDelta(t, 0.7, v[14], 1e-9)  // grain_free 0.3 + hypoallergenic 0.4
}

func TestProductVectorZeroCaloriesSkipsSlot(t *testing.T) {
	v := ProductVector(&models.ProductModel{TargetSpecies: models.SpeciesDog})
	assert.Zero(t, v[13])
}

func TestRankHealthAlignmentDominates(t *testing.T) {
	pet := adultDog()
	pet.HealthConditions = []string{"joint_health"}

	joint := balancedProduct("b")
	joint.ForJointHealth = true
	nutrition := balancedProduct("a")

	// Health slots carry most of the weight, so the nutrition-only candidate
	// scores far below the aligned one.
	ranked := Rank(pet, []models.ProductModel{nutrition, joint}, 0.1, 0, 10)

	require.Len(t, ranked, 2)
	assert.Equal(t, "b", ranked[0].Product.ID)
	assert.Equal(t, []string{"Targets joint health"}, ranked[0].MatchReasons)
	assert.Equal(t, []string{"Nutritionally compatible"}, ranked[1].MatchReasons)
	assert.Equal(t, 1, ranked[0].RankPosition)
	assert.Equal(t, 2, ranked[1].RankPosition)
}

func TestRankTieBreaksByProductID(t *testing.T) {
	ranked := Rank(adultDog(), []models.ProductModel{
		balancedProduct("zz"), balancedProduct("aa"),
	}, 0.3, 0, 10)

	require.Len(t, ranked, 2)
	assert.Equal(t, ranked[0].Score, ranked[1].Score)
	assert.Equal(t, "aa", ranked[0].Product.ID)
	assert.Equal(t, "zz", ranked[1].Product.ID)
}

func TestRankDiscardsBelowThreshold(t *testing.T) {
	// All six health flags, nothing else: near-orthogonal to a healthy pet.
	mismatch := models.ProductModel{
		Base:                models.Base{ID: "m"},
		TargetSpecies:       models.SpeciesDog,
		CaloriesPer100g:     250,
		ForSensitiveStomach: true,
		ForWeightManagement: true,
		ForJointHealth:      true,
		ForSkinAllergies:    true,
		ForDentalHealth:     true,
		ForKidneyHealth:     true,
		IsActive:            true,
	}

	ranked := Rank(adultDog(), []models.ProductModel{mismatch, balancedProduct("ok")}, 0.3, 0, 10)

	require.Len(t, ranked, 1)
	assert.Equal(t, "ok", ranked[0].Product.ID)
}

func TestRankAppliesMinScore(t *testing.T) {
	ranked := Rank(adultDog(), []models.ProductModel{balancedProduct("a")}, 0.3, 0, 10)
	require.Len(t, ranked, 1)

	filtered := Rank(adultDog(), []models.ProductModel{balancedProduct("a")}, 0.3, ranked[0].Score+0.01, 10)
	assert.Empty(t, filtered)
}

func TestRankHonorsLimit(t *testing.T) {
	candidates := []models.ProductModel{
		balancedProduct("a"), balancedProduct("b"), balancedProduct("c"),
	}
	ranked := Rank(adultDog(), candidates, 0.3, 0, 2)

	require.Len(t, ranked, 2)
	assert.Equal(t, 1, ranked[0].RankPosition)
	assert.Equal(t, 2, ranked[1].RankPosition)
}

func TestRankScoreRounding(t *testing.T) {
	ranked := Rank(adultDog(), []models.ProductModel{balancedProduct("a")}, 0, 0, 10)
	require.Len(t, ranked, 1)
	rounded := ranked[0].Score * 10000
	assert.InDelta(t, rounded, float64(int(rounded+0.5)), 1e-6)
}
