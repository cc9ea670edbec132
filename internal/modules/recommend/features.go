package recommend

import (
	"github.com/petlens/core/internal/models"
)

// featureDims is the shared layout length for pet and product vectors.
const featureDims = 15

// Vector slot layout:
//
//	0      age compatibility
//	1, 3   weight lanes (min, max)
//	2      breed specificity
//	4..9   health conditions, ordered as models.HealthConditions
//	10     reserved
//	11..13 protein / fat / calorie
//	14     ingredient preferences

// Weights is the element-wise weight vector applied before cosine. Health
// slots dominate so condition alignment outranks nutrition alignment.
var Weights = [featureDims]float64{
	0.20,           // age
	0.05,           // weight min lane
	0.05,           // breed
	0.05,           // weight max lane
	0.40, 0.40, 0.40, 0.40, 0.40, 0.40, // health conditions
	0,                      // reserved
	0.0667, 0.0667, 0.0667, // protein, fat, calorie
	0.10, // ingredient preferences
}

// Age buckets for nutrition needs.
const (
	puppyMaxMonths  = 12
	seniorMinMonths = 84
)

type ageBucket int

const (
	bucketAdult ageBucket = iota
	bucketPuppy
	bucketSenior
)

func bucketOf(ageMonths *int) ageBucket {
	if ageMonths == nil {
		return bucketAdult
	}
	switch {
	case *ageMonths < puppyMaxMonths:
		return bucketPuppy
	case *ageMonths >= seniorMinMonths:
		return bucketSenior
	}
	return bucketAdult
}

// PetVector builds the pet side of the shared feature layout.
func PetVector(pet *Pet) [featureDims]float64 {
	var v [featureDims]float64

	if pet.AgeMonths != nil {
		v[0] = capUnit(float64(*pet.AgeMonths) / 200)
	}
	if pet.WeightKg != nil {
		w := capUnit(*pet.WeightKg / 100)
		v[1], v[3] = w, w
	}
	if pet.Breed != "" {
		v[2] = 1.0
	} else {
		v[2] = 0.5
	}

	for i, condition := range models.HealthConditions {
		for _, tag := range pet.HealthConditions {
			if tag == condition {
				v[4+i] = 1.0
				break
			}
		}
	}

	switch bucketOf(pet.AgeMonths) {
	case bucketPuppy:
		v[11], v[12], v[13] = 0.9, 0.8, 0.9
	case bucketSenior:
		v[11], v[12], v[13] = 0.8, 0.6, 0.7
	default:
		v[11], v[12], v[13] = 0.7, 0.5, 0.6
	}

	return v
}

// ProductVector builds the product side of the shared feature layout.
func ProductVector(p *models.ProductModel) [featureDims]float64 {
	var v [featureDims]float64

	v[0] = capUnit(midpoint(intToF(p.AgeMinMonths), intToF(p.AgeMaxMonths)) / 200)

	weightMid := capUnit(midpoint(p.WeightMinKg, p.WeightMaxKg) / 100)
	v[1], v[3] = weightMid, weightMid

	if len(p.SuitableBreeds) > 0 {
		v[2] = 1.0
	} else {
		v[2] = 0.5
	}

	for i, condition := range models.HealthConditions {
		if p.HealthFlag(condition) {
			v[4+i] = 1.0
		}
	}

	v[11] = capUnit(p.ProteinPercentage / 100)
	v[12] = capUnit(p.FatPercentage / 100)
	if p.CaloriesPer100g > 0 {
		v[13] = capUnit((p.CaloriesPer100g - 250) / 250)
	}
	v[14] = capUnit(boolF(p.GrainFree)*0.3 + boolF(p.Organic)*0.3 + boolF(p.Hypoallergenic)*0.4)

	return v
}

func midpoint(lo, hi *float64) float64 {
	switch {
	case lo != nil && hi != nil:
		return (*lo + *hi) / 2
	case lo != nil:
		return *lo
	case hi != nil:
		return *hi
	}
	return 0
}

func intToF(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}

func capUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func boolF(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
