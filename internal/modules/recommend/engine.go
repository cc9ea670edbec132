package recommend

import (
	"math"
	"sort"

	"github.com/petlens/core/internal/models"
)

// matchPhrases are the canonical explainability phrases per health condition.
var matchPhrases = map[string]string{
	"sensitive_stomach": "Good for sensitive stomachs",
	"weight_management": "Supports weight management",
	"joint_health":      "Targets joint health",
	"skin_allergies":    "Formulated for skin allergies",
	"dental_health":     "Promotes dental health",
	"kidney_health":     "Supports kidney health",
}

const genericReason = "Nutritionally compatible"

// Rank scores every candidate against the pet, discards below threshold and
// minScore, sorts score descending with product id as the ascending
// tie-break, and takes the first limit items with contiguous rank positions.
func Rank(pet *Pet, candidates []models.ProductModel, threshold, minScore float64, limit int) []Recommendation {
	petVec := PetVector(pet)

	ranked := make([]Recommendation, 0, len(candidates))
	for i := range candidates {
		product := &candidates[i]
		score := weightedCosine(petVec, ProductVector(product))
		if score < threshold || score < minScore {
			continue
		}
		ranked = append(ranked, Recommendation{
			Product:      product,
			Score:        math.Round(score*10000) / 10000,
			MatchReasons: matchReasons(pet, product),
		})
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		if ranked[a].Score != ranked[b].Score {
			return ranked[a].Score > ranked[b].Score
		}
		return ranked[a].Product.ID < ranked[b].Product.ID
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].RankPosition = i + 1
	}
	return ranked
}

// weightedCosine computes cos(W∘p, W∘q).
func weightedCosine(p, q [featureDims]float64) float64 {
	var dot, normP, normQ float64
	for i := 0; i < featureDims; i++ {
		wp := Weights[i] * p[i]
		wq := Weights[i] * q[i]
		dot += wp * wq
		normP += wp * wp
		normQ += wq * wq
	}
	if normP == 0 || normQ == 0 {
		return 0
	}
	return dot / (math.Sqrt(normP) * math.Sqrt(normQ))
}

// matchReasons emits one canonical phrase per aligned health flag, falling
// back to the generic reason so the list is never empty.
func matchReasons(pet *Pet, product *models.ProductModel) []string {
	var reasons []string
	for _, condition := range models.HealthConditions {
		if !product.HealthFlag(condition) {
			continue
		}
		for _, tag := range pet.HealthConditions {
			if tag == condition {
				reasons = append(reasons, matchPhrases[condition])
				break
			}
		}
	}
	if len(reasons) == 0 {
		reasons = append(reasons, genericReason)
	}
	return reasons
}
