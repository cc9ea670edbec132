package vision

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// CrossbreedThresholds tune the post-processor. Zero values are replaced with
// the defaults below.
type CrossbreedThresholds struct {
	// SecondMin declares a crossbreed outright when p2 exceeds it.
	SecondMin float64
	// PurebredFloor and Gap together catch ambiguous top-1 results.
	PurebredFloor float64
	Gap           float64
	// SecondFloor is the minimum p2 considered non-trivial.
	SecondFloor float64
}

func (t CrossbreedThresholds) withDefaults() CrossbreedThresholds {
	if t.SecondMin == 0 {
		t.SecondMin = 0.35
	}
	if t.PurebredFloor == 0 {
		t.PurebredFloor = 0.75
	}
	if t.Gap == 0 {
		t.Gap = 0.30
	}
	if t.SecondFloor == 0 {
		t.SecondFloor = 0.15
	}
	return t
}

// commonCrossbreeds maps unordered parent pairs to their household names.
var commonCrossbreeds = map[string]string{
	pairKey("labrador_retriever", "poodle"):           "labradoodle",
	pairKey("golden_retriever", "poodle"):             "goldendoodle",
	pairKey("cocker_spaniel", "poodle"):               "cockapoo",
	pairKey("maltese", "poodle"):                      "maltipoo",
	pairKey("cavalier_king_charles_spaniel", "poodle"): "cavapoo",
	pairKey("schnauzer", "poodle"):                    "schnoodle",
	pairKey("yorkshire_terrier", "poodle"):            "yorkipoo",
	pairKey("bichon_frise", "poodle"):                 "bichpoo",
	pairKey("pug", "beagle"):                          "puggle",
	pairKey("chihuahua", "dachshund"):                 "chiweenie",
	pairKey("siberian_husky", "pomeranian"):           "pomsky",
	pairKey("corgi", "siberian_husky"):                "horgi",
	pairKey("labrador_retriever", "siberian_husky"):   "labsky",
	pairKey("golden_retriever", "labrador_retriever"): "goldador",
}

func pairKey(a, b string) string {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// AnalyzeBreeds runs the crossbreed post-processor over ranked classifier
// output. It never fails; the caller applies the breed-minimum gate to the
// returned confidence.
func AnalyzeBreeds(predictions []Prediction, t CrossbreedThresholds) BreedAnalysis {
	t = t.withDefaults()

	ranked := make([]Prediction, len(predictions))
	copy(ranked, predictions)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Probability > ranked[j].Probability
	})

	if len(ranked) == 0 {
		return BreedAnalysis{PrimaryBreed: "unknown"}
	}

	p1 := ranked[0]
	analysis := BreedAnalysis{
		PrimaryBreed: p1.Label,
		Confidence:   round2(p1.Probability),
		Candidates:   ranked,
	}
	if len(ranked) < 2 {
		return analysis
	}
	p2 := ranked[1]

	cross := p2.Probability > t.SecondMin ||
		(p1.Probability < t.PurebredFloor &&
			p1.Probability-p2.Probability < t.Gap &&
			p2.Probability >= t.SecondFloor)
	if !cross {
		return analysis
	}

	name, ok := commonCrossbreeds[pairKey(p1.Label, p2.Label)]
	if !ok {
		name = fmt.Sprintf("%s_%s_mix", p1.Label, p2.Label)
	}

	analysis.IsLikelyCrossbreed = true
	analysis.ParentBreeds = []string{p1.Label, p2.Label}
	analysis.CrossbreedName = name
	analysis.PrimaryBreed = name
	analysis.Confidence = round2((p1.Probability + p2.Probability) / 2)
	analysis.Crossbreed = &CrossbreedAnalysis{
		DetectedBreeds: []string{displayName(p1.Label), displayName(p2.Label)},
		CommonName:     displayName(name),
	}
	return analysis
}

// displayName turns a classifier label into display casing,
// "golden_retriever" into "Golden Retriever".
func displayName(label string) string {
	words := strings.Split(strings.ReplaceAll(label, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// DisplayBreed returns the name reported downstream: the crossbreed name when
// one was inferred, otherwise the primary breed.
func (a *BreedAnalysis) DisplayBreed() string {
	if a.IsLikelyCrossbreed && a.CrossbreedName != "" {
		return a.CrossbreedName
	}
	return a.PrimaryBreed
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
