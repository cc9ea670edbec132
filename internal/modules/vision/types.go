// Package vision runs the five-stage analysis pipeline: content safety,
// species detection, breed classification with crossbreed post-processing,
// tolerant retrieval enrichment and vision-language generation.
package vision

import (
	"context"
	"errors"
)

// Prediction is one ranked classifier label.
type Prediction struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// SafetyResult is the content-safety verdict for an image.
type SafetyResult struct {
	IsSafe          bool    `json:"is_safe"`
	NSFWProbability float64 `json:"nsfw_probability"`
}

// SafetyClassifier gates the pipeline on content policy.
type SafetyClassifier interface {
	CheckSafety(ctx context.Context, image []byte) (*SafetyResult, error)
}

// SpeciesClassifier returns ranked species labels.
type SpeciesClassifier interface {
	DetectSpecies(ctx context.Context, image []byte) ([]Prediction, error)
}

// BreedClassifier returns ranked breed labels for a known species.
type BreedClassifier interface {
	ClassifyBreed(ctx context.Context, image []byte, species string) ([]Prediction, error)
}

// Generator is the vision-language model behind stage five.
type Generator interface {
	Generate(ctx context.Context, image []byte, mediaType, prompt string) (string, error)
}

// Enricher produces breed background from the retrieval index. Failures here
// are tolerated by the orchestrator.
type Enricher interface {
	Enrich(ctx context.Context, analysis *BreedAnalysis, species string) (*EnrichedInfo, error)
}

// CrossbreedAnalysis is the evidence behind a crossbreed call: both parent
// breeds in display casing plus the household (or synthesized) name. Null on
// the wire for purebreds.
type CrossbreedAnalysis struct {
	DetectedBreeds []string `json:"detected_breeds"`
	CommonName     string   `json:"common_name"`
}

// BreedAnalysis is the crossbreed post-processor output. PrimaryBreed is the
// label the system chooses to report; for crossbreeds that is the crossbreed
// identifier, not the top classifier label.
type BreedAnalysis struct {
	IsLikelyCrossbreed bool                `json:"is_likely_crossbreed"`
	PrimaryBreed       string              `json:"primary_breed"`
	Confidence         float64             `json:"confidence"`
	Candidates         []Prediction        `json:"candidates,omitempty"`
	Crossbreed         *CrossbreedAnalysis `json:"crossbreed_analysis"`

	// Raw classifier labels behind a crossbreed call. The retrieval layer
	// queries per parent; the prompt names both.
	ParentBreeds   []string `json:"-"`
	CrossbreedName string   `json:"-"`
}

// EnrichedInfo is the retrieval-backed background section of a report.
type EnrichedInfo struct {
	Description string   `json:"description"`
	CareSummary string   `json:"care_summary"`
	HealthInfo  string   `json:"health_info"`
	Sources     []string `json:"sources"`
}

// Report is the structured result of a full pipeline run.
type Report struct {
	Species            string                 `json:"species"`
	SpeciesConfidence  float64                `json:"species_confidence"`
	BreedAnalysis      BreedAnalysis          `json:"breed_analysis"`
	Description        string                 `json:"description"`
	Traits             map[string]interface{} `json:"traits"`
	HealthObservations []string               `json:"health_observations"`
	EnrichedInfo       *EnrichedInfo          `json:"enriched_info"`
	RawResponse        string                 `json:"-"`
}

// Pipeline gate errors. Each maps to one error code at the handler boundary.
var (
	ErrInvalidImage       = errors.New("invalid image")
	ErrContentPolicy      = errors.New("image violates content policy")
	ErrUnsupportedSpecies = errors.New("species not supported")
	ErrSpeciesFailed      = errors.New("species detection failed")
	ErrBreedFailed        = errors.New("breed detection failed")
	ErrVLMUnavailable     = errors.New("vision language model unavailable")
	ErrVLMBadOutput       = errors.New("vision language model returned unparseable output")
)
