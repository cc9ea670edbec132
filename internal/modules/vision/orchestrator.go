package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/petlens/core/internal/config"
	"github.com/petlens/core/internal/models"
	"go.uber.org/zap"
)

// Orchestrator executes the pipeline stages strictly in order. Stages one
// through three and five are gates; enrichment is the single tolerant stage.
type Orchestrator struct {
	safety   SafetyClassifier
	species  SpeciesClassifier
	breeds   BreedClassifier
	enricher Enricher
	vlm      Generator
	cfg      *config.VisionConfig
	log      *zap.Logger
}

func NewOrchestrator(safety SafetyClassifier, species SpeciesClassifier, breeds BreedClassifier,
	enricher Enricher, vlm Generator, cfg *config.VisionConfig, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		safety:   safety,
		species:  species,
		breeds:   breeds,
		enricher: enricher,
		vlm:      vlm,
		cfg:      cfg,
		log:      log,
	}
}

// Analyze runs all five stages over a decoded image.
func (o *Orchestrator) Analyze(ctx context.Context, image []byte, mediaType string) (*Report, error) {
	safety, err := o.safety.CheckSafety(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("safety classifier: %w", err)
	}
	if !safety.IsSafe || safety.NSFWProbability >= o.cfg.SafetyThreshold {
		return nil, ErrContentPolicy
	}

	species, confidence, err := o.detectSpecies(ctx, image)
	if err != nil {
		return nil, err
	}

	predictions, err := o.breeds.ClassifyBreed(ctx, image, species)
	if err != nil {
		return nil, fmt.Errorf("breed classifier: %w", err)
	}
	analysis := AnalyzeBreeds(predictions, CrossbreedThresholds{
		SecondMin:     o.cfg.CrossbreedSecond,
		PurebredFloor: o.cfg.PurebredFloor,
		Gap:           o.cfg.PurebredGap,
		SecondFloor:   o.cfg.SecondFloor,
	})
	if analysis.Confidence < o.cfg.BreedMinConfidence {
		return nil, ErrBreedFailed
	}

	enriched := o.enrich(ctx, &analysis, species)

	report, err := o.generate(ctx, image, mediaType, species, &analysis, enriched)
	if err != nil {
		return nil, err
	}
	report.Species = species
	report.SpeciesConfidence = confidence
	report.BreedAnalysis = analysis
	report.EnrichedInfo = enriched
	return report, nil
}

func (o *Orchestrator) detectSpecies(ctx context.Context, image []byte) (string, float64, error) {
	predictions, err := o.species.DetectSpecies(ctx, image)
	if err != nil {
		return "", 0, fmt.Errorf("species classifier: %w", err)
	}
	if len(predictions) == 0 {
		return "", 0, ErrSpeciesFailed
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Probability > predictions[j].Probability
	})
	top := predictions[0]
	if top.Label != models.SpeciesDog && top.Label != models.SpeciesCat {
		return "", 0, ErrUnsupportedSpecies
	}
	if top.Probability < o.cfg.SpeciesMinConfidence {
		return "", 0, ErrSpeciesFailed
	}
	return top.Label, round2(top.Probability), nil
}

// enrich swallows every failure: enrichment never blocks the pipeline.
func (o *Orchestrator) enrich(ctx context.Context, analysis *BreedAnalysis, species string) *EnrichedInfo {
	if o.enricher == nil {
		return nil
	}
	info, err := o.enricher.Enrich(ctx, analysis, species)
	if err != nil {
		o.log.Warn("breed enrichment failed",
			zap.String("breed", analysis.DisplayBreed()), zap.Error(err))
		return nil
	}
	return info
}

func (o *Orchestrator) generate(ctx context.Context, image []byte, mediaType, species string,
	analysis *BreedAnalysis, enriched *EnrichedInfo) (*Report, error) {
	prompt := buildPrompt(species, analysis, enriched)

	raw, err := o.vlm.Generate(ctx, image, mediaType, prompt)
	if err != nil {
		return nil, err
	}

	var out struct {
		Description        string                 `json:"description"`
		Traits             map[string]interface{} `json:"traits"`
		HealthObservations []string               `json:"health_observations"`
	}
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVLMBadOutput, err)
	}

	return &Report{
		Description:        out.Description,
		Traits:             out.Traits,
		HealthObservations: out.HealthObservations,
		RawResponse:        raw,
	}, nil
}

// enrichmentUnavailable marks a missing enrichment section in the prompt so
// the model does not invent a citation.
const enrichmentUnavailable = "unavailable"

func buildPrompt(species string, analysis *BreedAnalysis, enriched *EnrichedInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a veterinary assistant analyzing a photo of a %s.\n", species)
	if analysis.IsLikelyCrossbreed {
		fmt.Fprintf(&b, "The classifier identified a likely crossbreed: %s (parents: %s), confidence %.2f.\n",
			analysis.CrossbreedName, strings.Join(analysis.ParentBreeds, ", "), analysis.Confidence)
	} else {
		fmt.Fprintf(&b, "The classifier identified the breed %s with confidence %.2f.\n",
			analysis.PrimaryBreed, analysis.Confidence)
	}

	if enriched != nil && enriched.Description != "" {
		fmt.Fprintf(&b, "Reference background: %s\n", enriched.Description)
	} else {
		fmt.Fprintf(&b, "Reference background: %s\n", enrichmentUnavailable)
	}

	b.WriteString("Respond with a JSON object only, shaped as " +
		`{"description": string, "traits": object, "health_observations": [string]}. ` +
		"Base the description on what is visible in the image.")
	return b.String()
}
