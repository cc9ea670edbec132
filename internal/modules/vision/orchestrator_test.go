package vision

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/petlens/core/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClassifier struct {
	safety  SafetyResult
	species []Prediction
	breeds  []Prediction
	err     error
}

func (f *fakeClassifier) CheckSafety(context.Context, []byte) (*SafetyResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &f.safety, nil
}

func (f *fakeClassifier) DetectSpecies(context.Context, []byte) ([]Prediction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.species, nil
}

func (f *fakeClassifier) ClassifyBreed(context.Context, []byte, string) ([]Prediction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.breeds, nil
}

type fakeEnricher struct {
	info *EnrichedInfo
	err  error
}

func (f *fakeEnricher) Enrich(context.Context, *BreedAnalysis, string) (*EnrichedInfo, error) {
	return f.info, f.err
}

type fakeGenerator struct {
	response string
	err      error
	prompt   string
}

func (f *fakeGenerator) Generate(_ context.Context, _ []byte, _, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func happyClassifier() *fakeClassifier {
	return &fakeClassifier{
		safety:  SafetyResult{IsSafe: true, NSFWProbability: 0.02},
		species: []Prediction{{Label: "dog", Probability: 0.95}},
		breeds: []Prediction{
			{Label: "golden_retriever", Probability: 0.85},
			{Label: "labrador_retriever", Probability: 0.05},
		},
	}
}

func testOrchestrator(cl *fakeClassifier, enr Enricher, gen Generator) *Orchestrator {
	cfg := &config.VisionConfig{
		SafetyThreshold:      0.70,
		SpeciesMinConfidence: 0.50,
		BreedMinConfidence:   0.30,
		CrossbreedSecond:     0.35,
		PurebredFloor:        0.75,
		PurebredGap:          0.30,
		SecondFloor:          0.15,
	}
	return NewOrchestrator(cl, cl, cl, enr, gen, cfg, zap.NewNop())
}

const vlmJSON = `{"description":"A friendly golden retriever.","traits":{"size":"large"},"health_observations":["coat looks healthy"]}`

func TestAnalyzeHappyPath(t *testing.T) {
	gen := &fakeGenerator{response: vlmJSON}
	enr := &fakeEnricher{info: &EnrichedInfo{Description: "Golden retrievers are gentle."}}
	orch := testOrchestrator(happyClassifier(), enr, gen)

	report, err := orch.Analyze(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "dog", report.Species)
	assert.Equal(t, "golden_retriever", report.BreedAnalysis.PrimaryBreed)
	assert.Equal(t, "A friendly golden retriever.", report.Description)
	assert.Equal(t, []string{"coat looks healthy"}, report.HealthObservations)
	require.NotNil(t, report.EnrichedInfo)
	assert.Contains(t, gen.prompt, "golden_retriever")
	assert.Contains(t, gen.prompt, "Golden retrievers are gentle.")
}

func TestAnalyzeContentPolicyGate(t *testing.T) {
	cl := happyClassifier()
	cl.safety = SafetyResult{IsSafe: false, NSFWProbability: 0.92}
	orch := testOrchestrator(cl, &fakeEnricher{}, &fakeGenerator{response: vlmJSON})

	_, err := orch.Analyze(context.Background(), []byte("img"), "image/jpeg")
	assert.ErrorIs(t, err, ErrContentPolicy)
}

func TestAnalyzeUnsupportedSpecies(t *testing.T) {
	cl := happyClassifier()
	cl.species = []Prediction{{Label: "rabbit", Probability: 0.9}}
	orch := testOrchestrator(cl, &fakeEnricher{}, &fakeGenerator{response: vlmJSON})

	_, err := orch.Analyze(context.Background(), []byte("img"), "image/jpeg")
	assert.ErrorIs(t, err, ErrUnsupportedSpecies)
}

func TestAnalyzeLowSpeciesConfidence(t *testing.T) {
	cl := happyClassifier()
	cl.species = []Prediction{{Label: "dog", Probability: 0.35}}
	orch := testOrchestrator(cl, &fakeEnricher{}, &fakeGenerator{response: vlmJSON})

	_, err := orch.Analyze(context.Background(), []byte("img"), "image/jpeg")
	assert.ErrorIs(t, err, ErrSpeciesFailed)
}

func TestAnalyzeLowBreedConfidence(t *testing.T) {
	cl := happyClassifier()
	cl.breeds = []Prediction{
		{Label: "golden_retriever", Probability: 0.20},
		{Label: "poodle", Probability: 0.10},
	}
	orch := testOrchestrator(cl, &fakeEnricher{}, &fakeGenerator{response: vlmJSON})

	_, err := orch.Analyze(context.Background(), []byte("img"), "image/jpeg")
	assert.ErrorIs(t, err, ErrBreedFailed)
}

func TestAnalyzeToleratesEnrichmentFailure(t *testing.T) {
	gen := &fakeGenerator{response: vlmJSON}
	enr := &fakeEnricher{err: errors.New("index offline")}
	orch := testOrchestrator(happyClassifier(), enr, gen)

	report, err := orch.Analyze(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.Nil(t, report.EnrichedInfo)
	assert.Contains(t, gen.prompt, enrichmentUnavailable)
}

func TestAnalyzeParsesFencedJSON(t *testing.T) {
	gen := &fakeGenerator{response: "Here you go:\n```json\n" + vlmJSON + "\n```\n"}
	orch := testOrchestrator(happyClassifier(), &fakeEnricher{}, gen)

	report, err := orch.Analyze(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "A friendly golden retriever.", report.Description)
}

func TestAnalyzeUnparseableVLMOutput(t *testing.T) {
	gen := &fakeGenerator{response: "I cannot produce JSON today."}
	orch := testOrchestrator(happyClassifier(), &fakeEnricher{}, gen)

	_, err := orch.Analyze(context.Background(), []byte("img"), "image/jpeg")
	assert.ErrorIs(t, err, ErrVLMBadOutput)
}

func TestAnalyzeVLMTransportError(t *testing.T) {
	gen := &fakeGenerator{err: ErrVLMUnavailable}
	orch := testOrchestrator(happyClassifier(), &fakeEnricher{}, gen)

	_, err := orch.Analyze(context.Background(), []byte("img"), "image/jpeg")
	assert.ErrorIs(t, err, ErrVLMUnavailable)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, ExtractJSON(`{"a":1}`))
	assert.Equal(t, `{"a":1}`, ExtractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, ExtractJSON("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, ExtractJSON("prefix text\n```json\n{\"a\":1}\n``` suffix"))
}

func TestDecodeImage(t *testing.T) {
	decoded, mediaType, err := decodeImage("data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), decoded)
	assert.Equal(t, "image/png", mediaType)

	decoded, mediaType, err = decodeImage("aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), decoded)
	assert.Equal(t, "image/jpeg", mediaType)

	_, _, err = decodeImage("")
	assert.Error(t, err)
	_, _, err = decodeImage("data:image/png;base64,!!!")
	assert.Error(t, err)
	_, _, err = decodeImage(strings.Repeat("A", 8))
	assert.NoError(t, err)
}
