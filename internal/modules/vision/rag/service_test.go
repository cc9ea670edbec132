package rag

import (
	"context"
	"testing"

	"github.com/petlens/core/internal/config"
	"github.com/petlens/core/internal/models"
	"github.com/petlens/core/internal/modules/vision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memIndex is an in-memory Index with the same scan-and-score semantics as
// the database-backed one.
type memIndex struct {
	rows []models.ChunkModel
}

func (m *memIndex) Add(_ context.Context, chunks []models.ChunkModel) error {
	m.rows = append(m.rows, chunks...)
	return nil
}

func (m *memIndex) Search(_ context.Context, vector []float64, topK int, minScore float64, breed string) ([]ScoredChunk, error) {
	var scored []ScoredChunk
	for _, row := range m.rows {
		if breed != "" && row.Breed != breed {
			continue
		}
		score := Cosine(vector, row.Embedding)
		if score < minScore {
			continue
		}
		scored = append(scored, ScoredChunk{ChunkModel: row, Score: score})
	}
	for i := 0; i < len(scored); i++ {
		for j := i + 1; j < len(scored); j++ {
			if scored[j].Score > scored[i].Score {
				scored[i], scored[j] = scored[j], scored[i]
			}
		}
	}
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (m *memIndex) Stats(context.Context) (int64, []string, error) {
	seen := map[string]bool{}
	var breeds []string
	for _, row := range m.rows {
		if row.Breed != "" && !seen[row.Breed] {
			seen[row.Breed] = true
			breeds = append(breeds, row.Breed)
		}
	}
	return int64(len(m.rows)), breeds, nil
}

// stubEmbedder returns a fixed vector per known phrase and a default
// otherwise, so similarity is fully deterministic.
type stubEmbedder struct {
	byText  map[string][]float64
	defalt  []float64
	failure error
}

func (s *stubEmbedder) Model() string { return "stub-embedding" }

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	if s.failure != nil {
		return nil, s.failure
	}
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if v, ok := s.byText[text]; ok {
			out[i] = v
		} else {
			out[i] = s.defalt
		}
	}
	return out, nil
}

func ragConfig() *config.RAGConfig {
	return &config.RAGConfig{
		ChunkSize:      512,
		ChunkOverlap:   64,
		TopK:           3,
		MaxFieldLength: 500,
	}
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float64{1, 0}, []float64{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	assert.Zero(t, Cosine([]float64{1, 0}, []float64{1}))
	assert.Zero(t, Cosine(nil, nil))
	assert.Zero(t, Cosine([]float64{0, 0}, []float64{1, 1}))
}

func TestIngestAndQueryOrdering(t *testing.T) {
	idx := &memIndex{}
	emb := &stubEmbedder{
		byText: map[string][]float64{
			"Close match.":  {1, 0},
			"Far match.":    {0.2, 0.98},
			"Medium match.": {0.7, 0.7},
			"question":      {1, 0.1},
		},
		defalt: []float64{0, 1},
	}
	svc := NewService(idx, emb, ragConfig(), zap.NewNop())

	n, err := svc.Ingest(context.Background(), []Document{
		{Text: "Close match.", SourceFile: "a.md", Breed: "Poodle"},
		{Text: "Far match.", SourceFile: "b.md", Breed: "poodle"},
		{Text: "Medium match.", SourceFile: "c.md", Breed: "poodle"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	results, err := svc.Query(context.Background(), "question", 0, 0, "poodle")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Close match.", results[0].Text)
	assert.Equal(t, "Medium match.", results[1].Text)
	assert.Equal(t, "Far match.", results[2].Text)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestQueryMinScoreFilters(t *testing.T) {
	idx := &memIndex{}
	emb := &stubEmbedder{
		byText: map[string][]float64{
			"Close match.": {1, 0},
			"Far match.":   {0, 1},
			"question":     {1, 0},
		},
		defalt: []float64{0, 1},
	}
	svc := NewService(idx, emb, ragConfig(), zap.NewNop())

	_, err := svc.Ingest(context.Background(), []Document{
		{Text: "Close match.", SourceFile: "a.md", Breed: "poodle"},
		{Text: "Far match.", SourceFile: "b.md", Breed: "poodle"},
	})
	require.NoError(t, err)

	results, err := svc.Query(context.Background(), "question", 5, 0.5, "poodle")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Close match.", results[0].Text)
}

func TestIngestNormalizesBreedAndStripsMarkdown(t *testing.T) {
	idx := &memIndex{}
	emb := &stubEmbedder{defalt: []float64{1, 0}}
	svc := NewService(idx, emb, ragConfig(), zap.NewNop())

	_, err := svc.Ingest(context.Background(), []Document{
		{Text: "# Heading\n\nBody text here.", SourceFile: "a.md", Breed: "  Poodle ", Markdown: true},
	})
	require.NoError(t, err)

	require.Len(t, idx.rows, 1)
	assert.Equal(t, "poodle", idx.rows[0].Breed)
	assert.NotContains(t, idx.rows[0].Text, "#")
	assert.Contains(t, idx.rows[0].Text, "Body text here.")
}

func TestEnrichMapsChunkPositions(t *testing.T) {
	idx := &memIndex{}
	emb := &stubEmbedder{
		byText: map[string][]float64{
			"Description text.": {1, 0, 0},
			"Care text.":        {0.9, 0.1, 0},
			"Health text.":      {0.8, 0.2, 0},
		},
		defalt: []float64{1, 0, 0},
	}
	svc := NewService(idx, emb, ragConfig(), zap.NewNop())

	_, err := svc.Ingest(context.Background(), []Document{
		{Text: "Description text.", SourceFile: "poodle_description.md", Breed: "poodle", DocType: "description"},
		{Text: "Care text.", SourceFile: "poodle_care.md", Breed: "poodle", DocType: "care"},
		{Text: "Health text.", SourceFile: "poodle_health.md", Breed: "poodle", DocType: "health"},
	})
	require.NoError(t, err)

	info, err := svc.Enrich(context.Background(), &vision.BreedAnalysis{PrimaryBreed: "poodle"}, "dog")
	require.NoError(t, err)
	assert.Equal(t, "Description text.", info.Description)
	assert.Equal(t, "Care text.", info.CareSummary)
	assert.Equal(t, "Health text.", info.HealthInfo)
	assert.ElementsMatch(t, []string{
		"poodle_description.md", "poodle_care.md", "poodle_health.md",
	}, info.Sources)
}

func TestEnrichCrossbreedUnionsParents(t *testing.T) {
	idx := &memIndex{}
	emb := &stubEmbedder{defalt: []float64{1, 0}}
	svc := NewService(idx, emb, ragConfig(), zap.NewNop())

	_, err := svc.Ingest(context.Background(), []Document{
		{Text: "Golden facts.", SourceFile: "golden_retriever_description.md", Breed: "golden_retriever"},
		{Text: "Poodle facts.", SourceFile: "poodle_description.md", Breed: "poodle"},
	})
	require.NoError(t, err)

	info, err := svc.Enrich(context.Background(), &vision.BreedAnalysis{
		IsLikelyCrossbreed: true,
		PrimaryBreed:       "golden_retriever",
		ParentBreeds:       []string{"golden_retriever", "poodle"},
		CrossbreedName:     "goldendoodle",
	}, "dog")
	require.NoError(t, err)
	assert.Len(t, info.Sources, 2)
}

func TestEnrichEmptyIndexErrors(t *testing.T) {
	svc := NewService(&memIndex{}, &stubEmbedder{defalt: []float64{1, 0}}, ragConfig(), zap.NewNop())

	_, err := svc.Enrich(context.Background(), &vision.BreedAnalysis{PrimaryBreed: "poodle"}, "dog")
	assert.Error(t, err)
}

func TestEnrichCapsFieldLength(t *testing.T) {
	cfg := ragConfig()
	cfg.MaxFieldLength = 10
	idx := &memIndex{}
	svc := NewService(idx, &stubEmbedder{defalt: []float64{1, 0}}, cfg, zap.NewNop())

	_, err := svc.Ingest(context.Background(), []Document{
		{Text: "A very long description that should be truncated.", SourceFile: "a.md", Breed: "poodle"},
	})
	require.NoError(t, err)

	info, err := svc.Enrich(context.Background(), &vision.BreedAnalysis{PrimaryBreed: "poodle"}, "dog")
	require.NoError(t, err)
	assert.Equal(t, "A very lon", info.Description)
}

func TestParseDocName(t *testing.T) {
	breed, docType := parseDocName("golden_retriever_health.md")
	assert.Equal(t, "golden_retriever", breed)
	assert.Equal(t, "health", docType)

	breed, docType = parseDocName("poodle.md")
	assert.Equal(t, "poodle", breed)
	assert.Equal(t, "description", docType)
}
