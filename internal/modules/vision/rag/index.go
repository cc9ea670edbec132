package rag

import (
	"context"
	"math"
	"sort"

	"github.com/petlens/core/internal/models"
	"gorm.io/gorm"
)

// ScoredChunk is a retrieval hit.
type ScoredChunk struct {
	models.ChunkModel
	Score float64 `json:"score"`
}

// Index stores embedded chunks and answers similarity queries.
type Index interface {
	Add(ctx context.Context, chunks []models.ChunkModel) error
	// Search returns the topK most similar chunks above minScore, optionally
	// filtered to one breed.
	Search(ctx context.Context, vector []float64, topK int, minScore float64, breed string) ([]ScoredChunk, error)
	Stats(ctx context.Context) (count int64, breeds []string, err error)
}

// gormIndex keeps chunks in MySQL and scans them for each query. Corpus size
// is a few thousand chunks, so the scan stays cheap.
type gormIndex struct{ db *gorm.DB }

func NewIndex(db *gorm.DB) Index { return &gormIndex{db: db} }

func (i *gormIndex) Add(ctx context.Context, chunks []models.ChunkModel) error {
	if len(chunks) == 0 {
		return nil
	}
	return i.db.WithContext(ctx).CreateInBatches(chunks, 100).Error
}

func (i *gormIndex) Search(ctx context.Context, vector []float64, topK int, minScore float64, breed string) ([]ScoredChunk, error) {
	q := i.db.WithContext(ctx).Model(&models.ChunkModel{})
	if breed != "" {
		q = q.Where("breed = ?", breed)
	}

	var rows []models.ChunkModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	scored := make([]ScoredChunk, 0, len(rows))
	for _, row := range rows {
		score := Cosine(vector, row.Embedding)
		if score < minScore {
			continue
		}
		scored = append(scored, ScoredChunk{ChunkModel: row, Score: score})
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (i *gormIndex) Stats(ctx context.Context) (int64, []string, error) {
	var count int64
	if err := i.db.WithContext(ctx).Model(&models.ChunkModel{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	var breeds []string
	err := i.db.WithContext(ctx).Model(&models.ChunkModel{}).
		Distinct("breed").Where("breed <> ''").Order("breed").Pluck("breed", &breeds).Error
	return count, breeds, err
}

// Cosine computes cosine similarity between two vectors. Mismatched lengths
// or zero vectors score 0.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
