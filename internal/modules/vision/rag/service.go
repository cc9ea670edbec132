package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/petlens/core/internal/config"
	"github.com/petlens/core/internal/models"
	"github.com/petlens/core/internal/modules/vision"
	"go.uber.org/zap"
)

// Document is one ingestion unit: text (markdown or plain) plus metadata.
type Document struct {
	Text       string `json:"text"        binding:"required"`
	SourceFile string `json:"source_file"`
	Breed      string `json:"breed"`
	DocType    string `json:"doc_type"` // description | care | health
	Markdown   bool   `json:"markdown"`
}

// QueryResult is one retrieval hit returned over the API.
type QueryResult struct {
	Text       string  `json:"text"`
	SourceFile string  `json:"source_file"`
	Breed      string  `json:"breed"`
	DocType    string  `json:"doc_type"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// Status describes the index contents.
type Status struct {
	ChunkCount     int64    `json:"chunk_count"`
	Breeds         []string `json:"breeds"`
	EmbeddingModel string   `json:"embedding_model"`
}

// Service owns the retrieval index lifecycle and implements vision.Enricher.
type Service struct {
	index    Index
	embedder Embedder
	cfg      *config.RAGConfig
	log      *zap.Logger
}

func NewService(index Index, embedder Embedder, cfg *config.RAGConfig, log *zap.Logger) *Service {
	return &Service{index: index, embedder: embedder, cfg: cfg, log: log}
}

// Ingest chunks, embeds and stores documents. Markdown is converted to plain
// text first. Returns the number of chunks written.
func (s *Service) Ingest(ctx context.Context, docs []Document) (int, error) {
	var rows []models.ChunkModel
	var texts []string

	for _, doc := range docs {
		text := doc.Text
		if doc.Markdown {
			text = MarkdownToText([]byte(doc.Text))
		}
		for _, chunk := range Split(text, s.cfg.ChunkSize, s.cfg.ChunkOverlap) {
			rows = append(rows, models.ChunkModel{
				Text:       chunk.Text,
				SourceFile: doc.SourceFile,
				Breed:      strings.ToLower(strings.TrimSpace(doc.Breed)),
				DocType:    doc.DocType,
				ChunkIndex: chunk.Index,
			})
			texts = append(texts, chunk.Text)
		}
	}
	if len(rows) == 0 {
		return 0, nil
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}
	for i := range rows {
		rows[i].Embedding = vectors[i]
	}

	if err := s.index.Add(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Query embeds the question and searches the index.
func (s *Service) Query(ctx context.Context, question string, topK int, minScore float64, breed string) ([]QueryResult, error) {
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	vectors, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, err
	}

	hits, err := s.index.Search(ctx, vectors[0], topK, minScore,
		strings.ToLower(strings.TrimSpace(breed)))
	if err != nil {
		return nil, err
	}

	results := make([]QueryResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, QueryResult{
			Text:       hit.Text,
			SourceFile: hit.SourceFile,
			Breed:      hit.Breed,
			DocType:    hit.DocType,
			ChunkIndex: hit.ChunkIndex,
			Score:      hit.Score,
		})
	}
	return results, nil
}

func (s *Service) Status(ctx context.Context) (*Status, error) {
	count, breeds, err := s.index.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &Status{
		ChunkCount:     count,
		Breeds:         breeds,
		EmbeddingModel: s.embedder.Model(),
	}, nil
}

// Initialize loads the seed corpus: every markdown file under the configured
// docs directory, named `{breed}_{doctype}.md` or `{breed}.md`.
func (s *Service) Initialize(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.cfg.DocsDir)
	if err != nil {
		return 0, fmt.Errorf("read docs dir %s: %w", s.cfg.DocsDir, err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.cfg.DocsDir, entry.Name()))
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		breed, docType := parseDocName(entry.Name())
		docs = append(docs, Document{
			Text:       string(data),
			SourceFile: entry.Name(),
			Breed:      breed,
			DocType:    docType,
			Markdown:   true,
		})
	}

	n, err := s.Ingest(ctx, docs)
	if err != nil {
		return 0, err
	}
	s.log.Info("retrieval index initialized",
		zap.Int("documents", len(docs)), zap.Int("chunks", n))
	return n, nil
}

// Enrich satisfies vision.Enricher: retrieve per parent breed for crossbreeds
// (union, deduplicated), or for the single primary breed. Chunk positions map
// to the report fields in order.
func (s *Service) Enrich(ctx context.Context, analysis *vision.BreedAnalysis, species string) (*vision.EnrichedInfo, error) {
	breeds := []string{analysis.PrimaryBreed}
	if analysis.IsLikelyCrossbreed && len(analysis.ParentBreeds) > 0 {
		breeds = analysis.ParentBreeds
	}

	var hits []QueryResult
	seen := map[string]bool{}
	for _, breed := range breeds {
		question := fmt.Sprintf("%s %s breed characteristics, care and health", breed, species)
		results, err := s.Query(ctx, question, s.cfg.TopK, 0, breed)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			key := r.SourceFile + "#" + fmt.Sprint(r.ChunkIndex)
			if seen[key] {
				continue
			}
			seen[key] = true
			hits = append(hits, r)
		}
	}
	if len(hits) == 0 {
		return nil, fmt.Errorf("no chunks indexed for %s", strings.Join(breeds, ", "))
	}

	info := &vision.EnrichedInfo{}
	for i, hit := range hits {
		text := capLength(hit.Text, s.cfg.MaxFieldLength)
		switch i {
		case 0:
			info.Description = text
		case 1:
			info.CareSummary = text
		case 2:
			info.HealthInfo = text
		}
		info.Sources = appendUnique(info.Sources, hit.SourceFile)
	}
	return info, nil
}

func parseDocName(name string) (breed, docType string) {
	base := strings.TrimSuffix(name, ".md")
	for _, suffix := range []string{"_description", "_care", "_health"} {
		if strings.HasSuffix(base, suffix) {
			return strings.TrimSuffix(base, suffix), strings.TrimPrefix(suffix, "_")
		}
	}
	return base, "description"
}

func capLength(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
