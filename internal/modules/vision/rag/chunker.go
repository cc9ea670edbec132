// Package rag maintains the breed knowledge retrieval index: markdown
// ingestion, chunking, embedding and brute-force cosine search.
package rag

import (
	"strings"
	"unicode/utf8"
)

// Chunk is one indexed slice of a source document.
type Chunk struct {
	Text  string
	Index int
}

// Split cuts text into overlapping chunks of roughly size runes, preferring
// paragraph and sentence boundaries over hard cuts.
func Split(text string, size, overlap int) []Chunk {
	if size <= 0 {
		size = 512
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= size {
		return []Chunk{{Text: text}}
	}

	pieces := splitRecursive(text, []string{"\n\n", "\n", ". ", " ", ""}, size, overlap)
	chunks := make([]Chunk, 0, len(pieces))
	for i, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		chunks = append(chunks, Chunk{Text: p, Index: i})
	}
	for i := range chunks {
		chunks[i].Index = i
	}
	return chunks
}

func splitRecursive(text string, separators []string, size, overlap int) []string {
	if utf8.RuneCountInString(text) <= size {
		return []string{text}
	}

	var segments []string
	var sep string
	for _, s := range separators {
		if s == "" {
			return hardSplit(text, size)
		}
		if parts := strings.Split(text, s); len(parts) > 1 {
			segments, sep = parts, s
			break
		}
	}
	if segments == nil {
		return hardSplit(text, size)
	}

	var out []string
	var current strings.Builder
	for _, seg := range segments {
		joined := current.String()
		if joined != "" {
			joined += sep
		}
		joined += seg

		if utf8.RuneCountInString(joined) > size && current.Len() > 0 {
			out = append(out, current.String())
			tail := lastRunes(current.String(), overlap)
			current.Reset()
			if tail != "" {
				current.WriteString(tail)
				current.WriteString(sep)
			}
			current.WriteString(seg)
			continue
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(seg)
	}
	if current.Len() > 0 {
		out = append(out, current.String())
	}
	return out
}

func hardSplit(text string, size int) []string {
	runes := []rune(text)
	var out []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

func lastRunes(s string, n int) string {
	runes := []rune(s)
	if n >= len(runes) {
		return s
	}
	return string(runes[len(runes)-n:])
}
