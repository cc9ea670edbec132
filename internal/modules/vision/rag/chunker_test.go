package rag

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortTextSingleChunk(t *testing.T) {
	chunks := Split("a short paragraph", 512, 64)
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short paragraph", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestSplitEmptyText(t *testing.T) {
	assert.Nil(t, Split("", 512, 64))
	assert.Nil(t, Split("   \n\t ", 512, 64))
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	text := strings.Repeat("alpha ", 20) + "\n\n" + strings.Repeat("bravo ", 20)
	chunks := Split(text, 80, 0)

	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Contains(t, chunks[0].Text, "alpha")
	assert.NotContains(t, chunks[0].Text, "bravo")
}

func TestSplitRespectsSizeRoughly(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("Sentence number with a handful of words in it. ")
	}
	chunks := Split(b.String(), 120, 20)

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		// Boundary-preferring splits may run slightly past size before cutting.
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 180)
	}
}

func TestSplitCarriesOverlap(t *testing.T) {
	text := strings.Repeat("one two three four five six seven eight nine ten ", 10)
	chunks := Split(text, 100, 20)

	require.Greater(t, len(chunks), 1)
	tail := lastRunes(chunks[0].Text, 20)
	assert.True(t, strings.HasPrefix(chunks[1].Text, strings.TrimSpace(tail)),
		"second chunk should start with the previous chunk's tail")
}

func TestSplitHardCutsUnbrokenText(t *testing.T) {
	text := strings.Repeat("x", 250)
	chunks := Split(text, 100, 0)

	require.Len(t, chunks, 3)
	assert.Equal(t, 100, utf8.RuneCountInString(chunks[0].Text))
	assert.Equal(t, 100, utf8.RuneCountInString(chunks[1].Text))
	assert.Equal(t, 50, utf8.RuneCountInString(chunks[2].Text))
}

func TestSplitIndexesAreContiguous(t *testing.T) {
	text := strings.Repeat("word ", 200)
	chunks := Split(text, 80, 10)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
}

func TestLastRunes(t *testing.T) {
	assert.Equal(t, "cde", lastRunes("abcde", 3))
	assert.Equal(t, "abcde", lastRunes("abcde", 10))
	assert.Equal(t, "", lastRunes("abcde", 0))
}
