package chunker

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragdesk/internal/adapter/analyzer"
	"ragdesk/internal/domain"
)

func TestHybridChunkerMergesPages(t *testing.T) {
	tokenizer := analyzer.NewWordTokenizer()
	chunker := NewHybridChunker(DefaultMaxTokens, true, tokenizer)

	doc := &domain.Document{
		Origin: "report.pdf",
		Kind:   domain.FileTypePDF,
		Elements: []domain.Element{
			{Kind: domain.ElementParagraph, Text: "First page text.", Page: 1},
			{Kind: domain.ElementParagraph, Text: "Second page text.", Page: 2},
			{Kind: domain.ElementParagraph, Text: "Third page text.", Page: 3},
		},
	}

	chunks, err := chunker.Chunk(doc)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.LessOrEqual(t, len(chunks), 3)

	for _, c := range chunks {
		assert.Equal(t, "report.pdf", c.Filename)
		assert.NotEmpty(t, strings.TrimSpace(c.Text))
	}
	assert.Equal(t, []int{1, 2, 3}, chunks[0].Pages)
}

func TestHybridChunkerWithoutMerge(t *testing.T) {
	chunker := NewHybridChunker(DefaultMaxTokens, false, analyzer.NewWordTokenizer())

	doc := &domain.Document{
		Origin: "notes.txt",
		Elements: []domain.Element{
			{Kind: domain.ElementParagraph, Text: "one"},
			{Kind: domain.ElementParagraph, Text: "two"},
		},
	}

	chunks, err := chunker.Chunk(doc)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "one", chunks[0].Text)
	assert.Equal(t, "two", chunks[1].Text)
}

func TestHybridChunkerRespectsBudget(t *testing.T) {
	tokenizer := analyzer.NewWordTokenizer()
	chunker := NewHybridChunker(20, true, tokenizer)

	words := make([]string, 100)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	doc := &domain.Document{
		Origin:   "long.txt",
		Elements: []domain.Element{{Kind: domain.ElementParagraph, Text: strings.Join(words, " ")}},
	}

	chunks, err := chunker.Chunk(doc)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	var rebuilt []string
	for _, c := range chunks {
		assert.LessOrEqual(t, tokenizer.CountTokens(c.Text), 20)
		rebuilt = append(rebuilt, strings.Fields(c.Text)...)
	}
	assert.Equal(t, words, rebuilt)
}

// runeTokenizer counts one token per rune.
type runeTokenizer struct{}

func (runeTokenizer) CountTokens(text string) int { return utf8.RuneCountInString(text) }

func TestHybridChunkerSplitsOverlongWords(t *testing.T) {
	chunker := NewHybridChunker(20, true, runeTokenizer{})
	blob := strings.Repeat("A", 60)
	doc := &domain.Document{
		Origin:   "blob.txt",
		Elements: []domain.Element{{Kind: domain.ElementParagraph, Text: "short " + blob}},
	}

	chunks, err := chunker.Chunk(doc)
	require.NoError(t, err)

	var joined strings.Builder
	for i, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 20, "chunk %d", i)
		joined.WriteString(strings.ReplaceAll(c.Text, " ", ""))
	}
	assert.Equal(t, "short"+blob, joined.String())
}

func TestSplitRunes(t *testing.T) {
	assert.Equal(t, []string{"äöü", "äöü", "ä"}, splitRunes("äöüäöüä", 3, runeTokenizer{}))
	assert.Equal(t, []string{"a", "b"}, splitRunes("ab", 0, runeTokenizer{}))
}

func TestHybridChunkerHeadingContext(t *testing.T) {
	chunker := NewHybridChunker(DefaultMaxTokens, true, analyzer.NewWordTokenizer())

	doc := &domain.Document{
		Origin: "guide.md",
		Elements: []domain.Element{
			{Kind: domain.ElementHeading, Text: "Guide", Level: 1},
			{Kind: domain.ElementParagraph, Text: "Intro."},
			{Kind: domain.ElementHeading, Text: "Setup", Level: 2},
			{Kind: domain.ElementParagraph, Text: "Install it."},
			{Kind: domain.ElementParagraph, Text: "Configure it."},
			{Kind: domain.ElementHeading, Text: "Usage", Level: 2},
			{Kind: domain.ElementParagraph, Text: "Run it."},
		},
	}

	chunks, err := chunker.Chunk(doc)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, []string{"Guide"}, chunks[0].Headings)
	assert.Equal(t, "Guide\nIntro.", chunks[0].Text)

	assert.Equal(t, []string{"Guide", "Setup"}, chunks[1].Headings)
	assert.Equal(t, "Guide\nSetup\nInstall it.\n\nConfigure it.", chunks[1].Text)

	assert.Equal(t, []string{"Guide", "Usage"}, chunks[2].Headings)
}

func TestHybridChunkerEmptyDocument(t *testing.T) {
	chunker := NewHybridChunker(0, true, analyzer.NewWordTokenizer())

	_, err := chunker.Chunk(&domain.Document{Origin: "blank.txt"})
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)

	_, err = chunker.Chunk(&domain.Document{
		Origin:   "spaces.txt",
		Elements: []domain.Element{{Kind: domain.ElementParagraph, Text: "   \n  "}},
	})
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
}
