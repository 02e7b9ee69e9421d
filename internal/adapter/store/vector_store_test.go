package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragdesk/internal/domain"
)

func TestTopK(t *testing.T) {
	records := []domain.ChunkRecord{
		{Text: "orthogonal", Vector: []float32{0, 1}},
		{Text: "same", Vector: []float32{2, 0}},
		{Text: "close", Vector: []float32{1, 0.2}},
		{Text: "opposite", Vector: []float32{-1, 0}},
	}

	hits := TopK([]float32{1, 0}, records, 3)
	require.Len(t, hits, 3)
	assert.Equal(t, "same", hits[0].Record.Text)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.Equal(t, "close", hits[1].Record.Text)
	assert.Equal(t, "orthogonal", hits[2].Record.Text)

	assert.Len(t, TopK([]float32{1, 0}, records, 10), 4)
	assert.Nil(t, TopK([]float32{1, 0}, records, 0))
	assert.Nil(t, TopK([]float32{1, 0}, nil, 5))
}

func TestCosineSimilarityEdgeCases(t *testing.T) {
	assert.Zero(t, cosineSimilarity([]float32{1, 2}, []float32{1}))
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}

func TestCheckDimensions(t *testing.T) {
	assert.NoError(t, CheckDimensions([][]float32{{1, 2}, {3, 4}}, 2))

	err := CheckDimensions([][]float32{{1, 2}, {3}}, 2)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.EqualError(t, err, "vector dimension mismatch: expected 2, got 1")
}

func TestPGTableName(t *testing.T) {
	assert.Equal(t, "ragdesk_t_files", PGTableName("files"))
	assert.Equal(t, "ragdesk_t_my_table_v2", PGTableName("My-Table v2"))
	assert.Equal(t, `"ragdesk_t_x__drop"`, quotedTable(`x";drop`))
	assert.LessOrEqual(t, len(PGTableName(string(make([]byte, 100)))), 63)
}

func TestCollidingName(t *testing.T) {
	existing := []string{"files", "reports"}

	other, ok := collidingName(existing, "Files")
	assert.True(t, ok)
	assert.Equal(t, "files", other)

	other, ok = collidingName(existing, "fi-les")
	assert.False(t, ok, other)

	_, ok = collidingName(existing, "files")
	assert.False(t, ok)

	_, ok = collidingName([]string{"fi-les"}, "fi_les")
	assert.True(t, ok)
}

func TestCreateTableSQL(t *testing.T) {
	sql := createTableSQL("files", 3072)
	assert.Contains(t, sql, `CREATE TABLE "ragdesk_t_files"`)
	assert.Contains(t, sql, "vector(3072)")
	assert.Contains(t, sql, "metadata JSONB")
}
