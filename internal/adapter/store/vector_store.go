package store

import (
	"fmt"
	"math"
	"sort"

	"ragdesk/internal/domain"
)

// TopK ranks records by cosine similarity to query and returns the best k.
// Brute force; fine for the table sizes of a desktop tool.
func TopK(query []float32, records []domain.ChunkRecord, k int) []domain.SearchHit {
	if k <= 0 || len(records) == 0 {
		return nil
	}

	hits := make([]domain.SearchHit, 0, len(records))
	for _, rec := range records {
		hits = append(hits, domain.SearchHit{
			Record: rec,
			Score:  cosineSimilarity(query, rec.Vector),
		})
	}

	// Stable keeps insertion order among equal scores.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k]
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CheckDimensions returns domain.ErrDimensionMismatch when any vector does
// not have the table's dimension.
func CheckDimensions(vectors [][]float32, dimension int) error {
	for _, v := range vectors {
		if len(v) != dimension {
			return &DimensionError{Expected: dimension, Got: len(v)}
		}
	}
	return nil
}

type DimensionError struct {
	Expected int
	Got      int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

func (e *DimensionError) Unwrap() error {
	return domain.ErrDimensionMismatch
}
