package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"ragdesk/internal/port"
)

// CachedEmbedder keeps recent embeddings in an expiring LRU so repeated
// queries and re-ingested text skip the API.
type CachedEmbedder struct {
	next   port.Embedder
	cache  *expirable.LRU[string, []float32]
	logger *zap.Logger
}

// WithCache wraps e. A non-positive size or ttl disables caching.
func WithCache(e port.Embedder, size int, ttl time.Duration, logger *zap.Logger) port.Embedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{
		next:   e,
		cache:  expirable.NewLRU[string, []float32](size, nil, ttl),
		logger: logger,
	}
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if cached, ok := c.cache.Get(c.key(text)); ok {
			out[i] = cloneEmbedding(cached)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		c.logger.Debug("embedding cache hit", zap.Int("texts", len(texts)))
		return out, nil
	}

	embeddings, err := c.next.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, emb := range embeddings {
		i := missingIdx[j]
		out[i] = emb
		c.cache.Add(c.key(texts[i]), cloneEmbedding(emb))
	}
	return out, nil
}

func (c *CachedEmbedder) Dimension() int {
	return c.next.Dimension()
}

func (c *CachedEmbedder) ModelName() string {
	return c.next.ModelName()
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(c.next.ModelName() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
