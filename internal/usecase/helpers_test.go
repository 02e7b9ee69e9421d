package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ragdesk/internal/adapter/analyzer"
	"ragdesk/internal/adapter/chunker"
	"ragdesk/internal/adapter/embedding"
	"ragdesk/internal/adapter/memstore"
	"ragdesk/internal/domain"
	"ragdesk/internal/port"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 589000000, time.UTC)

type stubConverter struct {
	docs  map[string]*domain.Document
	calls int
}

func (s *stubConverter) Convert(_ context.Context, source string) (*domain.Document, error) {
	s.calls++
	doc, ok := s.docs[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, source)
	}
	return doc, nil
}

func (s *stubConverter) ConvertAll(ctx context.Context, sources []string) []port.Conversion {
	out := make([]port.Conversion, len(sources))
	for i, src := range sources {
		doc, err := s.Convert(ctx, src)
		out[i] = port.Conversion{Source: src, Document: doc, Err: err}
	}
	return out
}

func newTestIngest(store port.TableStore, converter port.Converter) *IngestUseCase {
	embedder := embedding.NewMockEmbedder(32)
	return NewIngestUseCase(
		store,
		converter,
		chunker.NewHybridChunker(chunker.DefaultMaxTokens, true, analyzer.NewWordTokenizer()),
		chunker.NewTableRowChunker(chunker.DefaultMaxTableChunks),
		embedder,
		nil,
	).WithClock(func() time.Time { return fixedNow })
}

func newTestStore() *memstore.MemoryStore {
	return memstore.NewMemoryStore(embedding.NewMockEmbedder(32))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func threePageDoc(origin string) *domain.Document {
	return &domain.Document{
		Origin: origin,
		Kind:   domain.FileTypePDF,
		Elements: []domain.Element{
			{Kind: domain.ElementParagraph, Text: "Login flow accepts email and password.", Page: 1},
			{Kind: domain.ElementParagraph, Text: "Password reset sends a link by email.", Page: 2},
			{Kind: domain.ElementParagraph, Text: "Accounts lock after five failed attempts.", Page: 3},
		},
	}
}

func scanTable(t *testing.T, store port.TableStore, name string) []domain.ChunkRecord {
	t.Helper()
	ctx := context.Background()
	table, err := store.OpenTable(ctx, name)
	require.NoError(t, err)
	records, err := table.Scan(ctx)
	require.NoError(t, err)
	return records
}
