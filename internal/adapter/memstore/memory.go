package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ragdesk/internal/adapter/store"
	"ragdesk/internal/domain"
	"ragdesk/internal/port"
)

// MemoryStore is a TableStore that lives only in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	embedder port.Embedder
	tables   map[string]*memTable
}

func NewMemoryStore(embedder port.Embedder) *MemoryStore {
	return &MemoryStore{
		embedder: embedder,
		tables:   make(map[string]*memTable),
	}
}

func (s *MemoryStore) TableNames(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) OpenTable(_ context.Context, name string) (port.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTableNotFound, name)
	}
	return t, nil
}

func (s *MemoryStore) CreateTable(_ context.Context, name string, schema domain.TableSchema) (port.Table, error) {
	if name == "" {
		return nil, fmt.Errorf("table name must not be empty")
	}
	if schema.Dimension <= 0 {
		return nil, fmt.Errorf("table %s: dimension must be positive", name)
	}
	if schema.CreatedAt.IsZero() {
		schema.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTableExists, name)
	}
	t := &memTable{store: s, name: name, schema: schema}
	s.tables[name] = t
	return t, nil
}

func (s *MemoryStore) DropTable(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[name]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrTableNotFound, name)
	}
	delete(s.tables, name)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

type memTable struct {
	store   *MemoryStore
	name    string
	schema  domain.TableSchema
	mu      sync.RWMutex
	records []domain.ChunkRecord
}

func (t *memTable) Name() string {
	return t.name
}

func (t *memTable) Schema() domain.TableSchema {
	return t.schema
}

func (t *memTable) Append(ctx context.Context, records []domain.ChunkRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Text
	}
	vectors, err := t.store.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed records: %w", err)
	}
	if len(vectors) != len(records) {
		return 0, fmt.Errorf("embed records: got %d vectors for %d records", len(vectors), len(records))
	}
	if err := store.CheckDimensions(vectors, t.schema.Dimension); err != nil {
		return 0, fmt.Errorf("table %s: %w", t.name, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for i, rec := range records {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		rec.Vector = vectors[i]
		t.records = append(t.records, rec)
	}
	return len(records), nil
}

func (t *memTable) Search(ctx context.Context, query string, k int) ([]domain.SearchHit, error) {
	vectors, err := t.store.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if err := store.CheckDimensions(vectors, t.schema.Dimension); err != nil {
		return nil, fmt.Errorf("table %s: %w", t.name, err)
	}
	records, _ := t.Scan(ctx)
	return store.TopK(vectors[0], records, k), nil
}

func (t *memTable) Scan(_ context.Context) ([]domain.ChunkRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.ChunkRecord, len(t.records))
	copy(out, t.records)
	return out, nil
}

func (t *memTable) Count(_ context.Context) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records), nil
}
