package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"ragdesk/internal/adapter/embedding"
	"ragdesk/internal/domain"
)

func newTestStore(t *testing.T, dim int) (*BoltStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "vectors.db")
	s, err := NewBoltStore(path, embedding.NewMockEmbedder(dim), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func testMeta(filename string) domain.ChunkMetadata {
	return domain.ChunkMetadata{
		Filename:    filename,
		ProjectID:   "p1",
		FileType:    "pdf",
		Description: "quarterly report",
		UploadDate:  "2024-05-01T10:00:00.000000",
	}
}

func TestBoltStoreTables(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, 32)

	names, err := s.TableNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = s.OpenTable(ctx, "files")
	assert.ErrorIs(t, err, domain.ErrTableNotFound)

	created, err := s.CreateTable(ctx, "files", domain.TableSchema{Dimension: 32, EmbeddingModel: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "files", created.Name())
	assert.False(t, created.Schema().CreatedAt.IsZero())

	_, err = s.CreateTable(ctx, "files", domain.TableSchema{Dimension: 32})
	assert.ErrorIs(t, err, domain.ErrTableExists)

	_, err = s.CreateTable(ctx, "archive", domain.TableSchema{Dimension: 32})
	require.NoError(t, err)

	names, err = s.TableNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"archive", "files"}, names)

	opened, err := s.OpenTable(ctx, "files")
	require.NoError(t, err)
	assert.Equal(t, 32, opened.Schema().Dimension)
	assert.Equal(t, "mock", opened.Schema().EmbeddingModel)

	require.NoError(t, s.DropTable(ctx, "archive"))
	assert.ErrorIs(t, s.DropTable(ctx, "archive"), domain.ErrTableNotFound)
}

func TestBoltStoreAppendScanCount(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, 32)

	table, err := s.CreateTable(ctx, "files", domain.TableSchema{Dimension: 32})
	require.NoError(t, err)

	n, err := table.Append(ctx, []domain.ChunkRecord{
		{Text: "first chunk", Metadata: testMeta("a.pdf")},
		{Text: "second chunk", Metadata: testMeta("a.pdf")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = table.Append(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := table.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	records, err := table.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "first chunk", records[0].Text)
	assert.Equal(t, "second chunk", records[1].Text)
	for _, rec := range records {
		assert.NotEmpty(t, rec.ID)
		assert.Len(t, rec.Vector, 32)
		assert.Equal(t, testMeta("a.pdf"), rec.Metadata)
	}
	assert.NotEqual(t, records[0].ID, records[1].ID)
}

func TestBoltStoreMetadataHasFiveKeys(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, 16)

	table, err := s.CreateTable(ctx, "files", domain.TableSchema{Dimension: 16})
	require.NoError(t, err)
	_, err = table.Append(ctx, []domain.ChunkRecord{{Text: "hello", Metadata: testMeta("doc.docx")}})
	require.NoError(t, err)

	var raw []byte
	err = s.db.View(func(tx *bbolt.Tx) error {
		rows := tx.Bucket(bucketTables).Bucket([]byte("files")).Bucket(bucketRows)
		_, v := rows.Cursor().First()
		raw = append([]byte(nil), v...)
		return nil
	})
	require.NoError(t, err)

	var stored map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &stored))
	var meta map[string]string
	require.NoError(t, json.Unmarshal(stored["metadata"], &meta))

	assert.Equal(t, map[string]string{
		"filename":    "doc.docx",
		"project_id":  "p1",
		"file_type":   "pdf",
		"description": "quarterly report",
		"upload_date": "2024-05-01T10:00:00.000000",
	}, meta)
}

func TestBoltStoreSearchOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, 64)

	table, err := s.CreateTable(ctx, "files", domain.TableSchema{Dimension: 64})
	require.NoError(t, err)
	_, err = table.Append(ctx, []domain.ChunkRecord{
		{Text: "parking fees for students", Metadata: testMeta("a")},
		{Text: "study program overview computer science", Metadata: testMeta("b")},
		{Text: "cafeteria opening hours", Metadata: testMeta("c")},
	})
	require.NoError(t, err)

	hits, err := table.Search(ctx, "computer science study program", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "study program overview computer science", hits[0].Record.Text)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)

	hits, err = table.Search(ctx, "anything", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestBoltStoreDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, 16)

	table, err := s.CreateTable(ctx, "files", domain.TableSchema{Dimension: 8})
	require.NoError(t, err)

	_, err = table.Append(ctx, []domain.ChunkRecord{{Text: "x"}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = table.Search(ctx, "x", 3)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	count, err := table.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestBoltStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.db")

	s, err := NewBoltStore(path, embedding.NewMockEmbedder(8), nil)
	require.NoError(t, err)
	table, err := s.CreateTable(ctx, "files", domain.TableSchema{Dimension: 8, CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)})
	require.NoError(t, err)
	_, err = table.Append(ctx, []domain.ChunkRecord{{Text: "persisted"}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewBoltStore(path, embedding.NewMockEmbedder(8), nil)
	require.NoError(t, err)
	defer s.Close()

	version, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)

	table, err = s.OpenTable(ctx, "files")
	require.NoError(t, err)
	assert.True(t, table.Schema().CreatedAt.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))

	records, err := table.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "persisted", records[0].Text)
}

func TestBoltStoreRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.db")
	s, err := NewBoltStore(path, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put(keySchemaVersion, []byte("99"))
	}))
	require.NoError(t, s.Close())

	_, err = NewBoltStore(path, nil, nil)
	assert.Error(t, err)
}
