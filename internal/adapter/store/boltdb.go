package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"ragdesk/internal/domain"
	"ragdesk/internal/port"
)

var (
	bucketTables = []byte("tables")
	bucketRows   = []byte("rows")
	keySchema    = []byte("schema")
)

// BoltStore keeps every table as a nested bucket of one bbolt file:
// tables/<name>/schema holds the TableSchema and tables/<name>/rows the
// records, keyed by insertion sequence.
type BoltStore struct {
	db       *bbolt.DB
	embedder port.Embedder
	logger   *zap.Logger
}

func NewBoltStore(path string, embedder port.Embedder, logger *zap.Logger) (*BoltStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketTables, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BoltStore{db: db, embedder: embedder, logger: logger}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *BoltStore) TableNames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var names []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTables).ForEach(func(k, v []byte) error {
			if v == nil {
				names = append(names, string(k))
			}
			return nil
		})
	})
	return names, err
}

func (s *BoltStore) OpenTable(ctx context.Context, name string) (port.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var schema domain.TableSchema
	err := s.db.View(func(tx *bbolt.Tx) error {
		tb := tx.Bucket(bucketTables).Bucket([]byte(name))
		if tb == nil {
			return fmt.Errorf("%w: %s", domain.ErrTableNotFound, name)
		}
		data := tb.Get(keySchema)
		if data == nil {
			return fmt.Errorf("table %s has no schema", name)
		}
		return json.Unmarshal(data, &schema)
	})
	if err != nil {
		return nil, err
	}
	return &boltTable{store: s, name: name, schema: schema}, nil
}

func (s *BoltStore) CreateTable(ctx context.Context, name string, schema domain.TableSchema) (port.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("table name must not be empty")
	}
	if schema.Dimension <= 0 {
		return nil, fmt.Errorf("table %s: dimension must be positive", name)
	}
	if schema.CreatedAt.IsZero() {
		schema.CreatedAt = time.Now()
	}

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		tables := tx.Bucket(bucketTables)
		if tables.Bucket([]byte(name)) != nil {
			return fmt.Errorf("%w: %s", domain.ErrTableExists, name)
		}
		tb, err := tables.CreateBucket([]byte(name))
		if err != nil {
			return err
		}
		if _, err := tb.CreateBucket(bucketRows); err != nil {
			return err
		}
		return tb.Put(keySchema, data)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("created table",
		zap.String("table", name),
		zap.Int("dimension", schema.Dimension),
		zap.String("model", schema.EmbeddingModel))
	return &boltTable{store: s, name: name, schema: schema}, nil
}

func (s *BoltStore) DropTable(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		err := tx.Bucket(bucketTables).DeleteBucket([]byte(name))
		if err == bbolt.ErrBucketNotFound {
			return fmt.Errorf("%w: %s", domain.ErrTableNotFound, name)
		}
		return err
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

type boltTable struct {
	store  *BoltStore
	name   string
	schema domain.TableSchema
}

func (t *boltTable) Name() string {
	return t.name
}

func (t *boltTable) Schema() domain.TableSchema {
	return t.schema
}

func (t *boltTable) Append(ctx context.Context, records []domain.ChunkRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	vectors, err := embedRecords(ctx, t.store.embedder, records)
	if err != nil {
		return 0, err
	}
	if err := CheckDimensions(vectors, t.schema.Dimension); err != nil {
		return 0, fmt.Errorf("table %s: %w", t.name, err)
	}

	err = t.store.db.Update(func(tx *bbolt.Tx) error {
		rows, err := t.rows(tx)
		if err != nil {
			return err
		}
		for i := range records {
			rec := records[i]
			if rec.ID == "" {
				rec.ID = uuid.NewString()
			}
			rec.Vector = vectors[i]

			data, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			seq, err := rows.NextSequence()
			if err != nil {
				return err
			}
			if err := rows.Put(seqKey(seq), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	t.store.logger.Debug("appended records", zap.String("table", t.name), zap.Int("count", len(records)))
	return len(records), nil
}

func (t *boltTable) Search(ctx context.Context, query string, k int) ([]domain.SearchHit, error) {
	if t.store.embedder == nil {
		return nil, fmt.Errorf("table %s: no embedder configured", t.name)
	}
	vectors, err := t.store.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vectors))
	}
	if err := CheckDimensions(vectors, t.schema.Dimension); err != nil {
		return nil, fmt.Errorf("table %s: %w", t.name, err)
	}

	records, err := t.Scan(ctx)
	if err != nil {
		return nil, err
	}
	return TopK(vectors[0], records, k), nil
}

func (t *boltTable) Scan(ctx context.Context) ([]domain.ChunkRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var records []domain.ChunkRecord
	err := t.store.db.View(func(tx *bbolt.Tx) error {
		rows, err := t.rows(tx)
		if err != nil {
			return err
		}
		return rows.ForEach(func(k, v []byte) error {
			var rec domain.ChunkRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				t.store.logger.Warn("skipping corrupted record", zap.String("table", t.name), zap.Error(err))
				return nil
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}

func (t *boltTable) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int
	err := t.store.db.View(func(tx *bbolt.Tx) error {
		rows, err := t.rows(tx)
		if err != nil {
			return err
		}
		n = rows.Stats().KeyN
		return nil
	})
	return n, err
}

func (t *boltTable) rows(tx *bbolt.Tx) (*bbolt.Bucket, error) {
	tb := tx.Bucket(bucketTables).Bucket([]byte(t.name))
	if tb == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTableNotFound, t.name)
	}
	rows := tb.Bucket(bucketRows)
	if rows == nil {
		return nil, fmt.Errorf("table %s has no rows bucket", t.name)
	}
	return rows, nil
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

func embedRecords(ctx context.Context, embedder port.Embedder, records []domain.ChunkRecord) ([][]float32, error) {
	if embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Text
	}
	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed records: %w", err)
	}
	if len(vectors) != len(records) {
		return nil, fmt.Errorf("embed records: got %d vectors for %d records", len(vectors), len(records))
	}
	return vectors, nil
}
