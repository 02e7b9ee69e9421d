package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"ragdesk/internal/domain"
	"ragdesk/internal/port"
)

const registryTable = "ragdesk_tables"

// ErrNameCollision means two table names map to the same postgres identifier.
var ErrNameCollision = errors.New("table name collides with an existing table")

// PGStore keeps each table as a postgres table with a pgvector column.
// Table names and schemas are recorded in ragdesk_tables.
type PGStore struct {
	db       *sql.DB
	embedder port.Embedder
	logger   *zap.Logger
}

func NewPGStore(ctx context.Context, dsn string, embedder port.Embedder, logger *zap.Logger) (*PGStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	s := &PGStore{db: db, embedder: embedder, logger: logger}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PGStore) init(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS ` + registryTable + ` (
			name TEXT PRIMARY KEY,
			dimension INTEGER NOT NULL,
			embedding_model TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

func (s *PGStore) TableNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM `+registryTable+` ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *PGStore) OpenTable(ctx context.Context, name string) (port.Table, error) {
	const query = `SELECT dimension, embedding_model, created_at FROM ` + registryTable + ` WHERE name = $1`

	var schema domain.TableSchema
	err := s.db.QueryRowContext(ctx, query, name).Scan(&schema.Dimension, &schema.EmbeddingModel, &schema.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTableNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &pgTable{store: s, name: name, schema: schema}, nil
}

func (s *PGStore) CreateTable(ctx context.Context, name string, schema domain.TableSchema) (port.Table, error) {
	if name == "" {
		return nil, fmt.Errorf("table name must not be empty")
	}
	if schema.Dimension <= 0 {
		return nil, fmt.Errorf("table %s: dimension must be positive", name)
	}
	if schema.CreatedAt.IsZero() {
		schema.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `LOCK TABLE `+registryTable+` IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return nil, err
	}
	existing, err := registeredNames(ctx, tx)
	if err != nil {
		return nil, err
	}
	if other, ok := collidingName(existing, name); ok {
		return nil, fmt.Errorf("%w: %q and %q both map to %s", ErrNameCollision, name, other, PGTableName(name))
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO `+registryTable+` (name, dimension, embedding_model, created_at)
		VALUES ($1, $2, $3, $4) ON CONFLICT (name) DO NOTHING`,
		name, schema.Dimension, schema.EmbeddingModel, schema.CreatedAt)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrTableExists, name)
	}

	if _, err := tx.ExecContext(ctx, createTableSQL(name, schema.Dimension)); err != nil {
		return nil, fmt.Errorf("failed to create table %s: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("created table",
		zap.String("table", name),
		zap.Int("dimension", schema.Dimension),
		zap.String("model", schema.EmbeddingModel))
	return &pgTable{store: s, name: name, schema: schema}, nil
}

func (s *PGStore) DropTable(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM `+registryTable+` WHERE name = $1`, name)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrTableNotFound, name)
	}
	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+quotedTable(name)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PGStore) Close() error {
	return s.db.Close()
}

type pgTable struct {
	store  *PGStore
	name   string
	schema domain.TableSchema
}

func (t *pgTable) Name() string {
	return t.name
}

func (t *pgTable) Schema() domain.TableSchema {
	return t.schema
}

func (t *pgTable) Append(ctx context.Context, records []domain.ChunkRecord) (int, error) {
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

	tx, err := t.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO `+quotedTable(t.name)+` (id, text, embedding, metadata) VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, rec := range records {
		id := rec.ID
		if id == "" {
			id = uuid.NewString()
		}
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, id, rec.Text, pgvector.NewVector(vectors[i]), meta); err != nil {
			return 0, fmt.Errorf("insert into %s: %w", t.name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (t *pgTable) Search(ctx context.Context, query string, k int) ([]domain.SearchHit, error) {
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

	rows, err := t.store.db.QueryContext(ctx,
		`SELECT id, text, embedding, metadata, embedding <=> $1 AS distance
		FROM `+quotedTable(t.name)+` ORDER BY distance LIMIT $2`,
		pgvector.NewVector(vectors[0]), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []domain.SearchHit
	for rows.Next() {
		var distance float64
		rec, err := scanRecord(rows, &distance)
		if err != nil {
			return nil, err
		}
		hits = append(hits, domain.SearchHit{Record: rec, Score: 1 - distance})
	}
	return hits, rows.Err()
}

func (t *pgTable) Scan(ctx context.Context) ([]domain.ChunkRecord, error) {
	rows, err := t.store.db.QueryContext(ctx,
		`SELECT id, text, embedding, metadata FROM `+quotedTable(t.name)+` ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ChunkRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (t *pgTable) Count(ctx context.Context) (int, error) {
	var n int
	err := t.store.db.QueryRowContext(ctx, `SELECT count(*) FROM `+quotedTable(t.name)).Scan(&n)
	return n, err
}

func scanRecord(rows *sql.Rows, extra ...any) (domain.ChunkRecord, error) {
	var (
		rec       domain.ChunkRecord
		embedding pgvector.Vector
		meta      []byte
	)
	dest := append([]any{&rec.ID, &rec.Text, &embedding, &meta}, extra...)
	if err := rows.Scan(dest...); err != nil {
		return rec, err
	}
	rec.Vector = embedding.Slice()
	if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
		return rec, fmt.Errorf("decode metadata of %s: %w", rec.ID, err)
	}
	return rec, nil
}

func registeredNames(ctx context.Context, tx *sql.Tx) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM `+registryTable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// collidingName returns a registered name other than name that shares its
// postgres identifier.
func collidingName(existing []string, name string) (string, bool) {
	ident := PGTableName(name)
	for _, other := range existing {
		if other != name && PGTableName(other) == ident {
			return other, true
		}
	}
	return "", false
}

// PGTableName maps a table name onto a postgres identifier. Characters
// outside [a-z0-9_] become underscores.
func PGTableName(name string) string {
	var sb strings.Builder
	sb.WriteString("ragdesk_t_")
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	ident := sb.String()
	if len(ident) > 63 {
		ident = ident[:63]
	}
	return ident
}

func quotedTable(name string) string {
	return pq.QuoteIdentifier(PGTableName(name))
}

func createTableSQL(name string, dimension int) string {
	return fmt.Sprintf(`CREATE TABLE %s (
		seq BIGSERIAL,
		id UUID PRIMARY KEY,
		text TEXT NOT NULL,
		embedding vector(%d) NOT NULL,
		metadata JSONB NOT NULL
	)`, quotedTable(name), dimension)
}
