package port

import (
	"context"

	"ragdesk/internal/domain"
)

// TableStore holds named tables of chunk records. Implementations embed
// record text at write time and query text at search time.
type TableStore interface {
	TableNames(ctx context.Context) ([]string, error)

	// OpenTable returns domain.ErrTableNotFound when the table does not exist.
	OpenTable(ctx context.Context, name string) (Table, error)

	// CreateTable creates the table with a schema that is never migrated.
	CreateTable(ctx context.Context, name string, schema domain.TableSchema) (Table, error)

	DropTable(ctx context.Context, name string) error

	Close() error
}

// Table is a named collection of chunk records with a fixed vector dimension.
type Table interface {
	Name() string

	Schema() domain.TableSchema

	// Append embeds and writes the records as one batch and returns how many
	// were written. Record vectors are filled in by the table.
	Append(ctx context.Context, records []domain.ChunkRecord) (int, error)

	// Search returns up to k records closest to the query text.
	Search(ctx context.Context, query string, k int) ([]domain.SearchHit, error)

	// Scan returns every record in the table.
	Scan(ctx context.Context) ([]domain.ChunkRecord, error)

	Count(ctx context.Context) (int, error)
}
