package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"ragdesk/internal/domain"
	"ragdesk/internal/port"
)

// DefaultContextResults is the number of chunks pulled into a chat prompt.
const DefaultContextResults = 10

// RetrieveUseCase handles similarity search over a chunk table.
type RetrieveUseCase struct {
	store  port.TableStore
	table  string
	logger *zap.Logger
}

// NewRetrieveUseCase creates a new retrieve use case over tableName.
func NewRetrieveUseCase(store port.TableStore, tableName string, logger *zap.Logger) *RetrieveUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tableName == "" {
		tableName = DefaultTable
	}
	return &RetrieveUseCase{
		store:  store,
		table:  tableName,
		logger: logger,
	}
}

// Search returns up to k records closest to query.
func (u *RetrieveUseCase) Search(ctx context.Context, query string, k int) ([]domain.SearchHit, error) {
	if k <= 0 {
		k = DefaultContextResults
	}
	table, err := u.store.OpenTable(ctx, u.table)
	if err != nil {
		return nil, err
	}
	hits, err := table.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return hits, nil
}

// Context renders the k closest chunks as source-annotated text blocks. It
// returns "" when the table is missing, empty or cannot be searched.
func (u *RetrieveUseCase) Context(ctx context.Context, query string, k int) string {
	hits, err := u.Search(ctx, query, k)
	if errors.Is(err, domain.ErrTableNotFound) {
		u.logger.Info("no table to retrieve from", zap.String("table", u.table))
		return ""
	}
	if err != nil {
		u.logger.Warn("retrieval failed", zap.String("table", u.table), zap.Error(err))
		return ""
	}
	if len(hits) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(hits))
	for _, hit := range hits {
		blocks = append(blocks, formatBlock(hit.Record))
	}
	return strings.Join(blocks, "\n\n")
}

// formatBlock renders one record with its source line. Stored records carry
// no page numbers or title, so those parts are always blank and "Untitled".
func formatBlock(rec domain.ChunkRecord) string {
	filename := rec.Metadata.Filename
	if filename == "" {
		filename = "unknown"
	}
	return fmt.Sprintf("%s\n(Source: %s - %s - %s)", rec.Text, filename, "", "Untitled")
}
