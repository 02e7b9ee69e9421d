package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ragdesk/internal/domain"
	"ragdesk/internal/port"
)

// BuildMetadata returns the metadata attached to every chunk of one source.
func BuildMetadata(filename, projectID, fileType, description string, now time.Time) domain.ChunkMetadata {
	return domain.ChunkMetadata{
		Filename:    filename,
		ProjectID:   projectID,
		FileType:    fileType,
		Description: description,
		UploadDate:  now.Format(domain.UploadDateLayout),
	}
}

// IsDuplicate reports whether tableName already holds a record with the same
// filename (case and surrounding whitespace ignored) and project id.
func IsDuplicate(ctx context.Context, store port.TableStore, meta domain.ChunkMetadata, tableName string) (bool, error) {
	table, err := store.OpenTable(ctx, tableName)
	if errors.Is(err, domain.ErrTableNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to open table %s: %w", tableName, err)
	}

	records, err := table.Scan(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to scan table %s: %w", tableName, err)
	}

	filename := normalizeFilename(meta.Filename)
	for _, rec := range records {
		if normalizeFilename(rec.Metadata.Filename) == filename && rec.Metadata.ProjectID == meta.ProjectID {
			return true, nil
		}
	}
	return false, nil
}

func normalizeFilename(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
