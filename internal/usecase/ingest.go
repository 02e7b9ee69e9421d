package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"ragdesk/internal/adapter/convert"
	"ragdesk/internal/adapter/fs"
	"ragdesk/internal/domain"
	"ragdesk/internal/port"
)

// DefaultTable is the table used when a request names none.
const DefaultTable = "files"

// IngestUseCase converts, chunks and stores documents.
type IngestUseCase struct {
	store      port.TableStore
	converter  port.Converter
	chunker    port.Chunker
	rowChunker port.Chunker
	embedder   port.Embedder
	excludes   []string
	logger     *zap.Logger
	now        func() time.Time
}

// NewIngestUseCase creates a new ingest use case. chunker handles prose
// documents, rowChunker handles csv and excel files one row at a time.
func NewIngestUseCase(
	store port.TableStore,
	converter port.Converter,
	chunker port.Chunker,
	rowChunker port.Chunker,
	embedder port.Embedder,
	logger *zap.Logger,
) *IngestUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestUseCase{
		store:      store,
		converter:  converter,
		chunker:    chunker,
		rowChunker: rowChunker,
		embedder:   embedder,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the clock used for upload dates.
func (u *IngestUseCase) WithClock(now func() time.Time) *IngestUseCase {
	u.now = now
	return u
}

// WithExcludes sets doublestar patterns skipped by folder ingestion.
func (u *IngestUseCase) WithExcludes(patterns []string) *IngestUseCase {
	u.excludes = patterns
	return u
}

// IngestRequest describes one ingestion call. Path is a file, a folder or a
// URL depending on the operation.
type IngestRequest struct {
	Path        string
	ProjectID   string
	Description string
	Table       string
	// FileType overrides the type inferred from the file extension.
	FileType domain.FileType
	// Recursive makes folder ingestion descend into subdirectories.
	Recursive bool
	// Progress is called after each source of a batch is processed.
	Progress func(done, total int, source string)
}

func (r IngestRequest) table() string {
	if r.Table == "" {
		return DefaultTable
	}
	return r.Table
}

func (r IngestRequest) progress(done, total int, source string) {
	if r.Progress != nil {
		r.Progress(done, total, source)
	}
}

// IngestResult contains the results of an ingestion operation.
type IngestResult struct {
	Stored     int
	Skipped    int
	Duplicates int
	Chunks     int
	Errors     []string
}

func (r *IngestResult) fail(source string, err error) {
	r.Skipped++
	r.Errors = append(r.Errors, fmt.Sprintf("failed to ingest %s: %v", source, err))
}

// IngestFile ingests a single local file. The file type comes from
// req.FileType or, when empty, from the extension.
func (u *IngestUseCase) IngestFile(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	result := &IngestResult{}
	u.ingestFile(ctx, req, result)
	return result, nil
}

// IngestPDF ingests a PDF file.
func (u *IngestUseCase) IngestPDF(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	req.FileType = domain.FileTypePDF
	return u.IngestFile(ctx, req)
}

// IngestDOCX ingests a Word document.
func (u *IngestUseCase) IngestDOCX(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	req.FileType = domain.FileTypeDOCX
	return u.IngestFile(ctx, req)
}

// IngestSpreadsheet ingests a .csv or .xlsx file one row per chunk.
func (u *IngestUseCase) IngestSpreadsheet(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if req.FileType == "" {
		switch strings.ToLower(filepath.Ext(req.Path)) {
		case ".xlsx":
			req.FileType = domain.FileTypeExcel
		default:
			req.FileType = domain.FileTypeCSV
		}
	}
	return u.IngestFile(ctx, req)
}

// IngestFolder ingests every supported file under req.Path.
func (u *IngestUseCase) IngestFolder(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	info, err := os.Stat(req.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrFileNotFound, req.Path)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", req.Path)
	}

	var walker port.Walker = fs.NewWalker(convert.SupportedExtensions(), u.excludes, req.Recursive)
	files, err := walker.Walk(req.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	u.logger.Info("ingesting folder",
		zap.String("path", req.Path),
		zap.Int("files", len(files)),
		zap.Bool("recursive", req.Recursive))

	result := &IngestResult{}
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		fileReq := req
		fileReq.Path = file.Path
		fileReq.FileType = ""
		u.ingestFile(ctx, fileReq, result)
		req.progress(i+1, len(files), file.Path)
	}
	return result, nil
}

func (u *IngestUseCase) ingestFile(ctx context.Context, req IngestRequest, result *IngestResult) {
	if _, err := os.Stat(req.Path); err != nil {
		u.logger.Warn("file not found", zap.String("path", req.Path))
		result.fail(req.Path, fmt.Errorf("%w: %s", domain.ErrFileNotFound, req.Path))
		return
	}

	fileType, err := resolveFileType(req.Path, req.FileType)
	if err != nil {
		u.logger.Warn("unsupported file type", zap.String("path", req.Path), zap.Error(err))
		result.fail(req.Path, err)
		return
	}

	doc, err := u.converter.Convert(ctx, req.Path)
	if err != nil {
		u.logger.Warn("failed to convert document", zap.String("path", req.Path), zap.Error(err))
		result.fail(req.Path, err)
		return
	}

	u.ingestDocument(ctx, doc, filepath.Base(req.Path), fileType, req, result)
}

// resolveFileType validates an explicit type against the extension. Only
// .csv and .xlsx files may take the spreadsheet path.
func resolveFileType(path string, explicit domain.FileType) (domain.FileType, error) {
	if explicit == "" {
		return convert.KindForPath(path)
	}
	if explicit.Tabular() {
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".csv" && ext != ".xlsx" {
			return "", fmt.Errorf("%w: only .csv and .xlsx files are supported for spreadsheet processing", domain.ErrUnsupportedType)
		}
	}
	return explicit, nil
}

// ingestDocument chunks doc and stores it under filename unless the
// duplicate check finds an earlier copy.
func (u *IngestUseCase) ingestDocument(
	ctx context.Context,
	doc *domain.Document,
	filename string,
	fileType domain.FileType,
	req IngestRequest,
	result *IngestResult,
) {
	meta := BuildMetadata(filename, req.ProjectID, string(fileType), req.Description, u.now())

	dup, err := IsDuplicate(ctx, u.store, meta, req.table())
	if err != nil {
		u.logger.Error("duplicate check failed", zap.String("source", filename), zap.Error(err))
		result.fail(filename, err)
		return
	}
	if dup {
		u.logger.Info("already indexed, skipping",
			zap.String("source", filename),
			zap.String("project_id", req.ProjectID))
		result.Duplicates++
		return
	}

	chunks, err := u.chunkerFor(fileType).Chunk(doc)
	if err != nil {
		u.logger.Warn("failed to chunk document", zap.String("source", filename), zap.Error(err))
		result.fail(filename, err)
		return
	}
	u.logger.Info("chunks created", zap.String("source", filename), zap.Int("chunks", len(chunks)))

	n, err := u.StoreChunks(ctx, chunks, meta, req.table())
	if err != nil {
		u.logger.Error("failed to store chunks", zap.String("source", filename), zap.Error(err))
		result.fail(filename, err)
		return
	}
	if n == 0 {
		result.Skipped++
		return
	}
	result.Stored++
	result.Chunks += n
}

func (u *IngestUseCase) chunkerFor(fileType domain.FileType) port.Chunker {
	if fileType.Tabular() {
		return u.rowChunker
	}
	return u.chunker
}

// StoreChunks writes one record per chunk to tableName, creating the table
// on first use, and returns the number of records written.
func (u *IngestUseCase) StoreChunks(ctx context.Context, chunks []domain.Chunk, meta domain.ChunkMetadata, tableName string) (int, error) {
	records := make([]domain.ChunkRecord, 0, len(chunks))
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			u.logger.Warn("skipping chunk without text", zap.Int("chunk", i+1))
			continue
		}
		recMeta := meta
		recMeta.Filename = chunk.Filename
		if recMeta.Filename == "" {
			recMeta.Filename = meta.Filename
		}
		if recMeta.Filename == "" {
			recMeta.Filename = "unknown"
		}
		records = append(records, domain.ChunkRecord{Text: chunk.Text, Metadata: recMeta})
	}

	if len(records) == 0 {
		u.logger.Warn("no valid records to save", zap.String("table", tableName))
		return 0, nil
	}

	table, err := u.openOrCreate(ctx, tableName)
	if err != nil {
		return 0, err
	}

	n, err := table.Append(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("failed to append to %s: %w", tableName, err)
	}
	u.logger.Info("chunks saved", zap.String("table", tableName), zap.Int("records", n))
	return n, nil
}

func (u *IngestUseCase) openOrCreate(ctx context.Context, name string) (port.Table, error) {
	table, err := u.store.OpenTable(ctx, name)
	if err == nil {
		return table, nil
	}
	if !errors.Is(err, domain.ErrTableNotFound) {
		return nil, fmt.Errorf("failed to open table %s: %w", name, err)
	}

	u.logger.Info("creating table",
		zap.String("table", name),
		zap.Int("dimension", u.embedder.Dimension()),
		zap.String("model", u.embedder.ModelName()))
	table, err = u.store.CreateTable(ctx, name, domain.TableSchema{
		Dimension:      u.embedder.Dimension(),
		EmbeddingModel: u.embedder.ModelName(),
		CreatedAt:      u.now(),
	})
	if errors.Is(err, domain.ErrTableExists) {
		return u.store.OpenTable(ctx, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create table %s: %w", name, err)
	}
	return table, nil
}
