package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"ragdesk/internal/adapter/analyzer"
	"ragdesk/internal/adapter/chunker"
	"ragdesk/internal/adapter/convert"
	"ragdesk/internal/adapter/web"
	"ragdesk/internal/domain"
	"ragdesk/internal/usecase"
)

var (
	ingestProject     string
	ingestDescription string
	webDescription    string
	ingestTable       string
	ingestType        string
	ingestRecursive   bool
	ingestSite        bool
	ingestMaxPages    int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest files, folders or web pages into a vector table",
}

var ingestFileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Ingest a single file",
	Long: `Convert, chunk and store one file. Supported types are pdf, docx, xlsx,
csv, md, txt and html. csv and xlsx files are stored one table row per chunk.

Examples:
  ragdesk ingest file plan.pdf --project shop --description "test plan"
  ragdesk ingest file results.xlsx --project shop --type excel`,
	Args: cobra.ExactArgs(1),
	RunE: runIngestFile,
}

var ingestFolderCmd = &cobra.Command{
	Use:   "folder <dir>",
	Short: "Ingest every supported file in a folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestFolder,
}

var ingestWebCmd = &cobra.Command{
	Use:   "web <url>",
	Short: "Ingest a web page or a whole site",
	Long: `Ingest a single page, or with --site every page of the site. Whole-site
ingestion reads the sitemap and falls back to crawling same-host links.

Examples:
  ragdesk ingest web https://example.com/docs
  ragdesk ingest web https://example.com --site --max-pages 50`,
	Args: cobra.ExactArgs(1),
	RunE: runIngestWeb,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.AddCommand(ingestFileCmd, ingestFolderCmd, ingestWebCmd)

	for _, c := range []*cobra.Command{ingestFileCmd, ingestFolderCmd, ingestWebCmd} {
		c.Flags().StringVar(&ingestProject, "project", "", "project id stored with every chunk")
		c.Flags().StringVar(&ingestTable, "table", "", "table name (default from config)")
	}
	ingestFileCmd.Flags().StringVar(&ingestDescription, "description", "", "description stored with every chunk")
	ingestFolderCmd.Flags().StringVar(&ingestDescription, "description", "", "description stored with every chunk")
	ingestWebCmd.Flags().StringVar(&webDescription, "description", "Submitted from CLI", "description stored with every chunk")

	ingestFileCmd.Flags().StringVar(&ingestType, "type", "", "file type override (pdf, docx, excel, csv, markdown, text, html)")
	ingestFolderCmd.Flags().BoolVarP(&ingestRecursive, "recursive", "r", false, "descend into subdirectories")
	ingestWebCmd.Flags().BoolVar(&ingestSite, "site", false, "ingest the whole site instead of one page")
	ingestWebCmd.Flags().IntVar(&ingestMaxPages, "max-pages", 0, "crawler page limit (default from config)")

	ingestFileCmd.MarkFlagRequired("project")
	ingestFolderCmd.MarkFlagRequired("project")
}

func newIngestUseCase(b *backend, fetcher *web.HTTPFetcher) *usecase.IngestUseCase {
	cfg := GetConfig()
	log := GetLogger()

	tokenizer := analyzer.NewTokenizer(analyzer.DefaultEncoding)
	if !tokenizer.Exact() {
		log.Warn("tiktoken encoding unavailable, estimating tokens from words")
	}

	return usecase.NewIngestUseCase(
		b.store,
		convert.NewConverter(fetcher, log),
		chunker.NewHybridChunker(cfg.Ingest.MaxTokens, cfg.Ingest.MergePeers, tokenizer),
		chunker.NewTableRowChunker(cfg.Ingest.MaxTableRows),
		b.embedder,
		log,
	).WithExcludes(cfg.Ingest.Excludes)
}

func newFetcher() *web.HTTPFetcher {
	cfg := GetConfig()
	return web.NewHTTPFetcher(time.Duration(cfg.Web.FetchTimeoutSecs)*time.Second, cfg.Web.UserAgent)
}

func runIngestFile(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	b, err := openBackend(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer b.Close()

	uc := newIngestUseCase(b, newFetcher())
	req := usecase.IngestRequest{
		Path:        path,
		ProjectID:   ingestProject,
		Description: ingestDescription,
		Table:       tableOrDefault(ingestTable),
		FileType:    domain.FileType(ingestType),
	}

	fmt.Printf("Processing %s...\n", filepath.Base(path))
	var result *usecase.IngestResult
	if req.FileType.Tabular() {
		result, err = uc.IngestSpreadsheet(cmd.Context(), req)
	} else {
		result, err = uc.IngestFile(cmd.Context(), req)
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	printIngestResult(result, req.Table)
	return nil
}

func runIngestFolder(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	b, err := openBackend(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer b.Close()

	uc := newIngestUseCase(b, newFetcher())
	req := usecase.IngestRequest{
		Path:        dir,
		ProjectID:   ingestProject,
		Description: ingestDescription,
		Table:       tableOrDefault(ingestTable),
		Recursive:   ingestRecursive,
		Progress:    newProgress("Ingesting"),
	}

	fmt.Printf("Scanning %s...\n", dir)
	result, err := uc.IngestFolder(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	printIngestResult(result, req.Table)
	return nil
}

func runIngestWeb(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	log := GetLogger()
	target := args[0]
	if !web.IsHTTP(target) {
		return fmt.Errorf("not an http(s) url: %s", target)
	}

	project := ingestProject
	if project == "" {
		project = usecase.DefaultWebProjectID(target)
	}
	maxPages := cfg.Web.MaxPages
	if ingestMaxPages > 0 {
		maxPages = ingestMaxPages
	}

	b, err := openBackend(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer b.Close()

	fetcher := newFetcher()
	site := usecase.NewWebsiteUseCase(
		newIngestUseCase(b, fetcher),
		web.NewSitemapReader(fetcher, log),
		web.NewCrawler(fetcher.SameHostOnly(), maxPages, log),
		log,
	)
	req := usecase.IngestRequest{
		Path:        target,
		ProjectID:   project,
		Description: webDescription,
		Table:       tableOrDefault(ingestTable),
	}

	var result *usecase.IngestResult
	if ingestSite {
		fmt.Printf("Analyzing best method for %s...\n", target)
		req.Progress = newProgress("Pages")
		result, err = site.IngestSite(cmd.Context(), req)
	} else {
		fmt.Printf("Processing %s...\n", target)
		result, err = site.IngestWebPage(cmd.Context(), req)
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	fmt.Printf("Project id: %s\n", project)
	printIngestResult(result, req.Table)
	return nil
}

func printIngestResult(result *usecase.IngestResult, table string) {
	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Sources stored:   %d\n", result.Stored)
	fmt.Printf("  Duplicates:       %d (already indexed)\n", result.Duplicates)
	fmt.Printf("  Sources skipped:  %d\n", result.Skipped)
	fmt.Printf("  Chunks saved:     %d\n", result.Chunks)

	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	fmt.Printf("\nTable: %s\n", table)
}
