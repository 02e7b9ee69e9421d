package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ragdesk/internal/domain"
	"ragdesk/internal/usecase"
)

var (
	searchText  string
	searchTopK  int
	searchJSON  bool
	searchTable string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search a vector table",
	Long: `Search for the chunks closest to a query.

Examples:
  ragdesk search -q "password reset"
  ragdesk search -q "checkout" -k 5 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchText, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.Flags().StringVar(&searchTable, "table", "", "table name (default from config)")
	searchCmd.MarkFlagRequired("query")
}

type searchResult struct {
	Filename  string  `json:"filename"`
	ProjectID string  `json:"project_id"`
	FileType  string  `json:"file_type"`
	Score     float64 `json:"score"`
	Text      string  `json:"text"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	b, err := openBackend(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer b.Close()

	topK := cfg.Assistant.ContextResults
	if searchTopK > 0 {
		topK = searchTopK
	}

	table := tableOrDefault(searchTable)
	hits, err := usecase.NewRetrieveUseCase(b.store, table, GetLogger()).Search(cmd.Context(), searchText, topK)
	if errors.Is(err, domain.ErrTableNotFound) {
		return fmt.Errorf("table %q does not exist. Run 'ragdesk ingest' first", table)
	}
	if err != nil {
		return err
	}

	results := make([]searchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, searchResult{
			Filename:  h.Record.Metadata.Filename,
			ProjectID: h.Record.Metadata.ProjectID,
			FileType:  h.Record.Metadata.FileType,
			Score:     h.Score,
			Text:      h.Record.Text,
		})
	}

	if searchJSON {
		return writeJSON(cmd.OutOrStdout(), results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), searchText)
	for i, r := range results {
		fmt.Printf("--- [%d] %s [%s, %s] (score: %.3f) ---\n", i+1, r.Filename, r.ProjectID, r.FileType, r.Score)
		text := r.Text
		if len(text) > 500 {
			text = text[:500] + "..."
		}
		fmt.Println(text)
		fmt.Println()
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}
