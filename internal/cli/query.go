package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	queryPaperID   string
	queryText      string
	queryTopK      int
	queryThreshold float64
	queryJSON      bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Show the passages of a paper retrieved for a question",
	Long: `Retrieve the top-k passages of one paper for a question, drop those below the
relevance threshold, and print them with their cosine similarity scores.

Examples:
  paperchat query -p <paper-id> -q "training objective"
  paperchat query -p <paper-id> -q "datasets" --top-k 10 --threshold 0.3 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryPaperID, "paper", "p", "", "paper id (required)")
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "question (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of candidates (default from config)")
	queryCmd.Flags().Float64VarP(&queryThreshold, "threshold", "t", -2, "minimum score (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("paper")
	queryCmd.MarkFlagRequired("query")
}

type queryOutput struct {
	PaperID string        `json:"paper_id"`
	Query   string        `json:"query"`
	Found   bool          `json:"found"`
	Chunks  []chunkOutput `json:"chunks"`
	Context string        `json:"context,omitempty"`
}

type chunkOutput struct {
	Index int     `json:"chunk_index"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	if err := requireIndex(); err != nil {
		return err
	}

	a, err := openApp(ctx, cfg, GetRootDir())
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.papers.GetPaper(queryPaperID); err != nil {
		return err
	}

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}
	threshold := cfg.Retrieve.Threshold
	if cmd.Flags().Changed("threshold") {
		threshold = queryThreshold
	}

	res, err := a.retrieveUseCase().Retrieve(ctx, queryText, queryPaperID, topK, threshold)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	out := queryOutput{
		PaperID: queryPaperID,
		Query:   res.Query,
		Found:   res.Found,
		Context: res.Context,
		Chunks:  make([]chunkOutput, 0, len(res.Chunks)),
	}
	for _, c := range res.Chunks {
		out.Chunks = append(out.Chunks, chunkOutput{Index: c.Chunk.Index, Score: c.Score, Text: c.Chunk.Text})
	}

	if queryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if !res.Found {
		fmt.Printf("No passages scored at least %.2f.\n", threshold)
		return nil
	}

	fmt.Printf("Found %d passages:\n\n", len(out.Chunks))
	for i, c := range out.Chunks {
		fmt.Printf("[%d] chunk %d (score: %.4f)\n", i+1, c.Index, c.Score)
		fmt.Println(strings.Repeat("-", 60))
		fmt.Println(c.Text)
		fmt.Println()
	}
	return nil
}
