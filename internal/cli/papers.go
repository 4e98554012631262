package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"paperchat/internal/domain"
)

var papersJSON bool

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "List ingested papers",
	RunE:  runPapers,
}

var papersRmCmd = &cobra.Command{
	Use:   "rm <paper-id>",
	Short: "Remove a paper and its indexed passages",
	Args:  cobra.ExactArgs(1),
	RunE:  runPapersRm,
}

func init() {
	rootCmd.AddCommand(papersCmd)
	papersCmd.AddCommand(papersRmCmd)
	papersCmd.Flags().BoolVar(&papersJSON, "json", false, "output as JSON")
}

func runPapers(cmd *cobra.Command, args []string) error {
	if err := requireIndex(); err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), GetConfig(), GetRootDir())
	if err != nil {
		return err
	}
	defer a.Close()

	papers, err := a.papers.ListPapers()
	if err != nil {
		return fmt.Errorf("failed to list papers: %w", err)
	}

	if papersJSON {
		if papers == nil {
			papers = []domain.Paper{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(papers)
	}

	if len(papers) == 0 {
		fmt.Println("No papers ingested yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCHUNKS\tINGESTED")
	for _, p := range papers {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", p.ID, p.OriginalFilename, p.ChunkCount, p.IngestedAt.Local().Format("2006-01-02 15:04"))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	records, err := a.vectors.Count(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to count passages: %w", err)
	}
	fmt.Printf("\n%d papers, %d passages indexed\n", len(papers), records)
	return nil
}

func runPapersRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if err := requireIndex(); err != nil {
		return err
	}

	a, err := openApp(ctx, GetConfig(), GetRootDir())
	if err != nil {
		return err
	}
	defer a.Close()

	paperID := args[0]
	if _, err := a.papers.GetPaper(paperID); err != nil {
		return err
	}
	removed, err := a.vectors.DeleteByFilter(ctx, map[string]string{domain.MetaPaperID: paperID})
	if err != nil {
		return fmt.Errorf("failed to remove passages: %w", err)
	}
	if err := a.papers.DeletePaper(paperID); err != nil {
		return err
	}

	fmt.Printf("Removed %s (%d passages)\n", paperID, removed)
	return nil
}
