package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"paperchat/internal/usecase"
)

var (
	ingestPaperID string
	ingestName    string
	ingestRebuild bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.pdf | directory>",
	Short: "Extract, chunk and index a paper",
	Long: `Ingest a PDF into the vector index under a paper id. A directory ingests every
file matching ingest.includes, each under a fresh id.

The index is stored in .paperchat/index.db within the root directory.

Examples:
  paperchat ingest attention.pdf
  paperchat ingest attention.pdf --paper-id attn --name "Attention Is All You Need"
  paperchat ingest ./papers`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestPaperID, "paper-id", "", "paper id (default: random UUID)")
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "display name (default: file name)")
	ingestCmd.Flags().BoolVar(&ingestRebuild, "rebuild", false, "clear the index before ingesting (required after changing embedding model)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	if ingestRebuild {
		if err := clearIndex(); err != nil {
			return err
		}
	}

	a, err := openApp(ctx, cfg, GetRootDir())
	if err != nil {
		return err
	}
	defer a.Close()

	ingestUC, err := a.ingestUseCase()
	if err != nil {
		return err
	}

	if info.IsDir() {
		if ingestPaperID != "" || ingestName != "" {
			return fmt.Errorf("--paper-id and --name apply to a single file")
		}
		fmt.Printf("Scanning %s...\n", path)

		var bar *progressbar.ProgressBar
		res, err := ingestUC.IngestDir(ctx, path, func(file string, done, total int) {
			if bar == nil {
				bar = newBar(total, "Ingesting")
			}
			_ = bar.Set(done)
		})
		if err != nil {
			return fmt.Errorf("ingestion failed: %w", err)
		}

		fmt.Printf("\nIngestion complete:\n")
		for _, r := range res.Ingested {
			fmt.Printf("  %s  %s (%d chunks)\n", r.Paper.ID, r.Paper.OriginalFilename, r.ChunksCreated)
		}
		if len(res.Errors) > 0 {
			fmt.Printf("\nWarnings:\n")
			for _, e := range res.Errors {
				fmt.Printf("  - %s\n", e)
			}
		}
		return nil
	}

	var bar *progressbar.ProgressBar
	started := time.Now()
	res, err := ingestUC.Ingest(ctx, usecase.IngestRequest{
		Path:        path,
		PaperID:     ingestPaperID,
		DisplayName: ingestName,
	}, func(done, total int) {
		if bar == nil {
			bar = newBar(total, "Embedding")
		}
		_ = bar.Set(done)
		if done > 0 && done < total {
			rate := float64(done) / time.Since(started).Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-done)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]Embedding[reset] ETA: %s", formatDuration(eta)))
			}
		}
	})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Paper id:       %s\n", res.Paper.ID)
	fmt.Printf("  Name:           %s\n", res.Paper.OriginalFilename)
	fmt.Printf("  Chunks created: %d\n", res.ChunksCreated)
	if res.RecordsReplaced > 0 {
		fmt.Printf("  Replaced:       %d previous records\n", res.RecordsReplaced)
	}
	fmt.Printf("  Took:           %s\n", formatDuration(res.Duration))
	return nil
}

func newBar(total int, label string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]"+label+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}
