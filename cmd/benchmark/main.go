package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"paperchat/config"
	"paperchat/internal/cli"
	"paperchat/internal/usecase"
)

func main() {
	indexPath := flag.String("index", ".", "Directory holding paperchat.yaml and the index")
	paperID := flag.String("p", "", "Paper id to search")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 10, "Number of candidates")
	sweep := flag.String("thresholds", "0.2,0.3,0.4,0.5,0.6,0.7,0.8", "Comma-separated thresholds to evaluate")
	flag.Parse()

	if *query == "" || *paperID == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -index . -p <paper-id> -q \"query\"")
		fmt.Println("\nReports:")
		fmt.Println("  1. Candidate similarity scores for the query")
		fmt.Println("  2. How many passages survive each relevance threshold")
		os.Exit(1)
	}

	thresholds, err := parseThresholds(*sweep)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid thresholds: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*indexPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *indexPath, *paperID, *query, *topK, thresholds); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run keeps exits out of the body so the index and any Postgres pool are closed.
func run(cfg *config.Config, indexPath, paperID, query string, topK int, thresholds []float64) error {
	ctx := context.Background()
	app, err := cli.OpenIndex(ctx, cfg, indexPath)
	if err != nil {
		return fmt.Errorf("error opening index: %w", err)
	}
	defer app.Close()

	embedder, vectorStore := app.Embedder(), app.Vectors()
	count, err := vectorStore.Count(ctx)
	if err != nil {
		return fmt.Errorf("error counting records: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("no records - run 'paperchat ingest' first")
	}

	fmt.Println("RETRIEVAL THRESHOLD BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Records indexed: %d\n", count)
	fmt.Printf("Model: %s (%s)\n", embedder.ModelName(), cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", embedder.Dimension())
	fmt.Printf("Paper: %s\n\n", paperID)

	fmt.Printf("Query: \"%s\"\n", query)
	fmt.Println(strings.Repeat("-", 70))

	start := time.Now()
	results, err := app.Retriever().Search(ctx, query, paperID, topK)
	if err != nil {
		return fmt.Errorf("search error: %w", err)
	}
	fmt.Printf("Retrieved %d candidates in %s\n\n", len(results), time.Since(start).Round(time.Millisecond))

	if len(results) == 0 {
		fmt.Println("No records for this paper.")
		return nil
	}

	for i, r := range results {
		preview := []rune(strings.ReplaceAll(r.Chunk.Text, "\n", " "))
		if len(preview) > 150 {
			preview = append(preview[:150], []rune("...")...)
		}
		fmt.Printf("%d. [%s %.3f] chunk %d\n", i+1, rating(r.Score), r.Score, r.Chunk.Index)
		fmt.Printf("   %s\n\n", string(preview))
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("THRESHOLD SWEEP:")
	fmt.Printf("  %-10s %-10s %-12s\n", "threshold", "passages", "context chars")
	retrieve := usecase.NewRetrieveUseCase(app.Retriever(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	for _, t := range thresholds {
		res, err := retrieve.Retrieve(ctx, query, paperID, topK, t)
		if err != nil {
			return fmt.Errorf("retrieve error at %.2f: %w", t, err)
		}
		fmt.Printf("  %-10.2f %-10d %-12d\n", t, len(res.Chunks), len([]rune(res.Context)))
	}
	return nil
}

func rating(similarity float64) string {
	switch {
	case similarity > 0.7:
		return "HIGH"
	case similarity > 0.5:
		return "GOOD"
	case similarity > 0.3:
		return "OK"
	default:
		return "LOW"
	}
}

func parseThresholds(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
