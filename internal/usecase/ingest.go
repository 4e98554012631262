package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"paperchat/internal/adapter/retriever"
	"paperchat/internal/domain"
	"paperchat/internal/port"
)

// IngestUseCase turns a PDF into indexed vector records for one paper.
type IngestUseCase struct {
	extractor       port.TextExtractor
	chunker         port.Chunker
	embedder        port.Embedder
	vectors         port.VectorStore
	papers          port.PaperStore
	walker          port.FileWalker
	batchSize       int
	replaceExisting bool
	logger          *slog.Logger
	now             func() time.Time
}

// IngestOptions tunes an IngestUseCase.
type IngestOptions struct {
	BatchSize       int
	ReplaceExisting bool
	Logger          *slog.Logger
}

func NewIngestUseCase(
	extractor port.TextExtractor,
	chunker port.Chunker,
	embedder port.Embedder,
	vectors port.VectorStore,
	papers port.PaperStore,
	walker port.FileWalker,
	opts IngestOptions,
) *IngestUseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &IngestUseCase{
		extractor:       extractor,
		chunker:         chunker,
		embedder:        embedder,
		vectors:         vectors,
		papers:          papers,
		walker:          walker,
		batchSize:       opts.BatchSize,
		replaceExisting: opts.ReplaceExisting,
		logger:          opts.Logger,
		now:             time.Now,
	}
}

type IngestRequest struct {
	Path        string
	PaperID     string // generated when empty
	DisplayName string // defaults to the base name of Path
}

type IngestResult struct {
	Paper           domain.Paper
	ChunksCreated   int
	RecordsReplaced int
	Duration        time.Duration
}

// ProgressFunc reports embedded chunks so far out of total.
type ProgressFunc func(done, total int)

// Ingest extracts, chunks, embeds and stores one paper. Previous records of
// the paper are only removed once every chunk has been embedded. A store
// failure part way through leaves the batches already written in place.
func (u *IngestUseCase) Ingest(ctx context.Context, req IngestRequest, progress ProgressFunc) (*IngestResult, error) {
	start := u.now()

	paper := domain.Paper{
		ID:               req.PaperID,
		OriginalFilename: req.DisplayName,
		SourcePath:       req.Path,
	}
	if paper.ID == "" {
		paper.ID = uuid.NewString()
	}
	if paper.OriginalFilename == "" {
		paper.OriginalFilename = filepath.Base(req.Path)
	}

	log := u.logger.With("paper_id", paper.ID, "file", paper.OriginalFilename)
	log.Info("ingesting paper", "path", req.Path)

	text, err := u.extractor.Extract(req.Path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoExtractableText, req.Path)
	}

	chunks, err := u.chunker.Chunk(paper, text)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk text: %w", err)
	}
	log.Debug("chunked paper", "chars", len([]rune(text)), "chunks", len(chunks))

	items, err := u.embedChunks(ctx, chunks, progress)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{}
	if u.replaceExisting {
		removed, err := u.vectors.DeleteByFilter(ctx, map[string]string{domain.MetaPaperID: paper.ID})
		if err != nil {
			return nil, fmt.Errorf("failed to remove previous records: %w", err)
		}
		if removed > 0 {
			log.Info("replaced previous records", "removed", removed)
		}
		result.RecordsReplaced = removed
	}

	written := 0
	for i := 0; i < len(items); i += u.batchSize {
		end := i + u.batchSize
		if end > len(items) {
			end = len(items)
		}
		if err := u.vectors.Upsert(ctx, items[i:end]); err != nil {
			log.Warn("ingestion failed after partial write", "records_written", written)
			u.dropRegistration(log, paper.ID, result.RecordsReplaced)
			return nil, fmt.Errorf("failed to store vectors: %w", err)
		}
		written = end
	}

	paper.IngestedAt = u.now().UTC()
	paper.ChunkCount = len(chunks)
	if err := u.papers.PutPaper(paper); err != nil {
		return nil, fmt.Errorf("failed to register paper: %w", err)
	}

	result.Paper = paper
	result.ChunksCreated = len(chunks)
	result.Duration = u.now().Sub(start)
	log.Info("paper ingested", "chunks", len(chunks), "duration", result.Duration)

	return result, nil
}

// embedChunks embeds every chunk in batches before anything is written, so an
// embedding failure leaves the index untouched.
func (u *IngestUseCase) embedChunks(ctx context.Context, chunks []domain.Chunk, progress ProgressFunc) ([]port.VectorItem, error) {
	items := make([]port.VectorItem, 0, len(chunks))
	for i := 0; i < len(chunks); i += u.batchSize {
		end := i + u.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Text
		}
		vectors, err := u.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks: %w", err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
		}
		for j, c := range batch {
			items = append(items, port.VectorItem{
				Text:     c.Text,
				Vector:   vectors[j],
				Metadata: retriever.ChunkMetadata(c),
			})
		}
		if progress != nil {
			progress(end, len(chunks))
		}
	}
	return items, nil
}

// dropRegistration unregisters a paper whose previous records were removed
// by a write that then failed, so it is not listed with chunks it no longer has.
func (u *IngestUseCase) dropRegistration(log *slog.Logger, paperID string, replaced int) {
	if replaced == 0 {
		return
	}
	if err := u.papers.DeletePaper(paperID); err != nil && !errors.Is(err, domain.ErrPaperNotFound) {
		log.Warn("failed to unregister paper", "error", err)
	}
}

// DirResult summarizes a directory ingestion.
type DirResult struct {
	Ingested []IngestResult
	Errors   []string
}

// IngestDir ingests every file the walker yields under root, each under a
// fresh paper id. Per-file failures are collected rather than aborting.
func (u *IngestUseCase) IngestDir(ctx context.Context, root string, progress func(file string, done, total int)) (*DirResult, error) {
	if u.walker == nil {
		return nil, fmt.Errorf("directory ingestion not configured")
	}

	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	result := &DirResult{}
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		r, err := u.Ingest(ctx, IngestRequest{Path: file.Path}, nil)
		if progress != nil {
			progress(file.Path, i+1, len(files))
		}
		if err != nil {
			u.logger.Error("failed to ingest file", "path", file.Path, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("failed to ingest %s: %v", file.Path, err))
			continue
		}
		result.Ingested = append(result.Ingested, *r)
	}

	return result, nil
}
