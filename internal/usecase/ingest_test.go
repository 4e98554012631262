package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperchat/internal/adapter/chunker"
	"paperchat/internal/adapter/fs"
	"paperchat/internal/adapter/memstore"
	"paperchat/internal/adapter/retriever"
	"paperchat/internal/domain"
	"paperchat/internal/port"
)

func newIngest(t *testing.T, text string, emb port.Embedder, store *memstore.MemoryStore, replace bool) *IngestUseCase {
	t.Helper()
	c, err := chunker.NewTextChunker(750, 200)
	require.NoError(t, err)
	return NewIngestUseCase(fakeExtractor{text: text}, c, emb, store, store, fs.NewWalker(nil, nil),
		IngestOptions{BatchSize: 2, ReplaceExisting: replace})
}

func TestIngest_IndexesChunksWithMetadata(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewMemoryStore()
	uc := newIngest(t, strings.Repeat("A", 2000), &keywordEmbedder{keywords: []string{"A"}}, store, true)

	var progress [][2]int
	res, err := uc.Ingest(ctx, IngestRequest{Path: "/papers/attention.pdf", PaperID: "p1", DisplayName: "Attention.pdf"},
		func(done, total int) { progress = append(progress, [2]int{done, total}) })
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.ChunksCreated, 3)
	n, _ := store.Count(ctx)
	assert.Equal(t, res.ChunksCreated, n)
	require.NotEmpty(t, progress)
	last := progress[len(progress)-1]
	assert.Equal(t, res.ChunksCreated, last[0])
	assert.Equal(t, res.ChunksCreated, last[1])

	results, err := store.Search(ctx, []float32{1, 0}, 100, map[string]string{domain.MetaPaperID: "p1"})
	require.NoError(t, err)
	require.Len(t, results, res.ChunksCreated)
	for _, r := range results {
		assert.Equal(t, "p1", r.Metadata[domain.MetaPaperID])
		assert.Equal(t, "attention.pdf", r.Metadata[domain.MetaFilename])
		assert.Equal(t, "Attention.pdf", r.Metadata[domain.MetaOriginalFilename])
		assert.Equal(t, "/papers/attention.pdf", r.Metadata[domain.MetaSource])
	}

	paper, err := store.GetPaper("p1")
	require.NoError(t, err)
	assert.Equal(t, res.ChunksCreated, paper.ChunkCount)
	assert.False(t, paper.IngestedAt.IsZero())
}

func TestIngest_GeneratesPaperID(t *testing.T) {
	store := memstore.NewMemoryStore()
	uc := newIngest(t, "Some text.", &keywordEmbedder{}, store, true)

	res, err := uc.Ingest(context.Background(), IngestRequest{Path: "/x/paper.pdf"}, nil)
	require.NoError(t, err)

	_, err = uuid.Parse(res.Paper.ID)
	assert.NoError(t, err)
	assert.Equal(t, "paper.pdf", res.Paper.OriginalFilename)
}

func TestIngest_ReplaceExisting(t *testing.T) {
	ctx := context.Background()
	text := strings.Repeat("word ", 400)

	store := memstore.NewMemoryStore()
	uc := newIngest(t, text, &keywordEmbedder{}, store, true)
	first, err := uc.Ingest(ctx, IngestRequest{Path: "a.pdf", PaperID: "p1"}, nil)
	require.NoError(t, err)
	second, err := uc.Ingest(ctx, IngestRequest{Path: "a.pdf", PaperID: "p1"}, nil)
	require.NoError(t, err)

	assert.Equal(t, first.ChunksCreated, second.RecordsReplaced)
	n, _ := store.Count(ctx)
	assert.Equal(t, first.ChunksCreated, n)

	appendOnly := memstore.NewMemoryStore()
	uc = newIngest(t, text, &keywordEmbedder{}, appendOnly, false)
	_, err = uc.Ingest(ctx, IngestRequest{Path: "a.pdf", PaperID: "p1"}, nil)
	require.NoError(t, err)
	_, err = uc.Ingest(ctx, IngestRequest{Path: "a.pdf", PaperID: "p1"}, nil)
	require.NoError(t, err)
	n, _ = appendOnly.Count(ctx)
	assert.Equal(t, 2*first.ChunksCreated, n)
}

func TestIngest_NoExtractableText(t *testing.T) {
	store := memstore.NewMemoryStore()
	uc := newIngest(t, " \n\n ", &keywordEmbedder{}, store, true)

	_, err := uc.Ingest(context.Background(), IngestRequest{Path: "scan.pdf", PaperID: "p1"}, nil)
	assert.True(t, errors.Is(err, domain.ErrNoExtractableText))
	_, err = store.GetPaper("p1")
	assert.True(t, errors.Is(err, domain.ErrPaperNotFound))
}

func TestIngest_ExtractionError(t *testing.T) {
	store := memstore.NewMemoryStore()
	c, err := chunker.NewTextChunker(750, 200)
	require.NoError(t, err)
	uc := NewIngestUseCase(fakeExtractor{err: domain.ErrExtraction}, c, &keywordEmbedder{}, store, store, nil, IngestOptions{})

	_, err = uc.Ingest(context.Background(), IngestRequest{Path: "bad.pdf"}, nil)
	assert.True(t, errors.Is(err, domain.ErrExtraction))
}

func TestIngest_EmbeddingFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := memstore.NewMemoryStore()
	emb := &keywordEmbedder{failOn: 2}
	uc := newIngest(t, strings.Repeat("B", 3000), emb, store, true)

	_, err := uc.Ingest(ctx, IngestRequest{Path: "b.pdf", PaperID: "p1"}, nil)
	require.Error(t, err)

	n, _ := store.Count(ctx)
	assert.Equal(t, 0, n)
	_, err = store.GetPaper("p1")
	assert.True(t, errors.Is(err, domain.ErrPaperNotFound))
}

func TestIngest_FailedReingestKeepsPreviousRecords(t *testing.T) {
	ctx := context.Background()
	text := strings.Repeat("transformer attention ", 100)
	store := memstore.NewMemoryStore()

	first, err := newIngest(t, text, &keywordEmbedder{keywords: []string{"attention"}}, store, true).
		Ingest(ctx, IngestRequest{Path: "a.pdf", PaperID: "p1"}, nil)
	require.NoError(t, err)

	failing := newIngest(t, text, &keywordEmbedder{keywords: []string{"attention"}, failOn: 1}, store, true)
	_, err = failing.Ingest(ctx, IngestRequest{Path: "a.pdf", PaperID: "p1"}, nil)
	require.Error(t, err)

	n, _ := store.Count(ctx)
	assert.Equal(t, first.ChunksCreated, n)
	paper, err := store.GetPaper("p1")
	require.NoError(t, err)
	assert.Equal(t, first.ChunksCreated, paper.ChunkCount)

	retrieve := NewRetrieveUseCase(retriever.NewSemanticRetriever(store, &keywordEmbedder{keywords: []string{"attention"}}), nil)
	res, err := retrieve.Retrieve(ctx, "attention", "p1", 3, 0.5)
	require.NoError(t, err)
	assert.True(t, res.Found)
}

// flakyStore fails every Upsert after the first failAfter calls.
type flakyStore struct {
	*memstore.MemoryStore
	failAfter int
	upserts   int
}

func (s *flakyStore) Upsert(ctx context.Context, items []port.VectorItem) error {
	s.upserts++
	if s.upserts > s.failAfter {
		return errors.New("disk full")
	}
	return s.MemoryStore.Upsert(ctx, items)
}

func TestIngest_StoreFailureAfterReplaceUnregistersPaper(t *testing.T) {
	ctx := context.Background()
	text := strings.Repeat("C", 3000)
	mem := memstore.NewMemoryStore()

	_, err := newIngest(t, text, &keywordEmbedder{}, mem, true).
		Ingest(ctx, IngestRequest{Path: "c.pdf", PaperID: "p1"}, nil)
	require.NoError(t, err)

	store := &flakyStore{MemoryStore: mem, failAfter: 1}
	c, err := chunker.NewTextChunker(750, 200)
	require.NoError(t, err)
	uc := NewIngestUseCase(fakeExtractor{text: text}, c, &keywordEmbedder{}, store, mem, nil,
		IngestOptions{BatchSize: 2, ReplaceExisting: true})

	_, err = uc.Ingest(ctx, IngestRequest{Path: "c.pdf", PaperID: "p1"}, nil)
	require.Error(t, err)

	n, _ := mem.Count(ctx)
	assert.Equal(t, 2, n, "first batch stays written")
	_, err = mem.GetPaper("p1")
	assert.True(t, errors.Is(err, domain.ErrPaperNotFound))
}

func TestIngestDir(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.pdf", "b.pdf", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0644))
	}

	store := memstore.NewMemoryStore()
	uc := newIngest(t, "Paper body text.", &keywordEmbedder{}, store, true)

	var seen []string
	res, err := uc.IngestDir(context.Background(), root, func(file string, done, total int) {
		seen = append(seen, filepath.Base(file))
		assert.Equal(t, 2, total)
	})
	require.NoError(t, err)
	assert.Len(t, res.Ingested, 2)
	assert.Empty(t, res.Errors)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, seen)
	assert.NotEqual(t, res.Ingested[0].Paper.ID, res.Ingested[1].Paper.ID)

	papers, err := store.ListPapers()
	require.NoError(t, err)
	assert.Len(t, papers, 2)
}
