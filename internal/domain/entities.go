package domain

import "time"

// Paper is a single ingested document.
type Paper struct {
	ID               string    `json:"paper_id"`
	OriginalFilename string    `json:"original_filename"`
	SourcePath       string    `json:"source"`
	IngestedAt       time.Time `json:"ingested_at"`
	ChunkCount       int       `json:"chunk_count"`
}

// Chunk is a contiguous span of extracted paper text.
type Chunk struct {
	ID               string
	PaperID          string
	Filename         string
	OriginalFilename string
	SourcePath       string
	Index            int
	Start            int // rune offset, inclusive
	End              int // rune offset, exclusive
	Text             string
}

// Metadata keys stored alongside every indexed vector record.
const (
	MetaPaperID          = "paper_id"
	MetaFilename         = "filename"
	MetaOriginalFilename = "original_filename"
	MetaSource           = "source"
	MetaChunkID          = "chunk_id"
	MetaChunkIndex       = "chunk_index"
)

type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// QueryResult is the outcome of one retrieval. Found is false when nothing
// met the relevance threshold; Context is then empty and must not be used.
type QueryResult struct {
	Query   string        `json:"query"`
	Chunks  []ScoredChunk `json:"-"`
	Context string        `json:"context,omitempty"`
	Found   bool          `json:"found"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
