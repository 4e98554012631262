package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"paperchat/internal/domain"
	"paperchat/internal/port"
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PgVectorStore implements VectorStore on a Postgres table with a pgvector
// column. Scores are 1 - cosine distance, matching BoltVectorStore.
type PgVectorStore struct {
	pool      *pgxpool.Pool
	table     string
	dimension int
}

func NewPgVectorStore(ctx context.Context, dsn, table string, dimension int) (*PgVectorStore, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("%w: invalid table name %q", domain.ErrInvalidConfig, table)
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: parse postgres config: %v", domain.ErrIndexUnavailable, err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: connect postgres: %v", domain.ErrIndexUnavailable, err)
	}

	s := &PgVectorStore{pool: pool, table: table, dimension: dimension}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PgVectorStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id BIGSERIAL PRIMARY KEY,
    paper_id TEXT NOT NULL,
    text TEXT NOT NULL,
    metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
    embedding vector(%d) NOT NULL
)`, s.table, s.dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_paper_id_idx ON %s (paper_id)`, s.table, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_metadata_idx ON %s USING GIN (metadata jsonb_path_ops)`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: migrate %s: %v", domain.ErrIndexUnavailable, s.table, err)
		}
	}
	return nil
}

func (s *PgVectorStore) Upsert(ctx context.Context, items []port.VectorItem) error {
	for _, item := range items {
		if len(item.Vector) != s.dimension {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(item.Vector))
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	insert := fmt.Sprintf(`INSERT INTO %s (paper_id, text, metadata, embedding) VALUES ($1, $2, $3::jsonb, $4)`, s.table)
	for _, item := range items {
		meta, err := json.Marshal(item.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		_, err = tx.Exec(ctx, insert,
			item.Metadata[domain.MetaPaperID],
			sanitizeText(item.Text),
			string(meta),
			pgvector.NewVector(item.Vector),
		)
		if err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PgVectorStore) Search(ctx context.Context, query []float32, k int, filter map[string]string) ([]port.VectorResult, error) {
	if len(query) != s.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", s.dimension, len(query))
	}
	if k <= 0 {
		return nil, nil
	}
	where, args, err := filterClause(filter, 3)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf(`
SELECT id, text, metadata, 1 - (embedding <=> $1) AS score
FROM %s
WHERE %s
ORDER BY embedding <=> $1, id
LIMIT $2`, s.table, where)

	args = append([]any{pgvector.NewVector(query), k}, args...)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query vector search: %w", err)
	}
	defer rows.Close()

	results := make([]port.VectorResult, 0, k)
	for rows.Next() {
		var (
			id   int64
			r    port.VectorResult
			meta []byte
		)
		if err := rows.Scan(&id, &r.Text, &meta, &r.Score); err != nil {
			return nil, fmt.Errorf("scan chunk result: %w", err)
		}
		if err := json.Unmarshal(meta, &r.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		r.ID = strconv.FormatInt(id, 10)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return results, nil
}

func (s *PgVectorStore) DeleteByFilter(ctx context.Context, filter map[string]string) (int, error) {
	if len(filter) == 0 {
		return 0, fmt.Errorf("delete requires a non-empty filter")
	}
	where, args, err := filterClause(filter, 1)
	if err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s`, s.table, where), args...)
	if err != nil {
		return 0, fmt.Errorf("delete chunks: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PgVectorStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func (s *PgVectorStore) Close() error {
	s.pool.Close()
	return nil
}

// filterClause turns a metadata filter into a WHERE clause whose
// placeholders start at $first. paper_id is matched on its indexed column;
// other keys go through JSONB containment.
func filterClause(filter map[string]string, first int) (string, []any, error) {
	var (
		conds []string
		args  []any
		rest  = make(map[string]string, len(filter))
	)
	for k, v := range filter {
		if k == domain.MetaPaperID {
			args = append(args, v)
			conds = append(conds, fmt.Sprintf("paper_id = $%d", first+len(args)-1))
			continue
		}
		rest[k] = v
	}
	if len(rest) > 0 {
		data, err := json.Marshal(rest)
		if err != nil {
			return "", nil, fmt.Errorf("marshal filter: %w", err)
		}
		args = append(args, string(data))
		conds = append(conds, fmt.Sprintf("metadata @> $%d::jsonb", first+len(args)-1))
	}
	if len(conds) == 0 {
		return "TRUE", nil, nil
	}
	return strings.Join(conds, " AND "), args, nil
}
