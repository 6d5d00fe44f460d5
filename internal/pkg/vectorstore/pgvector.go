package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
)

// PgStore is the pgvector-backed Store. The table name carries the embedding
// dimensionality so that switching embedding models never mixes vector
// spaces.
type PgStore struct {
	pool  *pgxpool.Pool
	table string
	dim   int
}

// NewPgStore connects to Postgres and ensures the chunk table for the given
// dimensionality exists.
func NewPgStore(ctx context.Context, dsn string, dim int) (*PgStore, error) {
	if dim < 1 {
		return nil, fmt.Errorf("vectorstore: invalid dimensionality %d", dim)
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s := &PgStore{pool: pool, table: fmt.Sprintf("chunks_d%d", dim), dim: dim}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PgStore) ensureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS %[1]s (
		id TEXT PRIMARY KEY,
		doc_id TEXT NOT NULL,
		modality TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		metadata JSONB NOT NULL DEFAULT '{}',
		embedding vector(%[2]d)
	);

	CREATE INDEX IF NOT EXISTS idx_%[1]s_doc_id ON %[1]s(doc_id);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_modality ON %[1]s(modality);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_embedding ON %[1]s
		USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
	`, s.table, s.dim)
	_, err := s.pool.Exec(ctx, query)
	return err
}

// Upsert writes records in one batch; existing ids are overwritten.
func (s *PgStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := fmt.Sprintf(`
	INSERT INTO %s (id, doc_id, modality, content, metadata, embedding)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE SET
		doc_id = EXCLUDED.doc_id,
		modality = EXCLUDED.modality,
		content = EXCLUDED.content,
		metadata = EXCLUDED.metadata,
		embedding = EXCLUDED.embedding
	`, s.table)

	for _, rec := range records {
		if len(rec.Embedding) != s.dim {
			return fmt.Errorf("%w: got %d, store is provisioned for %d",
				ErrDimensionMismatch, len(rec.Embedding), s.dim)
		}
		metaJSON, err := json.Marshal(rec.Meta)
		if err != nil {
			return fmt.Errorf("marshal chunk metadata %q: %w", rec.ID, err)
		}
		batch.Queue(query,
			rec.ID,
			rec.Meta.DocID,
			string(rec.Meta.Modality),
			rec.Text,
			metaJSON,
			pgvector.NewVector(rec.Embedding),
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range records {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// Get returns matching records ordered by doc and original chunk index.
func (s *PgStore) Get(ctx context.Context, filter Filter) ([]Record, error) {
	where, args := translateFilter(filter)
	query := fmt.Sprintf(`
	SELECT id, content, metadata, embedding FROM %s %s
	ORDER BY doc_id, (metadata->>'chunk_index')::int
	`, s.table, where)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec      Record
			metaJSON []byte
			vec      pgvector.Vector
		)
		if err := rows.Scan(&rec.ID, &rec.Text, &metaJSON, &vec); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(metaJSON, &rec.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal chunk metadata %q: %w", rec.ID, err)
		}
		rec.Embedding = vec.Slice()
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Query returns the topK nearest matches by cosine distance.
func (s *PgStore) Query(ctx context.Context, embedding []float32, topK int, filter Filter) ([]Match, error) {
	if len(embedding) != s.dim {
		return nil, fmt.Errorf("%w: got %d, store is provisioned for %d",
			ErrDimensionMismatch, len(embedding), s.dim)
	}
	if topK < 1 {
		topK = 1
	}

	where, args := translateFilter(filter)
	vecArg := len(args) + 1
	limitArg := len(args) + 2
	query := fmt.Sprintf(`
	SELECT id, content, metadata, embedding <=> $%d AS distance
	FROM %s %s
	ORDER BY distance
	LIMIT $%d
	`, vecArg, s.table, where, limitArg)
	args = append(args, pgvector.NewVector(embedding), topK)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m        Match
			metaJSON []byte
		)
		if err := rows.Scan(&m.ID, &m.Text, &metaJSON, &m.Distance); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(metaJSON, &m.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal chunk metadata %q: %w", m.ID, err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Delete removes records by id.
func (s *PgStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", s.table), ids)
	return err
}

// DeleteWhere removes every record matching the filter.
func (s *PgStore) DeleteWhere(ctx context.Context, filter Filter) error {
	where, args := translateFilter(filter)
	if where == "" {
		return fmt.Errorf("vectorstore: refusing to delete without a filter")
	}
	_, err := s.pool.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s %s", s.table, where), args...)
	return err
}

// Close releases the connection pool.
func (s *PgStore) Close() { s.pool.Close() }

// translateFilter renders a Filter into a WHERE clause with positional args.
func translateFilter(f Filter) (string, []interface{}) {
	clause, args := filterClause(f, nil)
	if clause == "" {
		return "", args
	}
	return "WHERE " + clause, args
}

func filterClause(f Filter, args []interface{}) (string, []interface{}) {
	switch filter := f.(type) {
	case nil:
		return "", args
	case Equals:
		args = append(args, filter.Value)
		return fmt.Sprintf("%s = $%d", columnFor(filter.Field), len(args)), args
	case In:
		args = append(args, filter.Values)
		return fmt.Sprintf("%s = ANY($%d)", columnFor(filter.Field), len(args)), args
	case And:
		var parts []string
		for _, sub := range filter.Filters {
			var clause string
			clause, args = filterClause(sub, args)
			if clause != "" {
				parts = append(parts, clause)
			}
		}
		return strings.Join(parts, " AND "), args
	default:
		return "", args
	}
}

// columnFor maps well-known fields to real columns; anything else reads the
// metadata JSON.
func columnFor(field string) string {
	switch field {
	case FieldDocID, FieldModality:
		return field
	default:
		return fmt.Sprintf("metadata->>'%s'", field)
	}
}
