package tokenusage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxWriter writes Records to the token_usage table via a pgx connection
// pool. Grounded on the pgx/v5 connection idiom in
// codeready-toolchain-tarsy's pkg/events/listener.go, adapted from a single
// dedicated LISTEN connection to a pool suited for concurrent batch inserts.
type PgxWriter struct {
	pool *pgxpool.Pool
}

// NewPgxWriter connects a pool against connString (a standard libpq DSN or
// URL). Callers should Close the returned pool via writer.Pool().Close() on
// shutdown.
func NewPgxWriter(ctx context.Context, connString string) (*PgxWriter, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("tokenusage: connect: %w", err)
	}
	return &PgxWriter{pool: pool}, nil
}

// Pool exposes the underlying pool for lifecycle management.
func (w *PgxWriter) Pool() *pgxpool.Pool { return w.pool }

// WriteRecords bulk-inserts records in one round trip using pgx's
// CopyFrom, falling back to nothing on empty input.
func (w *PgxWriter) WriteRecords(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{
			r.ID, r.UserID, r.ProjectType, string(r.TokenType), r.ModelName,
			r.PromptTokens, r.CompletionTokens, r.TotalTokens, r.Cost, r.CreatedAt,
		}
	}

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"token_usage"},
		[]string{"id", "user_id", "project_type", "token_type", "model_name",
			"prompt_tokens", "completion_tokens", "total_tokens", "cost", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("tokenusage: copy from: %w", err)
	}
	return nil
}
