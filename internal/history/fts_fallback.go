//go:build !sqlite_fts5

package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starford/refgraph/internal/linkgraph"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on the findings table.
	return nil
}

func ftsInsert(_ context.Context, _ *sql.Tx, _ string, _ int, _ linkgraph.StructuralError) error {
	return nil
}

func ftsPrune(_ context.Context, _ *sql.Tx, _ string, _ int) error { return nil }

// SearchFindings performs a LIKE-based search (fallback when FTS5 is not compiled in).
func (db *DB) SearchFindings(ctx context.Context, query string, limit int) ([]FindingHit, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT f.run_id, f.kind, f.source, f.path, f.line, f.detail
		FROM findings f
		JOIN runs r ON r.id = f.run_id
		WHERE f.source LIKE ? OR f.detail LIKE ?
		ORDER BY r.started_at DESC, f.seq
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("history: search findings: %w", err)
	}
	defer rows.Close()
	return scanHits(rows)
}
