//go:build sqlite_fts5

package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starford/refgraph/internal/linkgraph"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS findings_fts USING fts5(
			run_id UNINDEXED,
			seq UNINDEXED,
			source,
			detail,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsInsert(ctx context.Context, tx *sql.Tx, runID string, seq int, e linkgraph.StructuralError) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO findings_fts (run_id, seq, source, detail) VALUES (?, ?, ?, ?)`,
		runID, seq, e.Source, e.Detail)
	if err != nil {
		return fmt.Errorf("history: insert fts: %w", err)
	}
	return nil
}

func ftsPrune(ctx context.Context, tx *sql.Tx, stale string, keep int) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM findings_fts WHERE run_id IN (`+stale+`)`, keep); err != nil {
		return fmt.Errorf("history: prune fts: %w", err)
	}
	return nil
}

// SearchFindings performs an FTS5 search over finding sources and details.
func (db *DB) SearchFindings(ctx context.Context, query string, limit int) ([]FindingHit, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT f.run_id, f.kind, f.source, f.path, f.line, f.detail
		FROM findings_fts
		JOIN findings f ON f.run_id = findings_fts.run_id AND f.seq = findings_fts.seq
		WHERE findings_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("history: search findings: %w", err)
	}
	defer rows.Close()
	return scanHits(rows)
}
