package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/refgraph/internal/apperr"
	"github.com/starford/refgraph/internal/audit"
	"github.com/starford/refgraph/internal/linkgraph"
)

// Run is the stored summary of one audit.
type Run struct {
	ID          string            `json:"id"`
	StartedAt   time.Time         `json:"started_at"`
	Fingerprint string            `json:"fingerprint"`
	Passed      bool              `json:"passed"`
	Documents   int               `json:"documents"`
	Declaring   int               `json:"declaring"`
	Edges       int               `json:"edges"`
	Errors      int               `json:"errors"`
	Density     float64           `json:"density"`
	Metrics     linkgraph.Metrics `json:"metrics"`
	Verdict     audit.Verdict     `json:"verdict"`
}

const runColumns = `id, started_at, fingerprint, passed, documents, declaring, edges, errors, density, metrics, verdict`

// SaveRun stores a report summary and its findings within a transaction.
func (db *DB) SaveRun(ctx context.Context, r *audit.Report, v audit.Verdict, at time.Time) (*Run, error) {
	run := &Run{
		ID:          uuid.NewString(),
		StartedAt:   at.UTC(),
		Fingerprint: r.Fingerprint,
		Passed:      v.Passed,
		Documents:   r.Metrics.TotalDocuments,
		Declaring:   r.Metrics.DeclaringDocuments,
		Edges:       r.Metrics.EdgeCount,
		Errors:      len(r.Errors),
		Density:     r.Metrics.Density,
		Metrics:     r.Metrics,
		Verdict:     v,
	}
	metricsJSON, err := json.Marshal(run.Metrics)
	if err != nil {
		return nil, fmt.Errorf("history: encode metrics: %w", err)
	}
	verdictJSON, err := json.Marshal(run.Verdict)
	if err != nil {
		return nil, fmt.Errorf("history: encode verdict: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.ExecContext(ctx, `INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.Fingerprint, run.Passed, run.Documents, run.Declaring,
		run.Edges, run.Errors, run.Density, string(metricsJSON), string(verdictJSON))
	if err != nil {
		return nil, fmt.Errorf("history: insert run: %w", err)
	}

	if len(r.Errors) > 0 {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO findings (run_id, seq, kind, source, path, line, detail) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return nil, fmt.Errorf("history: prepare finding insert: %w", err)
		}
		defer stmt.Close()
		for i, e := range r.Errors {
			if _, err := stmt.ExecContext(ctx, run.ID, i, string(e.Kind), e.Source, e.Path, e.Line, e.Detail); err != nil {
				return nil, fmt.Errorf("history: insert finding: %w", err)
			}
			if err := ftsInsert(ctx, tx, run.ID, i, e); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("history: commit: %w", err)
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run              Run
		metrics, verdict string
	)
	if err := s.Scan(&run.ID, &run.StartedAt, &run.Fingerprint, &run.Passed, &run.Documents,
		&run.Declaring, &run.Edges, &run.Errors, &run.Density, &metrics, &verdict); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metrics), &run.Metrics); err != nil {
		return nil, fmt.Errorf("history: decode metrics of run %s: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(verdict), &run.Verdict); err != nil {
		return nil, fmt.Errorf("history: decode verdict of run %s: %w", run.ID, err)
	}
	return &run, nil
}

// GetRun returns the run with the given ID.
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("history: run %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("history: get run: %w", err)
	}
	return run, nil
}

// LatestRun returns the most recent run.
func (db *DB) LatestRun(ctx context.Context) (*Run, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("history: no runs: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("history: latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// Findings returns the findings stored for a run, in report order.
func (db *DB) Findings(ctx context.Context, runID string) ([]linkgraph.StructuralError, error) {
	if _, err := db.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := db.conn.QueryContext(ctx, `SELECT kind, source, path, line, detail FROM findings WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("history: findings: %w", err)
	}
	defer rows.Close()

	out := []linkgraph.StructuralError{}
	for rows.Next() {
		var (
			e    linkgraph.StructuralError
			kind string
		)
		if err := rows.Scan(&kind, &e.Source, &e.Path, &e.Line, &e.Detail); err != nil {
			return nil, err
		}
		e.Kind = linkgraph.ErrorKind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes all but the keep most recent runs and returns how many were
// removed. keep <= 0 keeps everything.
func (db *DB) Prune(ctx context.Context, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const stale = `SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT -1 OFFSET ?`
	if err := ftsPrune(ctx, tx, stale, keep); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id IN (`+stale+`)`, keep)
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("history: commit: %w", err)
	}
	return int(n), nil
}
