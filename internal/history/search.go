package history

import (
	"database/sql"

	"github.com/starford/refgraph/internal/linkgraph"
)

// FindingHit is one search match.
type FindingHit struct {
	RunID   string                    `json:"run_id"`
	Finding linkgraph.StructuralError `json:"finding"`
}

func scanHits(rows *sql.Rows) ([]FindingHit, error) {
	out := []FindingHit{}
	for rows.Next() {
		var (
			h    FindingHit
			kind string
		)
		if err := rows.Scan(&h.RunID, &kind, &h.Finding.Source, &h.Finding.Path, &h.Finding.Line, &h.Finding.Detail); err != nil {
			return nil, err
		}
		h.Finding.Kind = linkgraph.ErrorKind(kind)
		out = append(out, h)
	}
	return out, rows.Err()
}
