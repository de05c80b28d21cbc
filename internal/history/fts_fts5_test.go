//go:build sqlite_fts5

package history

import (
	"context"
	"testing"
	"time"

	"github.com/starford/refgraph/internal/audit"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM findings_fts`).Scan(&count); err != nil {
		t.Fatalf("findings_fts table missing: %v", err)
	}
}

func TestFTS5_PruneClearsIndex(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := db.SaveRun(ctx, testReport(dangling), audit.Verdict{}, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := db.Prune(ctx, 1); err != nil {
		t.Fatalf("Prune: %v", err)
	}
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM findings_fts`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("fts rows = %d, want 1", count)
	}
}
