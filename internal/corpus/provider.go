// Package corpus loads documentation articles for an audit run.
package corpus

import (
	"context"
	"sort"

	"github.com/starford/refgraph/internal/models"
)

// Loader returns the full document set of a corpus. Implementations must
// enumerate deterministically; Load returns documents sorted by identity.
type Loader interface {
	Load(ctx context.Context) ([]models.Document, error)
}

// Static is an in-memory corpus.
type Static []models.Document

// Load returns a sorted copy of the documents.
func (s Static) Load(ctx context.Context) ([]models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]models.Document, len(s))
	copy(out, s)
	sortDocuments(out)
	return out, nil
}

func sortDocuments(docs []models.Document) {
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ID.String() < docs[j].ID.String()
	})
}
