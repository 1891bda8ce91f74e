// Package listing drives a map-style search session and extracts raw
// candidate cards from its result feed.
package listing

import (
	"context"

	"github.com/sells-group/leadsweep/internal/model"
)

// Source yields raw candidate cards for a search term. It may legitimately
// return fewer cards than the query asked for.
type Source interface {
	// Search runs one query and extracts up to q.Max cards, in feed order.
	Search(ctx context.Context, q model.QuerySpec) ([]model.CandidateCard, error)
	Close() error
}
