package enrich

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadsweep/internal/model"
)

// Orchestrator fans SiteEnricher out over a batch of cards under a
// concurrency bound.
type Orchestrator struct {
	enricher    *SiteEnricher
	concurrency int
}

// NewOrchestrator creates an Orchestrator. A non-positive bound defaults
// to 10.
func NewOrchestrator(enricher *SiteEnricher, concurrency int) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Orchestrator{enricher: enricher, concurrency: concurrency}
}

// EnrichAll enriches every card with at most the configured number of fetches
// in flight. A failed or panicking task is logged and dropped; siblings are
// unaffected. The output keeps the input card order, which downstream dedup
// relies on, regardless of completion order.
func (o *Orchestrator) EnrichAll(ctx context.Context, cards []model.CandidateCard) []model.BusinessRecord {
	if len(cards) == 0 {
		return nil
	}

	log := zap.L()
	log.Info("enrich: starting batch",
		zap.Int("cards", len(cards)),
		zap.Int("concurrency", o.concurrency),
	)

	results := make([]*model.BusinessRecord, len(cards))

	g := new(errgroup.Group)
	g.SetLimit(o.concurrency)
	for i, card := range cards {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.Error("enrich: task panicked",
						zap.String("website", card.Website),
						zap.Any("panic", r),
					)
				}
			}()

			rec, err := o.enricher.EnrichCard(ctx, card)
			if err != nil {
				log.Warn("enrich: task failed",
					zap.String("name", card.Name),
					zap.String("website", card.Website),
					zap.Error(err),
				)
				return nil
			}
			results[i] = &rec
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.BusinessRecord, 0, len(cards))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}

	log.Info("enrich: batch complete",
		zap.Int("enriched", len(out)),
		zap.Int("dropped", len(cards)-len(out)),
	)
	return out
}
