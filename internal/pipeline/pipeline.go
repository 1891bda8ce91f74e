package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadsweep/internal/config"
	"github.com/sells-group/leadsweep/internal/enrich"
	"github.com/sells-group/leadsweep/internal/listing"
	"github.com/sells-group/leadsweep/internal/model"
	"github.com/sells-group/leadsweep/internal/resilience"
	"github.com/sells-group/leadsweep/internal/store"
)

// Summary reports what the run found and kept at each stage. It is always
// populated, also when the final store write fails.
type Summary struct {
	Queries      int `json:"queries"`
	TotalFound   int `json:"total_found"`
	Accepted     int `json:"accepted"`
	Unique       int `json:"unique"`
	Written      int `json:"written"`
	Checkpointed int `json:"checkpointed"`
}

// Pipeline drives query batches end to end: listing extraction, concurrent
// enrichment, checkpointing, filtering, and the final store write.
type Pipeline struct {
	cfg            *config.Config
	source         listing.Source
	orchestrator   *enrich.Orchestrator
	store          store.Store // nil means checkpoint-only run
	checkpointPath string
}

// New creates a Pipeline. A nil store makes the run stop after the local
// checkpoint and report the accepted count without writing.
func New(cfg *config.Config, source listing.Source, st store.Store, checkpointPath string) *Pipeline {
	enricher := enrich.NewSiteEnricher(
		time.Duration(cfg.Enrich.FetchTimeoutSecs)*time.Second,
		enrich.ClassifierConfig{
			PositiveThreshold: cfg.Enrich.PositiveThreshold,
			ProblemThreshold:  cfg.Enrich.ProblemThreshold,
		},
	)
	return &Pipeline{
		cfg:            cfg,
		source:         source,
		orchestrator:   enrich.NewOrchestrator(enricher, cfg.Enrich.Concurrency),
		store:          st,
		checkpointPath: checkpointPath,
	}
}

// Run processes all queries sequentially against the listing source,
// checkpointing the running total after every query, then filters and writes
// the accepted set.
func (p *Pipeline) Run(ctx context.Context, queries []model.QuerySpec) (*Summary, error) {
	log := zap.L()
	log.Info("pipeline: starting run", zap.Int("queries", len(queries)))

	var all []model.BusinessRecord
	for i, q := range queries {
		qlog := log.With(
			zap.Int("query", i+1),
			zap.Int("of", len(queries)),
			zap.String("keyword", q.Keyword),
			zap.String("city", q.City),
		)
		qlog.Info("pipeline: query start")

		cards, err := p.source.Search(ctx, q)
		if err != nil {
			// One query failing does not abort the run; progress so far is
			// already checkpointed.
			qlog.Error("pipeline: query failed", zap.Error(err))
			continue
		}
		qlog.Info("pipeline: cards extracted", zap.Int("cards", len(cards)))

		records := p.orchestrator.EnrichAll(ctx, cards)
		all = append(all, records...)
		qlog.Info("pipeline: query aggregated",
			zap.Int("enriched", len(records)),
			zap.Int("running_total", len(all)),
		)

		if err := store.SaveCheckpoint(p.checkpointPath, all); err != nil {
			return nil, eris.Wrap(err, "pipeline: checkpoint")
		}
	}

	summary, err := p.Finalize(ctx, all)
	if summary != nil {
		summary.Queries = len(queries)
	}
	return summary, err
}

// Finalize applies the filter chain to the collected records and performs the
// final store write. It is also the entry point for resuming from a
// checkpoint artifact.
func (p *Pipeline) Finalize(ctx context.Context, records []model.BusinessRecord) (*Summary, error) {
	log := zap.L()
	summary := &Summary{
		TotalFound:   len(records),
		Checkpointed: len(records),
	}
	log.Info("pipeline: processing results", zap.Int("total_found", len(records)))

	if len(records) == 0 {
		log.Warn("pipeline: no candidates found")
		return summary, nil
	}

	if p.store == nil {
		accepted := Accept(records)
		summary.Accepted = len(accepted)
		summary.Unique = len(accepted)
		log.Info("pipeline: no store configured, stopping after checkpoint",
			zap.Int("accepted", len(accepted)),
		)
		return summary, nil
	}

	existing, err := p.store.ExistingWebsites(ctx)
	if err != nil {
		return summary, eris.Wrap(err, "pipeline: read existing websites")
	}
	log.Info("pipeline: existing websites loaded", zap.Int("count", len(existing)))

	var unique []model.BusinessRecord
	switch p.cfg.Filters.Order {
	case config.FilterOrderDedupThenAccept:
		unique = Accept(Dedup(records, existing))
	default:
		unique = Dedup(Accept(records), existing)
	}
	summary.Accepted = countAccepted(records)
	summary.Unique = len(unique)
	log.Info("pipeline: filters applied",
		zap.Int("accepted", summary.Accepted),
		zap.Int("unique", summary.Unique),
	)

	if len(unique) == 0 {
		log.Warn("pipeline: nothing to write after filters")
		return summary, nil
	}

	writer := store.NewBatchWriter(p.store, resilience.FromRetryConfig(p.cfg.Store.WriteAttempts, p.cfg.Store.WriteBackoffMS))
	if err := writer.Write(ctx, unique); err != nil {
		// The checkpoint artifact remains the recovery path.
		log.Error("pipeline: store write failed",
			zap.Int("checkpointed", summary.Checkpointed),
			zap.Error(err),
		)
		return summary, err
	}

	summary.Written = len(unique)
	log.Info("pipeline: run complete",
		zap.Int("total_found", summary.TotalFound),
		zap.Int("accepted", summary.Accepted),
		zap.Int("unique", summary.Unique),
		zap.Int("written", summary.Written),
	)
	return summary, nil
}

// countAccepted reports how many records pass both acceptance stages,
// independent of the configured filter order.
func countAccepted(records []model.BusinessRecord) int {
	n := 0
	for _, r := range records {
		if r.Email != "" && r.Improvable {
			n++
		}
	}
	return n
}
