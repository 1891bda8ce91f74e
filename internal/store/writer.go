package store

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadsweep/internal/model"
	"github.com/sells-group/leadsweep/internal/resilience"
)

// BatchWriter appends accepted records to a Store with bounded retries.
type BatchWriter struct {
	store Store
	retry resilience.RetryConfig
}

// NewBatchWriter creates a BatchWriter. A zero retry config gets the
// defaults (5 attempts, exponential backoff with jitter).
func NewBatchWriter(st Store, retry resilience.RetryConfig) *BatchWriter {
	return &BatchWriter{store: st, retry: retry}
}

// Write appends all records as one batched call, retrying transient store
// failures. After exhausting retries the error is fatal for the run.
func (w *BatchWriter) Write(ctx context.Context, records []model.BusinessRecord) error {
	if len(records) == 0 {
		zap.L().Info("writer: nothing to write")
		return nil
	}

	cfg := w.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("store", "append_records")
	}

	err := resilience.Do(ctx, cfg, func(ctx context.Context) error {
		return w.store.AppendRecords(ctx, records)
	})
	if err != nil {
		return eris.Wrapf(err, "writer: append %d records", len(records))
	}

	zap.L().Info("writer: batch written", zap.Int("records", len(records)))
	return nil
}
