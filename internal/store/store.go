package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadsweep/internal/config"
	"github.com/sells-group/leadsweep/internal/model"
)

// Header is the column layout of the record store.
var Header = []string{"Email", "Phone", "Website", "Keyword", "Owner Name", "Location", "Contacted"}

// RecipientFilter narrows ListRecipients output.
type RecipientFilter struct {
	// SkipContacted drops rows already marked contacted.
	SkipContacted bool
	// Limit caps the number of rows returned; 0 means no cap.
	Limit int
}

// Store is the durable sink for accepted leads and the source of the dedup
// key set.
type Store interface {
	// Init bootstraps the destination (header row or schema).
	Init(ctx context.Context) error

	// ExistingWebsites returns the set of website strings already persisted.
	ExistingWebsites(ctx context.Context) (map[string]struct{}, error)

	// AppendRecords appends all records in one batched call. Connectivity
	// failures are reported as transient errors.
	AppendRecords(ctx context.Context, records []model.BusinessRecord) error

	// ListRecipients reads persisted rows back for outreach.
	ListRecipients(ctx context.Context, filter RecipientFilter) ([]model.Recipient, error)

	// MarkContacted flags one row as contacted.
	MarkContacted(ctx context.Context, rowNumber int) error

	Close() error
}

// Open builds a Store from config, dispatching on the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sheets", "":
		return NewSheetsStore(ctx, cfg)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
