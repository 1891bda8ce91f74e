package main

import (
	"context"

	"github.com/sells-group/leadsweep/internal/listing"
	"github.com/sells-group/leadsweep/internal/store"
)

// initStore opens the configured record store. A sheets driver with no
// spreadsheet ID means no store is configured: the caller falls back to
// checkpoint-only mode.
func initStore(ctx context.Context) (store.Store, error) {
	if (cfg.Store.Driver == "" || cfg.Store.Driver == "sheets") && cfg.Store.SpreadsheetID == "" {
		return nil, nil
	}
	return store.Open(ctx, cfg.Store)
}

// listingSession starts a browser-backed listing source.
func listingSession(ctx context.Context) (listing.Source, error) {
	return listing.NewMapsSession(ctx, cfg.Listing)
}
