package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadsweep/internal/model"
	"github.com/sells-group/leadsweep/internal/pipeline"
	"github.com/sells-group/leadsweep/internal/store"
)

var (
	scrapeQueries     string
	scrapeMaxPerQuery int
	scrapeCheckpoint  string
	scrapeResume      bool
	scrapeHeadful     bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Extract, enrich, and persist business leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if scrapeMaxPerQuery > 0 {
			cfg.Listing.MaxPerQuery = scrapeMaxPerQuery
		}
		if scrapeHeadful {
			cfg.Listing.Headful = true
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close()
			if err := st.Init(ctx); err != nil {
				return eris.Wrap(err, "init store")
			}
		} else {
			zap.L().Warn("no store configured, results go to the checkpoint file only")
		}

		if scrapeResume {
			records, err := store.LoadCheckpoint(scrapeCheckpoint)
			if err != nil {
				return eris.Wrap(err, "load checkpoint")
			}
			zap.L().Info("resuming from checkpoint",
				zap.String("path", scrapeCheckpoint),
				zap.Int("records", len(records)),
			)
			p := pipeline.New(cfg, nil, st, scrapeCheckpoint)
			summary, err := p.Finalize(ctx, records)
			if summary != nil {
				printSummary(summary)
			}
			return err
		}

		queries, err := model.LoadQueries(scrapeQueries, cfg.Listing.MaxPerQuery)
		if err != nil {
			return eris.Wrap(err, "load queries")
		}

		session, err := listingSession(ctx)
		if err != nil {
			return eris.Wrap(err, "start browser session")
		}
		defer session.Close()

		p := pipeline.New(cfg, session, st, scrapeCheckpoint)
		summary, err := p.Run(ctx, queries)
		if summary != nil {
			printSummary(summary)
		}
		return err
	},
}

func printSummary(s *pipeline.Summary) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(s)
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeQueries, "queries", "", "path to a JSON or YAML queries file (default: built-in query set)")
	scrapeCmd.Flags().IntVar(&scrapeMaxPerQuery, "max-per-query", 0, "max results per query (overrides config)")
	scrapeCmd.Flags().StringVar(&scrapeCheckpoint, "checkpoint", "leads_checkpoint.json", "checkpoint file path")
	scrapeCmd.Flags().BoolVar(&scrapeResume, "resume", false, "skip extraction, filter and write records from the checkpoint file")
	scrapeCmd.Flags().BoolVar(&scrapeHeadful, "headful", false, "run the browser with a visible window")
	rootCmd.AddCommand(scrapeCmd)
}
