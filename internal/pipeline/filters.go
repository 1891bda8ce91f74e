package pipeline

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/leadsweep/internal/model"
)

// Dedup removes records whose website is already in seen, in stable input
// order. Kept websites are added to seen, so later duplicates within the same
// batch are caught too. Records without a website cannot be deduped and are
// always kept.
func Dedup(records []model.BusinessRecord, seen map[string]struct{}) []model.BusinessRecord {
	if seen == nil {
		seen = make(map[string]struct{})
	}

	out := make([]model.BusinessRecord, 0, len(records))
	for _, r := range records {
		website := strings.TrimSpace(r.Website)
		if website != "" {
			if _, dup := seen[website]; dup {
				continue
			}
			seen[website] = struct{}{}
		}
		out = append(out, r)
	}
	return out
}

// WithEmail keeps only records with a non-empty selected email.
func WithEmail(records []model.BusinessRecord) []model.BusinessRecord {
	out := make([]model.BusinessRecord, 0, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.Email) != "" {
			out = append(out, r)
		}
	}
	return out
}

// OnlyImprovable keeps only records whose site was flagged improvable.
func OnlyImprovable(records []model.BusinessRecord) []model.BusinessRecord {
	out := make([]model.BusinessRecord, 0, len(records))
	for _, r := range records {
		if r.Improvable {
			out = append(out, r)
		}
	}
	return out
}

// Accept applies the two acceptance stages in the contract order: the cheap
// email check first, then the quality verdict. Per-stage counts are logged.
func Accept(records []model.BusinessRecord) []model.BusinessRecord {
	withEmail := WithEmail(records)
	zap.L().Info("filter: email stage",
		zap.Int("kept", len(withEmail)),
		zap.Int("removed", len(records)-len(withEmail)),
	)

	accepted := OnlyImprovable(withEmail)
	zap.L().Info("filter: quality stage",
		zap.Int("kept", len(accepted)),
		zap.Int("removed", len(withEmail)-len(accepted)),
	)
	return accepted
}
