package store

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadsweep/internal/model"
)

// Checkpoint is the local progress artifact written after every query batch.
// It makes a multi-query run resumable: records accepted up to the last
// completed query survive any later failure.
type Checkpoint struct {
	Timestamp    string                 `json:"timestamp"`
	TotalRecords int                    `json:"total_records"`
	Records      []model.BusinessRecord `json:"records"`
}

// SaveCheckpoint overwrites the artifact at path with the full record set.
// The write is atomic (temp file plus rename) so a crash never leaves a
// truncated checkpoint behind.
func SaveCheckpoint(path string, records []model.BusinessRecord) error {
	cp := Checkpoint{
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		TotalRecords: len(records),
		Records:      records,
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return eris.Wrap(err, "checkpoint: marshal")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrap(err, "checkpoint: write temp file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrap(err, "checkpoint: rename")
	}

	zap.L().Info("checkpoint: saved",
		zap.String("path", path),
		zap.Int("records", len(records)),
	)
	return nil
}

// LoadCheckpoint reads a checkpoint back into memory.
func LoadCheckpoint(path string) ([]model.BusinessRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: read file")
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, eris.Wrap(err, "checkpoint: parse")
	}

	zap.L().Info("checkpoint: loaded",
		zap.String("path", path),
		zap.Int("records", len(cp.Records)),
	)
	return cp.Records, nil
}
