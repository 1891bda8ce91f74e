package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadsweep/internal/model"
)

// SQLiteStore implements Store on a local SQLite file, for runs without a
// Sheets destination.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path with WAL mode.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, eris.New("sqlite: path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS leads (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	email      TEXT NOT NULL,
	phone      TEXT NOT NULL DEFAULT '',
	website    TEXT NOT NULL DEFAULT '',
	keyword    TEXT NOT NULL DEFAULT '',
	owner_name TEXT NOT NULL DEFAULT '',
	location   TEXT NOT NULL DEFAULT '',
	contacted  TEXT NOT NULL DEFAULT 'no',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_website ON leads(website);
`

// Init applies the schema.
func (s *SQLiteStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// ExistingWebsites returns the distinct non-empty websites already stored.
func (s *SQLiteStore) ExistingWebsites(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT website FROM leads WHERE website != ''`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query websites")
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]struct{})
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan website")
		}
		out[strings.TrimSpace(w)] = struct{}{}
	}
	return out, rows.Err()
}

// AppendRecords inserts all records in one transaction.
func (s *SQLiteStore) AppendRecords(ctx context.Context, records []model.BusinessRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO leads (email, phone, website, keyword, owner_name, location, contacted)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.Row()...); err != nil {
			return eris.Wrap(err, "sqlite: insert lead")
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit")
	}
	return nil
}

// ListRecipients reads stored leads back for outreach.
func (s *SQLiteStore) ListRecipients(ctx context.Context, filter RecipientFilter) ([]model.Recipient, error) {
	q := `SELECT id, email, phone, website, keyword, owner_name, location, contacted FROM leads`
	if filter.SkipContacted {
		q += ` WHERE contacted NOT IN ('yes', 'si', 'sì', 'y', '1', 'true')`
	}
	q += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query recipients")
	}
	defer func() { _ = rows.Close() }()

	var out []model.Recipient
	for rows.Next() {
		var rec model.Recipient
		var contacted string
		if err := rows.Scan(&rec.RowNumber, &rec.Email, &rec.Phone, &rec.Website,
			&rec.Keyword, &rec.OwnerName, &rec.Location, &contacted); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan recipient")
		}
		rec.Contacted = isContacted(contacted)
		if rec.Email == "" || !strings.Contains(rec.Email, "@") {
			continue
		}
		out = append(out, rec)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, rows.Err()
}

// MarkContacted flags one lead by id.
func (s *SQLiteStore) MarkContacted(ctx context.Context, rowNumber int) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE leads SET contacted = 'yes' WHERE id = ?`, rowNumber); err != nil {
		return eris.Wrap(err, "sqlite: mark contacted")
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
