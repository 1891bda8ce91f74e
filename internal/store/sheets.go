package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/sells-group/leadsweep/internal/config"
	"github.com/sells-group/leadsweep/internal/model"
	"github.com/sells-group/leadsweep/internal/resilience"
)

// SheetsStore persists leads to a Google Sheets worksheet via a service
// account.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
	worksheet     string
}

// NewSheetsStore creates a SheetsStore. Credentials come from inline JSON,
// a key file path, or application default credentials, in that order. Extra
// client options let tests point the service at a local endpoint.
func NewSheetsStore(ctx context.Context, cfg config.StoreConfig, extra ...option.ClientOption) (*SheetsStore, error) {
	if cfg.SpreadsheetID == "" {
		return nil, eris.New("sheets: spreadsheet id is required")
	}

	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, eris.Wrap(err, "sheets: credentials file")
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	opts = append(opts, extra...)

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "sheets: create service")
	}

	worksheet := cfg.Worksheet
	if worksheet == "" {
		worksheet = "Sheet1"
	}
	return &SheetsStore{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		worksheet:     worksheet,
	}, nil
}

// Init creates the worksheet if missing and writes the header row when it is
// absent or stale.
func (s *SheetsStore) Init(ctx context.Context) error {
	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return classify(eris.Wrap(err, "sheets: get spreadsheet"), err)
	}

	found := false
	for _, sheet := range ss.Sheets {
		if sheet.Properties.Title == s.worksheet {
			found = true
			break
		}
	}
	if !found {
		zap.L().Info("sheets: creating worksheet", zap.String("worksheet", s.worksheet))
		req := &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: s.worksheet},
				},
			}},
		}
		if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return classify(eris.Wrap(err, "sheets: add worksheet"), err)
		}
	}

	existing, err := s.readRange(ctx, s.rangeRef("A1:G1"))
	if err != nil {
		return err
	}
	if len(existing) > 0 && headerMatches(existing[0]) {
		return nil
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	vr := &sheets.ValueRange{Values: [][]any{header}}
	_, err = s.svc.Spreadsheets.Values.Update(s.spreadsheetID, s.rangeRef("A1:G1"), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return classify(eris.Wrap(err, "sheets: write header"), err)
	}
	return nil
}

// ExistingWebsites reads the website column, skipping the header.
func (s *SheetsStore) ExistingWebsites(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.readRange(ctx, s.rangeRef("C2:C"))
	if err != nil {
		return nil, err
	}

	out := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		w := strings.TrimSpace(fmt.Sprint(row[0]))
		if w != "" {
			out[w] = struct{}{}
		}
	}
	return out, nil
}

// AppendRecords appends all records as one batched call.
func (s *SheetsStore) AppendRecords(ctx context.Context, records []model.BusinessRecord) error {
	if len(records) == 0 {
		return nil
	}

	values := make([][]any, 0, len(records))
	for _, r := range records {
		values = append(values, r.Row())
	}

	vr := &sheets.ValueRange{Values: values}
	resp, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.rangeRef("A1"), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return classify(eris.Wrap(err, "sheets: append rows"), err)
	}

	// Diagnostics only; the append outcome above is authoritative.
	if resp.Updates != nil {
		zap.L().Debug("sheets: append acknowledged",
			zap.Int64("updated_rows", resp.Updates.UpdatedRows),
			zap.String("range", resp.Updates.UpdatedRange),
		)
	}
	return nil
}

// ListRecipients reads data rows back for the outreach sender.
func (s *SheetsStore) ListRecipients(ctx context.Context, filter RecipientFilter) ([]model.Recipient, error) {
	rows, err := s.readRange(ctx, s.rangeRef("A2:G"))
	if err != nil {
		return nil, err
	}

	var out []model.Recipient
	for i, row := range rows {
		rec := model.Recipient{
			RowNumber: i + 2, // 1-based, after the header
			Email:     cell(row, 0),
			Phone:     cell(row, 1),
			Website:   cell(row, 2),
			Keyword:   cell(row, 3),
			OwnerName: cell(row, 4),
			Location:  cell(row, 5),
			Contacted: isContacted(cell(row, 6)),
		}
		if rec.Email == "" || !strings.Contains(rec.Email, "@") {
			continue
		}
		if filter.SkipContacted && rec.Contacted {
			continue
		}
		out = append(out, rec)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// MarkContacted writes "yes" into the contacted column of the given row.
func (s *SheetsStore) MarkContacted(ctx context.Context, rowNumber int) error {
	ref := s.rangeRef(fmt.Sprintf("G%d", rowNumber))
	vr := &sheets.ValueRange{Values: [][]any{{"yes"}}}
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, ref, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return classify(eris.Wrap(err, "sheets: mark contacted"), err)
	}
	return nil
}

// Close is a no-op; the Sheets service holds no persistent connection.
func (s *SheetsStore) Close() error { return nil }

func (s *SheetsStore) readRange(ctx context.Context, ref string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, ref).Context(ctx).Do()
	if err != nil {
		return nil, classify(eris.Wrap(err, "sheets: read range"), err)
	}
	return resp.Values, nil
}

func (s *SheetsStore) rangeRef(cells string) string {
	return fmt.Sprintf("'%s'!%s", s.worksheet, cells)
}

func headerMatches(row []any) bool {
	if len(row) < len(Header) {
		return false
	}
	for i, want := range Header {
		if fmt.Sprint(row[i]) != want {
			return false
		}
	}
	return true
}

func cell(row []any, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[idx]))
}

func isContacted(v string) bool {
	switch strings.ToLower(v) {
	case "yes", "y", "si", "sì", "1", "true":
		return true
	default:
		return false
	}
}

// classify wraps connectivity and throttling failures as transient so the
// batch writer retries them.
func classify(wrapped, cause error) error {
	var gerr *googleapi.Error
	if errors.As(cause, &gerr) {
		if resilience.IsTransientStatus(gerr.Code) {
			return resilience.NewTransientError(wrapped, gerr.Code)
		}
		return wrapped
	}
	if resilience.IsTransient(cause) {
		return resilience.NewTransientError(wrapped, 0)
	}
	return wrapped
}
