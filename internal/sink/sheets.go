package sink

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var spreadsheetURLRe = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// NormalizeSpreadsheetID accepts either a bare spreadsheet ID or a full
// docs.google.com URL and returns the ID.
func NormalizeSpreadsheetID(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("spreadsheet id is empty")
	}
	if strings.Contains(s, "docs.google.com") || strings.Contains(s, "/spreadsheets/") {
		m := spreadsheetURLRe.FindStringSubmatch(s)
		if m == nil {
			return "", fmt.Errorf("cannot extract spreadsheet id from %q", raw)
		}
		return m[1], nil
	}
	return s, nil
}

// Sheets appends rows to one worksheet of a Google Sheet using a
// service-account credential.
type Sheets struct {
	svc           *sheets.Service
	spreadsheetID string
	worksheet     string
}

func NewSheets(ctx context.Context, credentialsFile, spreadsheetRef, worksheet string) (*Sheets, error) {
	id, err := NormalizeSpreadsheetID(spreadsheetRef)
	if err != nil {
		return nil, err
	}
	if worksheet == "" {
		worksheet = "Sheet1"
	}
	raw, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, raw, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", credentialsFile, err)
	}
	svc, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Sheets{svc: svc, spreadsheetID: id, worksheet: worksheet}, nil
}

// EnsureHeader creates the worksheet if missing, writes the header row
// into an empty sheet, and freezes it.
func (s *Sheets) EnsureHeader() error {
	sheetID, err := s.ensureWorksheet()
	if err != nil {
		return err
	}

	resp, err := s.svc.Spreadsheets.Values.
		Get(s.spreadsheetID, s.worksheet+"!1:1").Do()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(resp.Values) == 0 || len(resp.Values[0]) == 0 {
		vals := make([]any, len(Header))
		for i, h := range Header {
			vals[i] = h
		}
		_, err = s.svc.Spreadsheets.Values.
			Update(s.spreadsheetID, s.worksheet+"!A1", &sheets.ValueRange{Values: [][]any{vals}}).
			ValueInputOption("RAW").Do()
		if err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	_, err = s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:        sheetID,
					GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		}},
	}).Do()
	if err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	return nil
}

func (s *Sheets) Append(rows [][]string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	vals := make([][]any, len(rows))
	for i, row := range rows {
		r := make([]any, len(row))
		for j, cell := range row {
			r[j] = cell
		}
		vals[i] = r
	}
	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, s.worksheet+"!A1", &sheets.ValueRange{Values: vals}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").Do()
	if err != nil {
		return 0, fmt.Errorf("append rows: %w", err)
	}
	return len(rows), nil
}

func (s *Sheets) ensureWorksheet() (int64, error) {
	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.worksheet {
			return sh.Properties.SheetId, nil
		}
	}

	resp, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: s.worksheet},
			},
		}},
	}).Do()
	if err != nil {
		return 0, fmt.Errorf("add worksheet %q: %w", s.worksheet, err)
	}
	for _, r := range resp.Replies {
		if r.AddSheet != nil && r.AddSheet.Properties != nil {
			return r.AddSheet.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("add worksheet %q: empty reply", s.worksheet)
}
