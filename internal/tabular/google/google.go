// Package google implements the tabular RowStore on top of the Google
// Sheets API using service-account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"finpro/internal/tabular"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Header styling applied when a table is first created, matching the fixed
// look of the original spreadsheet (bold white on indigo).
var headerFormat = &gsheet.CellFormat{
	TextFormat: &gsheet.TextFormat{
		Bold:            true,
		ForegroundColor: &gsheet.Color{Red: 1, Green: 1, Blue: 1},
	},
	BackgroundColor: &gsheet.Color{Red: 0x4f / 255.0, Green: 0x46 / 255.0, Blue: 0xe5 / 255.0},
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string

	mu       sync.Mutex
	sheetIDs map[string]int64 // sheet title -> sheetId, refreshed on miss
}

var _ tabular.RowStore = (*Client)(nil)

// NewFromEnv creates a Sheets-backed store from environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID), nil
}

func New(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetIDs:      make(map[string]int64),
	}
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Ensure creates the sheet with a formatted header row if it does not exist.
func (c *Client) Ensure(ctx context.Context, t tabular.Table) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if _, err := c.sheetID(ctx, t.Name, false); err == nil {
		return nil
	}

	addReq := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: t.Name},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, addReq).Context(ctx).Do(); err != nil {
		// A concurrent Ensure may have won; re-check before failing.
		if _, lookupErr := c.sheetID(ctx, t.Name, true); lookupErr == nil {
			return nil
		}
		return fmt.Errorf("add sheet %s: %w", t.Name, err)
	}

	header := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	rng := fmt.Sprintf("%s!A1:%s1", t.Name, columnLetter(len(t.Headers)))
	vr := &gsheet.ValueRange{Values: [][]any{header}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header for %s: %w", t.Name, err)
	}

	sheetID, err := c.sheetID(ctx, t.Name, true)
	if err != nil {
		return fmt.Errorf("lookup sheet id for %s: %w", t.Name, err)
	}
	formatReq := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			RepeatCell: &gsheet.RepeatCellRequest{
				Range: &gsheet.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(len(t.Headers)),
				},
				Cell:   &gsheet.CellData{UserEnteredFormat: headerFormat},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, formatReq).Context(ctx).Do(); err != nil {
		slog.WarnContext(ctx, "Header formatting failed", "sheet", t.Name, "error", err)
	}
	return nil
}

func (c *Client) ReadAll(ctx context.Context, t tabular.Table) ([][]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:%s", t.Name, columnLetter(len(t.Headers)))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = toStrings(row, len(t.Headers))
	}
	return out, nil
}

func (c *Client) Append(ctx context.Context, t tabular.Table, row []string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	vals := make([]any, len(row))
	for i, v := range row {
		vals[i] = v
	}
	rng := fmt.Sprintf("%s!A:%s", t.Name, columnLetter(len(t.Headers)))
	vr := &gsheet.ValueRange{Values: [][]any{vals}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", t.Name, err)
	}
	return nil
}

func (c *Client) Overwrite(ctx context.Context, t tabular.Table, pos int, row []string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if pos < 2 {
		return tabular.ErrRowOutOfRange
	}
	if err := c.checkRow(ctx, t, pos); err != nil {
		return err
	}
	vals := make([]any, len(row))
	for i, v := range row {
		vals[i] = v
	}
	rng := fmt.Sprintf("%s!A%d:%s%d", t.Name, pos, columnLetter(len(t.Headers)), pos)
	vr := &gsheet.ValueRange{Values: [][]any{vals}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, t tabular.Table, pos int) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if pos < 2 {
		return tabular.ErrRowOutOfRange
	}
	if err := c.checkRow(ctx, t, pos); err != nil {
		return err
	}
	sheetID, err := c.sheetID(ctx, t.Name, false)
	if err != nil {
		return fmt.Errorf("lookup sheet id for %s: %w", t.Name, err)
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(pos - 1), // 0-based, inclusive
					EndIndex:   int64(pos),     // exclusive
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d of %s: %w", pos, t.Name, err)
	}
	return nil
}

// checkRow reports ErrRowOutOfRange when pos addresses no occupied row,
// matching the other RowStore backends.
func (c *Client) checkRow(ctx context.Context, t tabular.Table, pos int) error {
	rng := fmt.Sprintf("%s!A%d:%s%d", t.Name, pos, columnLetter(len(t.Headers)), pos)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) == 0 {
		return tabular.ErrRowOutOfRange
	}
	return nil
}

// sheetID resolves a sheet title to its numeric id, refreshing the cached
// mapping from the spreadsheet metadata on miss or when forced.
func (c *Client) sheetID(ctx context.Context, name string, refresh bool) (int64, error) {
	c.mu.Lock()
	if !refresh {
		if id, ok := c.sheetIDs[name]; ok {
			c.mu.Unlock()
			return id, nil
		}
	}
	c.mu.Unlock()

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sheetIDs = make(map[string]int64, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			c.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	if id, ok := c.sheetIDs[name]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("sheet %q not found", name)
}

func toStrings(in []any, width int) []string {
	out := make([]string, width)
	for i := 0; i < width && i < len(in); i++ {
		out[i] = strings.TrimSpace(fmt.Sprint(in[i]))
	}
	return out
}

func columnLetter(n int) string {
	// Tables here never exceed 26 columns.
	return string(rune('A' + n - 1))
}
