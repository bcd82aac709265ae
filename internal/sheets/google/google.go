package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultSheetName = "Ledger"

type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ ports.LedgerExporter = (*Client)(nil)

// New creates a Sheets exporter authenticated with service account credentials.
// Extra client options are appended after the credentials; tests use them to
// point the client at a local server.
func New(ctx context.Context, o Options, extra ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(o.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheet := strings.TrimSpace(o.SheetName)
	if sheet == "" {
		sheet = defaultSheetName
	}

	var opts []goption.ClientOption
	if len(extra) == 0 {
		creds, err := loadCredentials(ctx, o)
		if err != nil {
			return nil, err
		}
		opts = append(opts, goption.WithCredentialsJSON(creds), goption.WithScopes(gsheet.SpreadsheetsScope))
	}
	opts = append(opts, extra...)

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: o.SpreadsheetID, sheetName: sheet}, nil
}

// loadCredentials prefers inline JSON, then a file path, then GOOGLE_APPLICATION_CREDENTIALS.
func loadCredentials(ctx context.Context, o Options) ([]byte, error) {
	inline := strings.TrimSpace(o.CredentialsJSON)
	file := strings.TrimSpace(o.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline service account credentials", "json_length", len(inline))
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read service account credentials", "path", file, "size", len(data))
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// Export appends one row per committed transaction. A row already carrying the
// committed id in column H is reused so redelivered events do not duplicate it.
func (c *Client) Export(ctx context.Context, tx core.CommittedTransaction) (string, error) {
	if tx.ID <= 0 {
		return "", errors.New("committed transaction has no id")
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	idRange := fmt.Sprintf("%s!H:H", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, idRange).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", idRange, err)
	}
	if row := findRow(resp.Values, tx.ID); row > 0 {
		return fmt.Sprintf("%s!A%d:H%d", c.sheetName, row, row), nil
	}

	vr := &gsheet.ValueRange{Values: [][]any{ledgerRow(tx)}}
	out, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, fmt.Sprintf("%s!A:H", c.sheetName), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}
	if out.Updates != nil && out.Updates.UpdatedRange != "" {
		return out.Updates.UpdatedRange, nil
	}
	return fmt.Sprintf("%s!A%d:H%d", c.sheetName, len(resp.Values)+1, len(resp.Values)+1), nil
}

func ledgerRow(tx core.CommittedTransaction) []any {
	sub := ""
	if tx.SubcategoryID != 0 {
		sub = strconv.FormatInt(tx.SubcategoryID, 10)
	}
	return []any{
		tx.Date.String(),
		tx.Description,
		tx.Amount.Decimal(),
		tx.Currency,
		tx.AccountID,
		tx.CategoryID,
		sub,
		tx.ID,
	}
}

// findRow returns the 1-based row holding id, or 0.
func findRow(values [][]any, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i + 1
		}
	}
	return 0
}
