// Package sheets mirrors export tables into a Google spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"chitieu/internal/export"
	"chitieu/internal/log"
)

// maxTitleLen is the longest sheet title the Sheets API accepts.
const maxTitleLen = 100

type Options struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger

	mu     sync.Mutex
	titles map[string]bool
}

// NewClient creates a Sheets client authenticated with a service account.
// Inline JSON credentials win over the credentials file.
func NewClient(ctx context.Context, opts Options, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	credentialsJSON, err := loadCredentials(opts)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return newWithService(svc, opts.SpreadsheetID, logger), nil
}

func newWithService(svc *gsheet.Service, spreadsheetID string, logger *log.Logger) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

func loadCredentials(opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// WriteTable replaces the content of sheet with table, creating the sheet
// when the spreadsheet does not have it yet.
func (c *Client) WriteTable(ctx context.Context, sheet string, table export.Table) error {
	sheet = SheetTitle(sheet)
	if err := c.ensureSheet(ctx, sheet); err != nil {
		return err
	}

	rng := quote(sheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %q: %w", sheet, err)
	}

	vr := &gsheet.ValueRange{Values: table.Values()}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng+"!A1", vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update sheet %q: %w", sheet, err)
	}

	c.logger.DebugContext(ctx, "Sheet rewritten",
		log.FieldSheet, sheet,
		log.FieldCount, len(table.Rows))
	return nil
}

func (c *Client) ensureSheet(ctx context.Context, sheet string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.titles == nil {
		ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("read spreadsheet: %w", err)
		}
		c.titles = make(map[string]bool, len(ss.Sheets))
		for _, s := range ss.Sheets {
			if s.Properties != nil {
				c.titles[s.Properties.Title] = true
			}
		}
	}
	if c.titles[sheet] {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: sheet}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %q: %w", sheet, err)
	}
	c.titles[sheet] = true
	c.logger.InfoContext(ctx, "Sheet created", log.FieldSheet, sheet)
	return nil
}

// SheetTitle trims a title to what the Sheets API accepts.
func SheetTitle(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > maxTitleLen {
		s = string(r[:maxTitleLen])
	}
	return s
}

// quote renders a sheet title for A1 notation.
func quote(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}
