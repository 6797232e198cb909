package sheets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const spreadsheetMIME = "application/vnd.google-apps.spreadsheet"

// Google implements Store with the Sheets and Drive APIs, authenticated
// as a service account.
type Google struct {
	sheets    *sheets.Service
	drive     *drive.Service
	shareWith string
	logger    *zap.Logger
}

func NewGoogle(ctx context.Context, serviceAccountFile, shareWith string, logger *zap.Logger) (*Google, error) {
	data, err := os.ReadFile(serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read service account file: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(data, sheets.SpreadsheetsScope, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account: %w", err)
	}
	client := jwt.Client(ctx)

	sheetsSvc, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &Google{sheets: sheetsSvc, drive: driveSvc, shareWith: shareWith, logger: logger}, nil
}

func (g *Google) CreateOrReuse(ctx context.Context, name string, tabs []string) (Handle, error) {
	id, err := g.find(ctx, name)
	if err != nil {
		return Handle{}, err
	}
	if id == "" {
		return g.create(ctx, name, tabs)
	}

	ss, err := g.sheets.Spreadsheets.Get(id).Fields("spreadsheetId,spreadsheetUrl,sheets.properties").Context(ctx).Do()
	if err != nil {
		return Handle{}, fmt.Errorf("failed to open spreadsheet: %w", err)
	}

	existing := make(map[string]bool, len(ss.Sheets))
	for _, s := range ss.Sheets {
		existing[s.Properties.Title] = true
	}

	h := Handle{ID: ss.SpreadsheetId, Name: name, URL: ss.SpreadsheetUrl}
	var reqs []*sheets.Request
	for _, tab := range tabs {
		if existing[tab] {
			continue
		}
		reqs = append(reqs, &sheets.Request{AddSheet: &sheets.AddSheetRequest{
			Properties: &sheets.SheetProperties{Title: tab},
		}})
		h.NewTabs = append(h.NewTabs, tab)
	}
	if len(reqs) > 0 {
		_, err := g.sheets.Spreadsheets.BatchUpdate(id, &sheets.BatchUpdateSpreadsheetRequest{Requests: reqs}).Context(ctx).Do()
		if err != nil {
			return Handle{}, fmt.Errorf("failed to add tabs: %w", err)
		}
	}

	g.logger.Info("Reusing spreadsheet", zap.String("name", name), zap.String("id", id))
	return h, nil
}

func (g *Google) find(ctx context.Context, name string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(name), spreadsheetMIME)
	list, err := g.drive.Files.List().Q(q).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to search spreadsheets: %w", err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

func (g *Google) create(ctx context.Context, name string, tabs []string) (Handle, error) {
	ss := &sheets.Spreadsheet{Properties: &sheets.SpreadsheetProperties{Title: name}}
	for _, tab := range tabs {
		ss.Sheets = append(ss.Sheets, &sheets.Sheet{Properties: &sheets.SheetProperties{Title: tab}})
	}

	created, err := g.sheets.Spreadsheets.Create(ss).Context(ctx).Do()
	if err != nil {
		return Handle{}, fmt.Errorf("failed to create spreadsheet: %w", err)
	}
	g.logger.Info("Created spreadsheet", zap.String("name", name), zap.String("id", created.SpreadsheetId))

	if g.shareWith != "" {
		perm := &drive.Permission{Type: "user", Role: "writer", EmailAddress: g.shareWith}
		if _, err := g.drive.Permissions.Create(created.SpreadsheetId, perm).SendNotificationEmail(false).Context(ctx).Do(); err != nil {
			g.logger.Warn("Could not share spreadsheet", zap.String("email", g.shareWith), zap.Error(err))
		} else {
			g.logger.Info("Shared spreadsheet", zap.String("email", g.shareWith))
		}
	}

	return Handle{
		ID:      created.SpreadsheetId,
		Name:    name,
		URL:     created.SpreadsheetUrl,
		NewTabs: append([]string(nil), tabs...),
	}, nil
}

func (g *Google) AppendRows(ctx context.Context, h Handle, tab string, rows [][]any) error {
	vr := &sheets.ValueRange{Values: rows}
	_, err := g.sheets.Spreadsheets.Values.Append(h.ID, a1(tab), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append rows: %w", err)
	}
	return nil
}

func (g *Google) FormatHeader(ctx context.Context, h Handle, tab string) error {
	ss, err := g.sheets.Spreadsheets.Get(h.ID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read spreadsheet: %w", err)
	}

	var sheetID int64 = -1
	for _, s := range ss.Sheets {
		if s.Properties.Title == tab {
			sheetID = s.Properties.SheetId
			break
		}
	}
	if sheetID < 0 {
		return fmt.Errorf("tab %s not found", tab)
	}

	reqs := []*sheets.Request{
		{RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{SheetId: sheetID, StartRowIndex: 0, EndRowIndex: 1, ForceSendFields: []string{"SheetId"}},
			Cell: &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{
				TextFormat: &sheets.TextFormat{Bold: true},
			}},
			Fields: "userEnteredFormat.textFormat.bold",
		}},
		{UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
			Properties: &sheets.SheetProperties{
				SheetId:         sheetID,
				GridProperties:  &sheets.GridProperties{FrozenRowCount: 1},
				ForceSendFields: []string{"SheetId"},
			},
			Fields: "gridProperties.frozenRowCount",
		}},
	}

	_, err = g.sheets.Spreadsheets.BatchUpdate(h.ID, &sheets.BatchUpdateSpreadsheetRequest{Requests: reqs}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to format header: %w", err)
	}
	return nil
}

// a1 quotes a tab name for use in an A1 range.
func a1(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'!A1"
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
