package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"virtual-ward-intake/models"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"
)

const SpreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

var (
	ErrSpreadsheetNotFound = errors.New("spreadsheet not found")
	ErrSheetNotFound       = errors.New("worksheet not found")
)

// SheetRef identifies the worksheet to open. SpreadsheetID skips the
// lookup by name when set.
type SheetRef struct {
	SpreadsheetID   string
	SpreadsheetName string
	SheetName       string
}

type SheetsTable struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
}

// OpenSheet resolves the spreadsheet and checks that the worksheet exists.
func OpenSheet(ctx context.Context, sheetsSvc *sheets.Service, driveSvc *drive.Service, ref SheetRef) (*SheetsTable, error) {
	id := ref.SpreadsheetID
	if id == "" {
		if driveSvc == nil {
			return nil, fmt.Errorf("spreadsheet %q: no drive service to resolve name", ref.SpreadsheetName)
		}
		resolved, err := ResolveSpreadsheetID(ctx, driveSvc, ref.SpreadsheetName)
		if err != nil {
			return nil, err
		}
		id = resolved
	}

	ss, err := sheetsSvc.Spreadsheets.Get(id).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet %s: %w", id, err)
	}

	found := false
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == ref.SheetName {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %q in spreadsheet %s", ErrSheetNotFound, ref.SheetName, id)
	}

	log.Info().Str("spreadsheet_id", id).Str("sheet", ref.SheetName).Msg("opened worksheet")
	return &SheetsTable{
		service:       sheetsSvc,
		spreadsheetID: id,
		sheetName:     ref.SheetName,
	}, nil
}

// ResolveSpreadsheetID finds a spreadsheet by display name. When several
// share the name, the most recently modified one wins.
func ResolveSpreadsheetID(ctx context.Context, service *drive.Service, name string) (string, error) {
	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQuery(name), SpreadsheetMimeType)

	response, err := service.Files.List().
		Q(query).
		Fields("files(id, name, modifiedTime)").
		OrderBy("modifiedTime desc").
		PageSize(10).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to look up spreadsheet %q: %w", name, err)
	}

	if len(response.Files) == 0 {
		return "", fmt.Errorf("%w: %q", ErrSpreadsheetNotFound, name)
	}
	if len(response.Files) > 1 {
		log.Warn().
			Int("matches", len(response.Files)).
			Str("name", name).
			Str("spreadsheet_id", response.Files[0].Id).
			Msg("several spreadsheets share this name, using the most recent")
	}
	return response.Files[0].Id, nil
}

func (s *SheetsTable) SpreadsheetID() string {
	return s.spreadsheetID
}

func (s *SheetsTable) Header(ctx context.Context) ([]string, error) {
	vr, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.a1("1:1")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(vr.Values) == 0 {
		return nil, nil
	}
	return cellsToStrings(vr.Values[0]), nil
}

func (s *SheetsTable) ReadAll(ctx context.Context) ([]models.Record, error) {
	vr, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.a1("")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(vr.Values) == 0 {
		return []models.Record{}, nil
	}

	header := cellsToStrings(vr.Values[0])
	rows := make([][]string, 0, len(vr.Values)-1)
	for _, cells := range vr.Values[1:] {
		rows = append(rows, cellsToStrings(cells))
	}
	return recordsFromRows(header, rows), nil
}

// Append writes RAW values so they read back exactly as sent.
func (s *SheetsTable) Append(ctx context.Context, row []string) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{stringsToCells(row)}}
	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.a1(""), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}

func (s *SheetsTable) WriteHeader(ctx context.Context, header []string) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{stringsToCells(header)}}
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.a1("A1"), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

// a1 quotes the sheet name, which may hold spaces or non-Latin text.
func (s *SheetsTable) a1(cells string) string {
	quoted := "'" + strings.ReplaceAll(s.sheetName, "'", "''") + "'"
	if cells == "" {
		return quoted
	}
	return quoted + "!" + cells
}

func escapeQuery(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}
