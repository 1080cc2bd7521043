package sheets

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// GoogleConfig holds the Google Sheets source configuration.
type GoogleConfig struct {
	// SpreadsheetID is the id of the rate workbook.
	SpreadsheetID string

	// CredentialsJSON is the service account key used to read the
	// workbook.
	CredentialsJSON []byte
}

// GoogleSource reads sheets from a Google Sheets workbook via the Sheets
// API v4. An instance is safe for concurrent use and is meant to be
// constructed once and shared by reference.
type GoogleSource struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	logger        zerolog.Logger
}

// NewGoogleSource creates a Google Sheets backed source.
func NewGoogleSource(ctx context.Context, cfg GoogleConfig, logger zerolog.Logger) (*GoogleSource, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}

	svc, err := sheetsapi.NewService(ctx,
		option.WithCredentialsJSON(cfg.CredentialsJSON),
		option.WithScopes(sheetsapi.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &GoogleSource{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// Sheets lists the workbook's sheets in document order. Only metadata is
// fetched here; cell data is loaded lazily per sheet.
func (s *GoogleSource) Sheets(ctx context.Context) ([]Sheet, error) {
	doc, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("load spreadsheet info: %w", err)
	}

	result := make([]Sheet, 0, len(doc.Sheets))
	for _, sh := range doc.Sheets {
		if sh.Properties == nil {
			continue
		}
		result = append(result, &googleSheet{
			source: s,
			title:  sh.Properties.Title,
		})
	}

	s.logger.Debug().
		Int("sheet_count", len(result)).
		Msg("Loaded spreadsheet info")

	return result, nil
}

// googleSheet lazily loads one sheet's cells on first access.
type googleSheet struct {
	source *GoogleSource
	title  string

	mu     sync.Mutex
	loaded bool
	cells  [][]string
}

func (g *googleSheet) Title() string {
	return g.title
}

func (g *googleSheet) Header(ctx context.Context) ([]string, error) {
	cells, err := g.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(cells) == 0 {
		return nil, nil
	}
	return cells[0], nil
}

func (g *googleSheet) Rows(ctx context.Context) ([][]string, error) {
	cells, err := g.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(cells) <= 1 {
		return nil, nil
	}
	return cells[1:], nil
}

// load fetches the sheet's cell values once and memoizes them.
func (g *googleSheet) load(ctx context.Context) ([][]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.loaded {
		return g.cells, nil
	}

	// Quoting the title makes titles with spaces valid A1 ranges.
	resp, err := g.source.svc.Spreadsheets.Values.
		Get(g.source.spreadsheetID, fmt.Sprintf("'%s'", g.title)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("load sheet %q: %w", g.title, err)
	}

	cells := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cellRow := make([]string, 0, len(row))
		for _, cell := range row {
			cellRow = append(cellRow, fmt.Sprint(cell))
		}
		cells = append(cells, cellRow)
	}

	g.cells = cells
	g.loaded = true

	g.source.logger.Debug().
		Str("sheet", g.title).
		Int("rows", len(cells)).
		Msg("Loaded sheet cells")

	return g.cells, nil
}
