// Package sheets defines the spreadsheet source consumed by the pricing
// pipeline and provides a Google Sheets backed implementation.
//
// A source exposes an ordered list of sheets. Each sheet represents one
// bank's rate table: the title maps to a bank identifier, the header row
// carries insurer names (first cell reserved), and data rows carry a
// row-type label in the first cell with per-insurer values after it.
package sheets

import "context"

// Source exposes an ordered list of sheets from one spreadsheet document.
type Source interface {
	Sheets(ctx context.Context) ([]Sheet, error)
}

// Sheet is one tabular data source. Header and Rows are loaded lazily; the
// title is available without I/O.
type Sheet interface {
	// Title returns the sheet title (a bank display name).
	Title() string

	// Header returns the header row: first cell reserved, subsequent
	// cells are insurer display names.
	Header(ctx context.Context) ([]string, error)

	// Rows returns the data rows below the header, each an ordered list
	// of raw cell strings.
	Rows(ctx context.Context) ([][]string, error)
}
