package testutil

import (
	"context"
	"sync"

	"github.com/tilda-bridge/finuslugi-proxy/pkg/sheets"
)

// FakeSheet is an in-memory sheets.Sheet.
type FakeSheet struct {
	SheetTitle string
	HeaderRow  []string
	DataRows   [][]string

	mu        sync.Mutex
	LoadCount int
}

// Title implements sheets.Sheet.
func (f *FakeSheet) Title() string {
	return f.SheetTitle
}

// Header implements sheets.Sheet.
func (f *FakeSheet) Header(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	f.LoadCount++
	f.mu.Unlock()
	return f.HeaderRow, nil
}

// Rows implements sheets.Sheet.
func (f *FakeSheet) Rows(ctx context.Context) ([][]string, error) {
	f.mu.Lock()
	f.LoadCount++
	f.mu.Unlock()
	return f.DataRows, nil
}

// Loads returns the number of header/row loads performed on this sheet.
func (f *FakeSheet) Loads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.LoadCount
}

// FakeSheetSource is an in-memory sheets.Source.
type FakeSheetSource struct {
	SheetList []*FakeSheet

	mu        sync.Mutex
	ListCount int
}

// Sheets implements sheets.Source.
func (f *FakeSheetSource) Sheets(ctx context.Context) ([]sheets.Sheet, error) {
	f.mu.Lock()
	f.ListCount++
	f.mu.Unlock()

	result := make([]sheets.Sheet, 0, len(f.SheetList))
	for _, s := range f.SheetList {
		result = append(result, s)
	}
	return result, nil
}

// Lists returns the number of Sheets calls made against the source.
func (f *FakeSheetSource) Lists() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ListCount
}
