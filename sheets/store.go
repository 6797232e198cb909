// Package sheets persists enrichment outcomes to a two-tab spreadsheet.
package sheets

import "context"

// Handle identifies a spreadsheet opened for a run.
type Handle struct {
	ID   string
	Name string
	URL  string
	// NewTabs lists tabs created by CreateOrReuse that still need a header.
	NewTabs []string
}

// Store is the spreadsheet backend.
type Store interface {
	// CreateOrReuse opens the spreadsheet called name, creating it and any
	// missing tabs when needed.
	CreateOrReuse(ctx context.Context, name string, tabs []string) (Handle, error)
	// AppendRows appends rows after the last populated row of tab in one call.
	AppendRows(ctx context.Context, h Handle, tab string, rows [][]any) error
	// FormatHeader bolds and freezes the first row of tab.
	FormatHeader(ctx context.Context, h Handle, tab string) error
}
