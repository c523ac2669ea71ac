// Package history shows earlier submissions for one patient. It never
// returns rows for more than the HN asked for.
package history

import (
	"context"
	"fmt"

	"virtual-ward-intake/models"
	"virtual-ward-intake/storage"
)

type Panel struct {
	table   storage.Table
	columns models.Columns
}

func NewPanel(table storage.Table, columns models.Columns) *Panel {
	return &Panel{table: table, columns: columns}
}

// Headers are the column titles the panel displays, in order.
func (p *Panel) Headers() []string {
	c := p.columns
	return []string{c.HN, c.BP, c.HR, c.O2, c.UploadTime}
}

// Rows returns every entry whose HN equals hn exactly. An empty hn yields
// no rows and no read.
func (p *Panel) Rows(ctx context.Context, hn string) ([]models.HistoryEntry, error) {
	if hn == "" {
		return []models.HistoryEntry{}, nil
	}

	records, err := p.table.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return Filter(records, p.columns, hn), nil
}

func Filter(records []models.Record, columns models.Columns, hn string) []models.HistoryEntry {
	out := []models.HistoryEntry{}
	if hn == "" {
		return out
	}
	for _, r := range records {
		if r[columns.HN] == hn {
			out = append(out, columns.Entry(r))
		}
	}
	return out
}
