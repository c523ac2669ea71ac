package storage

import (
	"context"
	"fmt"

	"virtual-ward-intake/models"
)

// Table is one worksheet: row 1 is the header, every other row is data.
type Table interface {
	Header(ctx context.Context) ([]string, error)
	ReadAll(ctx context.Context) ([]models.Record, error)
	Append(ctx context.Context, row []string) error
	WriteHeader(ctx context.Context, header []string) error
}

// Journal keeps appends that failed after their blob was uploaded.
type Journal interface {
	Initialize() error
	SavePending(ctx context.Context, p models.PendingAppend) error
	ListPending(ctx context.Context) ([]models.PendingAppend, error)
	RecordAttempt(ctx context.Context, id string, lastErr string) error
	MarkResolved(ctx context.Context, id string) error
	Close() error
}

// recordsFromRows maps data rows onto header names. Short rows are padded
// with "" and cells under a blank header are dropped.
func recordsFromRows(header []string, rows [][]string) []models.Record {
	records := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		rec := make(models.Record, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(row) {
				rec[name] = row[i]
			} else {
				rec[name] = ""
			}
		}
		records = append(records, rec)
	}
	return records
}

func cellsToStrings(cells []interface{}) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if c == nil {
			continue
		}
		if s, ok := c.(string); ok {
			out[i] = s
			continue
		}
		out[i] = fmt.Sprint(c)
	}
	return out
}

func stringsToCells(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}
