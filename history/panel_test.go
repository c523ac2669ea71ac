package history

import (
	"context"
	"errors"
	"testing"

	"virtual-ward-intake/models"
	"virtual-ward-intake/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTable struct {
	*storage.MemoryTable
	reads   int
	readErr error
}

func (c *countingTable) ReadAll(ctx context.Context) ([]models.Record, error) {
	c.reads++
	if c.readErr != nil {
		return nil, c.readErr
	}
	return c.MemoryTable.ReadAll(ctx)
}

func seeded(t *testing.T) *countingTable {
	t.Helper()
	cols := models.DefaultColumns()
	table := &countingTable{MemoryTable: storage.NewMemoryTable(cols.Header())}
	ctx := context.Background()
	for _, row := range [][]string{
		{"001", "120/80", "72", "98", "a.pdf", "1 KB", "2024-01-01 10:00:00", "l1"},
		{"1", "130/85", "80", "97", "b.pdf", "1 KB", "2024-01-02 10:00:00", "l2"},
		{"001", "118/79", "70", "99", "c.pdf", "1 KB", "2024-01-03 10:00:00", "l3"},
		{"001 ", "140/90", "88", "95", "d.pdf", "1 KB", "2024-01-04 10:00:00", "l4"},
	} {
		require.NoError(t, table.MemoryTable.Append(ctx, row))
	}
	return table
}

func TestRows_ExactMatchOnly(t *testing.T) {
	table := seeded(t)
	panel := NewPanel(table, models.DefaultColumns())

	rows, err := panel.Rows(context.Background(), "001")
	require.NoError(t, err)

	assert.Equal(t, []models.HistoryEntry{
		{HN: "001", BP: "120/80", HR: "72", O2: "98", UploadTime: "2024-01-01 10:00:00"},
		{HN: "001", BP: "118/79", HR: "70", O2: "99", UploadTime: "2024-01-03 10:00:00"},
	}, rows)
}

func TestRows_EmptyFilterShowsNothing(t *testing.T) {
	table := seeded(t)
	panel := NewPanel(table, models.DefaultColumns())

	rows, err := panel.Rows(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)
	assert.Zero(t, table.reads)
}

func TestRows_NoMatch(t *testing.T) {
	panel := NewPanel(seeded(t), models.DefaultColumns())

	rows, err := panel.Rows(context.Background(), "999")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRows_ReadError(t *testing.T) {
	table := seeded(t)
	table.readErr = errors.New("quota")
	panel := NewPanel(table, models.DefaultColumns())

	_, err := panel.Rows(context.Background(), "001")
	assert.Error(t, err)
}

func TestHeaders(t *testing.T) {
	panel := NewPanel(nil, models.DefaultColumns())
	assert.Equal(t, []string{"HN", "BP", "HR", "O2_sat", "Upload_Time"}, panel.Headers())
}
