package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNoHeader = errors.New("sheet has no header row")

// Columns names the sheet header cell for each SheetRow field.
type Columns struct {
	HN         string
	BP         string
	HR         string
	O2         string
	FileName   string
	FileSize   string
	UploadTime string
	Link       string
}

func DefaultColumns() Columns {
	return Columns{
		HN:         "HN",
		BP:         "BP",
		HR:         "HR",
		O2:         "O2_sat",
		FileName:   "File_Name",
		FileSize:   "File_Size",
		UploadTime: "Upload_Time",
		Link:       "Drive_Link",
	}
}

// Header returns the column names in canonical row order.
func (c Columns) Header() []string {
	return []string{c.HN, c.BP, c.HR, c.O2, c.FileName, c.FileSize, c.UploadTime, c.Link}
}

func (c Columns) values(row SheetRow) map[string]string {
	return map[string]string{
		c.HN:         row.HN,
		c.BP:         row.BP,
		c.HR:         row.HR,
		c.O2:         row.O2,
		c.FileName:   row.FileName,
		c.FileSize:   row.FileSize,
		c.UploadTime: row.UploadTime,
		c.Link:       row.Link,
	}
}

// SchemaError reports header cells that do not line up with Columns.
type SchemaError struct {
	Missing    []string
	Duplicated []string
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Duplicated) > 0 {
		parts = append(parts, "duplicated columns: "+strings.Join(e.Duplicated, ", "))
	}
	return "sheet header mismatch: " + strings.Join(parts, "; ")
}

// Check validates a fetched header against the configured columns.
func (c Columns) Check(header []string) error {
	if len(header) == 0 {
		return ErrNoHeader
	}

	seen := make(map[string]int, len(header))
	for _, h := range header {
		seen[h]++
	}

	schemaErr := &SchemaError{}
	for _, name := range c.Header() {
		switch n := seen[name]; {
		case n == 0:
			schemaErr.Missing = append(schemaErr.Missing, name)
		case n > 1:
			schemaErr.Duplicated = append(schemaErr.Duplicated, name)
		}
	}

	if len(schemaErr.Missing) > 0 || len(schemaErr.Duplicated) > 0 {
		return schemaErr
	}
	return nil
}

// Build lays the row out in header order. Header cells that are not one of
// the known columns are left empty.
func (c Columns) Build(header []string, row SheetRow) ([]string, error) {
	if err := c.Check(header); err != nil {
		return nil, err
	}

	byName := c.values(row)
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = byName[h]
	}
	return out, nil
}

// Entry projects a record onto the history panel columns.
func (c Columns) Entry(r Record) HistoryEntry {
	return HistoryEntry{
		HN:         r[c.HN],
		BP:         r[c.BP],
		HR:         r[c.HR],
		O2:         r[c.O2],
		UploadTime: r[c.UploadTime],
	}
}

// Validate rejects column sets with blank or repeated names.
func (c Columns) Validate() error {
	seen := make(map[string]bool)
	for _, name := range c.Header() {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("column name must not be empty")
		}
		if seen[name] {
			return fmt.Errorf("column %q configured twice", name)
		}
		seen[name] = true
	}
	return nil
}
