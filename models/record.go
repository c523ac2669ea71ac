package models

import (
	"fmt"
	"time"
)

// TimestampLayout is the local wall-clock format written to Upload_Time.
const TimestampLayout = "2006-01-02 15:04:05"

type PatientRecord struct {
	HN string
	BP string
	HR string
	O2 string
}

type UploadedFile struct {
	Name       string
	SizeBytes  int64
	UploadedAt time.Time
	BlobID     string
	Link       string
}

// SizeKB renders the size the way the sheet stores it, e.g. "42 KB".
func (f UploadedFile) SizeKB() string {
	return fmt.Sprintf("%d KB", f.SizeBytes/1024)
}

func (f UploadedFile) Timestamp() string {
	return f.UploadedAt.Format(TimestampLayout)
}

// IdempotencyKey identifies one logical append across retries.
func (f UploadedFile) IdempotencyKey() string {
	return f.Name + "|" + f.Timestamp()
}

// SheetRow is one appended row, held by field name rather than position.
type SheetRow struct {
	HN         string
	BP         string
	HR         string
	O2         string
	FileName   string
	FileSize   string
	UploadTime string
	Link       string
}

func NewSheetRow(rec PatientRecord, file UploadedFile) SheetRow {
	return SheetRow{
		HN:         rec.HN,
		BP:         rec.BP,
		HR:         rec.HR,
		O2:         rec.O2,
		FileName:   file.Name,
		FileSize:   file.SizeKB(),
		UploadTime: file.Timestamp(),
		Link:       file.Link,
	}
}

// Record is one data row read back from the sheet, keyed by header name.
type Record map[string]string

// HistoryEntry is the subset of a record the history panel displays.
type HistoryEntry struct {
	HN         string `json:"hn"`
	BP         string `json:"bp"`
	HR         string `json:"hr"`
	O2         string `json:"o2_sat"`
	UploadTime string `json:"upload_time"`
}
