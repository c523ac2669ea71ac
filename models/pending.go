package models

import "time"

// PendingAppend is a row whose blob was uploaded but whose append never
// landed in the sheet.
type PendingAppend struct {
	ID             string
	IdempotencyKey string
	Row            SheetRow
	BlobID         string
	Link           string
	LastError      string
	Attempts       int
	CreatedAt      time.Time
}
