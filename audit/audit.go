// Package audit cross-checks the upload folder against the sheet. Create
// and share are separate remote calls, and an append can fail after both,
// so blobs can exist that no row points at.
package audit

import (
	"context"
	"fmt"
	"strings"

	"virtual-ward-intake/blobstore"
	"virtual-ward-intake/models"
	"virtual-ward-intake/storage"
)

type Report struct {
	Blobs int
	Rows  int
	// Orphans are blobs no row and no pending append refers to.
	Orphans []blobstore.Object
	// Pending are blobs waiting on a journaled append.
	Pending []blobstore.Object
	// Dangling are rows whose link matches no blob in the folder.
	Dangling []models.Record
}

type Auditor struct {
	blobs   blobstore.Lister
	table   storage.Table
	journal storage.Journal
	columns models.Columns
}

// NewAuditor builds an auditor. journal may be nil.
func NewAuditor(blobs blobstore.Lister, table storage.Table, journal storage.Journal, columns models.Columns) *Auditor {
	return &Auditor{blobs: blobs, table: table, journal: journal, columns: columns}
}

func (a *Auditor) Run(ctx context.Context, folderID string) (*Report, error) {
	objects, err := a.blobs.List(ctx, folderID)
	if err != nil {
		return nil, err
	}
	records, err := a.table.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	var pendingLinks []string
	if a.journal != nil {
		pending, err := a.journal.ListPending(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read journal: %w", err)
		}
		for _, p := range pending {
			pendingLinks = append(pendingLinks, p.Link)
		}
	}

	rowLinks := make([]string, 0, len(records))
	for _, r := range records {
		rowLinks = append(rowLinks, r[a.columns.Link])
	}

	report := &Report{Blobs: len(objects), Rows: len(records)}
	for _, obj := range objects {
		switch {
		case referenced(obj, rowLinks):
		case referenced(obj, pendingLinks):
			report.Pending = append(report.Pending, obj)
		default:
			report.Orphans = append(report.Orphans, obj)
		}
	}

	for i, r := range records {
		link := rowLinks[i]
		if link == "" {
			continue
		}
		found := false
		for _, obj := range objects {
			if referenced(obj, []string{link}) {
				found = true
				break
			}
		}
		if !found {
			report.Dangling = append(report.Dangling, r)
		}
	}
	return report, nil
}

// referenced matches on the exact link or on the blob ID inside it, since
// Drive view links embed the file ID.
func referenced(obj blobstore.Object, links []string) bool {
	for _, l := range links {
		if l == "" {
			continue
		}
		if l == obj.Link || (obj.ID != "" && strings.Contains(l, obj.ID)) {
			return true
		}
	}
	return false
}
