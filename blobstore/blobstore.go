// Package blobstore mirrors uploaded attachments to a file store and hands
// back a link anyone can open.
package blobstore

import (
	"context"
	"errors"
	"fmt"
)

const PDFMimeType = "application/pdf"

var ErrBlobNotFound = errors.New("blob not found")

// Object is a stored, link-shared file.
type Object struct {
	ID   string
	Name string
	Link string
}

type Store interface {
	// Upload creates remoteName under parentID (root when empty) from the
	// local file and makes it viewable by anyone with the link.
	Upload(ctx context.Context, localPath, remoteName, parentID string) (*Object, error)
	Delete(ctx context.Context, id string) error
}

// Lister enumerates the objects in a folder.
type Lister interface {
	List(ctx context.Context, folderID string) ([]Object, error)
}

// ShareError means the file was created but the permission grant failed.
// CleanupErr is nil when the unshared file was removed again.
type ShareError struct {
	FileID     string
	Err        error
	CleanupErr error
}

func (e *ShareError) Error() string {
	if e.CleanupErr != nil {
		return fmt.Sprintf("failed to share file %s: %v (cleanup failed, file left unshared: %v)", e.FileID, e.Err, e.CleanupErr)
	}
	return fmt.Sprintf("failed to share file %s: %v (file removed)", e.FileID, e.Err)
}

func (e *ShareError) Unwrap() error { return e.Err }

// Orphaned reports whether an unshared file is still in the store.
func (e *ShareError) Orphaned() bool { return e.CleanupErr != nil }
