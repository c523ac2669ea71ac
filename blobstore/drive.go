package blobstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

type DriveStore struct {
	service *drive.Service
}

func NewDriveStore(service *drive.Service) *DriveStore {
	return &DriveStore{service: service}
}

func (d *DriveStore) Upload(ctx context.Context, localPath, remoteName, parentID string) (*Object, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	meta := &drive.File{Name: remoteName, MimeType: PDFMimeType}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	created, err := d.service.Files.Create(meta).
		Media(f, googleapi.ContentType(PDFMimeType)).
		Fields("id, name, webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create file %q: %w", remoteName, err)
	}
	log.Info().Str("file_id", created.Id).Str("name", remoteName).Msg("created drive file")

	_, err = d.service.Permissions.Create(created.Id, &drive.Permission{Type: "anyone", Role: "reader"}).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		shareErr := &ShareError{FileID: created.Id, Err: err}
		// The grant may have failed because ctx was cancelled; the cleanup
		// must still run.
		if delErr := d.Delete(context.WithoutCancel(ctx), created.Id); delErr != nil {
			shareErr.CleanupErr = delErr
		}
		log.Warn().Err(err).Str("file_id", created.Id).Bool("orphaned", shareErr.Orphaned()).Msg("permission grant failed")
		return nil, shareErr
	}

	link := created.WebViewLink
	if link == "" {
		link = fmt.Sprintf("https://drive.google.com/file/d/%s/view?usp=sharing", created.Id)
	}

	return &Object{ID: created.Id, Name: created.Name, Link: link}, nil
}

func (d *DriveStore) Delete(ctx context.Context, id string) error {
	err := d.service.Files.Delete(id).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return ErrBlobNotFound
		}
		return fmt.Errorf("failed to delete file %s: %w", id, err)
	}
	return nil
}

// List returns every non-trashed file directly under folderID, following
// page tokens.
func (d *DriveStore) List(ctx context.Context, folderID string) ([]Object, error) {
	var objects []Object
	query := fmt.Sprintf("'%s' in parents and trashed=false", folderID)
	pageToken := ""

	for {
		call := d.service.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, webViewLink)").
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			PageSize(100).
			Context(ctx)

		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		response, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list files: %w", err)
		}

		for _, file := range response.Files {
			objects = append(objects, Object{ID: file.Id, Name: file.Name, Link: file.WebViewLink})
		}

		pageToken = response.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return objects, nil
}
