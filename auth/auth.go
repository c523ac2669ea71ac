package auth

import (
	"context"
	"net/http"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"
)

type Authenticator interface {
	GetHTTPClient(ctx context.Context) (*http.Client, error)
}

// Config points at the service account key. CredentialsJSON wins over
// CredentialsPath when both are set.
type Config struct {
	CredentialsJSON []byte
	CredentialsPath string
	Scopes          []string
}

// Scopes for the tabular client. Drive access is needed to resolve a
// spreadsheet by its display name.
var SheetScopes = []string{sheets.SpreadsheetsScope, drive.DriveScope}

// Scopes for the blob client.
var DriveFileScopes = []string{drive.DriveFileScope}
