// Package app builds the process-wide session: credentials, the two store
// clients, the journal, and the services that use them.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"virtual-ward-intake/auth"
	"virtual-ward-intake/blobstore"
	"virtual-ward-intake/config"
	"virtual-ward-intake/history"
	"virtual-ward-intake/intake"
	"virtual-ward-intake/storage"

	"github.com/rs/zerolog"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Session is opened once at startup and closed on exit. Nothing in it
// re-authenticates on its own.
type Session struct {
	Config  *config.Config
	Log     zerolog.Logger
	Table   storage.Table
	Blobs   blobstore.Store
	Journal storage.Journal
	Intake  *intake.Service
	History *history.Panel
}

func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Session, error) {
	var (
		table storage.Table
		blobs blobstore.Store
		err   error
	)

	if cfg.Sandbox {
		logger.Warn().Msg("sandbox mode: records are kept in memory and lost on exit")
		table = storage.NewMemoryTable(cfg.Columns().Header())
		blobs = blobstore.NewMemoryStore()
	} else {
		table, err = openTable(ctx, cfg)
		if err != nil {
			return nil, err
		}
		blobs, err = openBlobs(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	return NewSession(cfg, logger, table, blobs)
}

// NewSession assembles a session around already-open stores.
func NewSession(cfg *config.Config, logger zerolog.Logger, table storage.Table, blobs blobstore.Store) (*Session, error) {
	compensation, err := intake.ParseCompensation(cfg.Compensation)
	if err != nil {
		return nil, err
	}

	var journal storage.Journal
	if compensation == intake.CompensateJournal {
		j := storage.NewSQLiteJournal(cfg.JournalPath)
		if err := j.Initialize(); err != nil {
			return nil, fmt.Errorf("failed to initialize journal: %w", err)
		}
		journal = j
	}

	svc := intake.NewService(table, blobs, journal, intake.Options{
		FolderID:         cfg.DriveFolderID,
		TempDir:          cfg.TempDir,
		Columns:          cfg.Columns(),
		AllowDuplicateHN: cfg.AllowDuplicateHN,
		AppendAttempts:   cfg.AppendAttempts,
		RetryBackoff:     time.Duration(cfg.RetryBackoffMS) * time.Millisecond,
		MaxUploadBytes:   cfg.MaxUploadBytes(),
		Compensation:     compensation,
	}, logger)

	return &Session{
		Config:  cfg,
		Log:     logger,
		Table:   table,
		Blobs:   blobs,
		Journal: journal,
		Intake:  svc,
		History: history.NewPanel(table, cfg.Columns()),
	}, nil
}

func (s *Session) Close() error {
	if s.Journal != nil {
		return s.Journal.Close()
	}
	return nil
}

func authenticate(ctx context.Context, cfg *config.Config, scopes []string) (option.ClientOption, error) {
	authenticator, err := auth.NewGoogleAuthenticator(auth.Config{
		CredentialsJSON: cfg.CredentialsJSON(),
		CredentialsPath: cfg.GoogleCredentialsFile,
		Scopes:          scopes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate authenticator: %w", err)
	}

	client, err := authenticator.GetHTTPClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate (%s): %w", strings.Join(scopes, " "), err)
	}
	return option.WithHTTPClient(client), nil
}

func openTable(ctx context.Context, cfg *config.Config) (*storage.SheetsTable, error) {
	clientOpt, err := authenticate(ctx, cfg, auth.SheetScopes)
	if err != nil {
		return nil, err
	}

	sheetsSvc, err := sheets.NewService(ctx, clientOpt)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Sheets client: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, clientOpt)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}

	return storage.OpenSheet(ctx, sheetsSvc, driveSvc, storage.SheetRef{
		SpreadsheetID:   cfg.SpreadsheetID,
		SpreadsheetName: cfg.SpreadsheetName,
		SheetName:       cfg.SheetName,
	})
}

func openBlobs(ctx context.Context, cfg *config.Config) (*blobstore.DriveStore, error) {
	clientOpt, err := authenticate(ctx, cfg, auth.DriveFileScopes)
	if err != nil {
		return nil, err
	}

	driveSvc, err := drive.NewService(ctx, clientOpt)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}
	return blobstore.NewDriveStore(driveSvc), nil
}
