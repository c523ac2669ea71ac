package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"virtual-ward-intake/blobstore"
	"virtual-ward-intake/models"
	"virtual-ward-intake/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is where a submission cycle stands.
type State string

const (
	StateIdle      State = "idle"
	StateEditing   State = "editing"
	StateSubmitted State = "submitted"
	StateSuccess   State = "success"
	StateError     State = "error"
)

// StateAfter maps the outcome of Submit onto the terminal state.
func StateAfter(err error) State {
	if err != nil {
		return StateError
	}
	return StateSuccess
}

type Attachment struct {
	Name    string
	Content io.Reader
}

type Submission struct {
	HN   string
	BP   string
	HR   string
	O2   string
	File *Attachment
}

func (s Submission) Record() models.PatientRecord {
	return models.PatientRecord{HN: s.HN, BP: s.BP, HR: s.HR, O2: s.O2}
}

type Result struct {
	Record models.PatientRecord
	File   models.UploadedFile
	Row    []string
}

type Options struct {
	FolderID         string
	TempDir          string
	Columns          models.Columns
	AllowDuplicateHN bool
	AppendAttempts   int
	RetryBackoff     time.Duration
	MaxUploadBytes   int64
	Compensation     Compensation
	Now              func() time.Time
}

type Service struct {
	table   storage.Table
	blobs   blobstore.Store
	journal storage.Journal
	opts    Options
	log     zerolog.Logger
}

// NewService wires the controller. journal may be nil, in which case a
// failed append falls back to deleting the uploaded blob.
func NewService(table storage.Table, blobs blobstore.Store, journal storage.Journal, opts Options, logger zerolog.Logger) *Service {
	if opts.AppendAttempts < 1 {
		opts.AppendAttempts = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Compensation == "" {
		opts.Compensation = CompensateJournal
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	return &Service{
		table:   table,
		blobs:   blobs,
		journal: journal,
		opts:    opts,
		log:     logger.With().Str("component", "intake").Logger(),
	}
}

func (s *Service) Columns() models.Columns {
	return s.opts.Columns
}

// Validate checks required fields and the attachment. With duplicates
// disallowed it also reads the sheet to look for the HN.
func (s *Service) Validate(ctx context.Context, sub Submission) error {
	v := &ValidationError{}
	required := []struct{ field, value, label string }{
		{"hn", sub.HN, "HN"},
		{"bp", sub.BP, "BP"},
		{"hr", sub.HR, "HR"},
		{"o2", sub.O2, "O2"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			v.Fields = append(v.Fields, FieldError{Field: r.field, Message: r.label + " is required"})
		}
	}

	switch {
	case sub.File == nil || sub.File.Content == nil || sub.File.Name == "":
		v.Fields = append(v.Fields, FieldError{Field: "file", Message: "an ECG PDF must be attached"})
	case !strings.EqualFold(filepath.Ext(sub.File.Name), ".pdf"):
		v.Fields = append(v.Fields, FieldError{Field: "file", Message: "only PDF files are accepted"})
	}

	if len(v.Fields) > 0 {
		return v
	}

	if !s.opts.AllowDuplicateHN {
		records, err := s.table.ReadAll(ctx)
		if err != nil {
			return &RemoteError{Step: StepReadAll, Err: err}
		}
		for _, rec := range records {
			if rec[s.opts.Columns.HN] == sub.HN {
				return &ValidationError{Fields: []FieldError{{Field: "hn", Message: "HN " + sub.HN + " is already recorded"}}}
			}
		}
	}
	return nil
}

// Submit runs one submission: header check, stage the file locally, upload
// it, append the row, remove the local copy.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Result, error) {
	if err := s.Validate(ctx, sub); err != nil {
		return nil, err
	}

	header, err := s.table.Header(ctx)
	if err != nil {
		return nil, &RemoteError{Step: StepHeader, Err: err}
	}
	if err := s.opts.Columns.Check(header); err != nil {
		return nil, err
	}

	logger := s.log.With().Str("hn", sub.HN).Str("file", sub.File.Name).Logger()
	logger.Info().Str("state", string(StateSubmitted)).Msg("submission accepted")

	file := models.UploadedFile{Name: sub.File.Name, UploadedAt: s.opts.Now()}

	tmpPath, size, err := s.stage(sub.File)
	if err != nil {
		return nil, err
	}
	defer s.removeStaged(tmpPath)
	file.SizeBytes = size

	obj, err := s.blobs.Upload(ctx, tmpPath, RemoteName(file), s.opts.FolderID)
	if err != nil {
		return nil, &RemoteError{Step: StepUpload, Err: err}
	}
	file.BlobID = obj.ID
	file.Link = obj.Link

	row := models.NewSheetRow(sub.Record(), file)
	cells, err := s.opts.Columns.Build(header, row)
	if err != nil {
		return nil, s.compensate(ctx, row, file, 0, err)
	}

	attempts, err := s.appendWithRetry(ctx, cells, file)
	if err != nil {
		// The last attempt may have written the row and lost the response.
		landed, checkErr := s.rowLanded(context.WithoutCancel(ctx), file)
		if checkErr != nil || !landed {
			return nil, s.compensate(ctx, row, file, attempts, err)
		}
		logger.Warn().Err(err).Str("key", file.IdempotencyKey()).Msg("append reported failure but row is present")
	}

	logger.Info().
		Str("state", string(StateSuccess)).
		Str("blob_id", file.BlobID).
		Int64("size_bytes", file.SizeBytes).
		Int("attempts", attempts).
		Msg("record saved")

	return &Result{Record: sub.Record(), File: file, Row: cells}, nil
}

// RemoteName is the blob name: the upload time goes before the extension
// so repeated uploads of one file stay distinguishable.
func RemoteName(f models.UploadedFile) string {
	ext := filepath.Ext(f.Name)
	return strings.TrimSuffix(f.Name, ext) + " " + f.Timestamp() + ext
}

func (s *Service) stage(a *Attachment) (string, int64, error) {
	tmp, err := os.CreateTemp(s.opts.TempDir, "intake-*-"+stagingName(a.Name))
	if err != nil {
		return "", 0, fmt.Errorf("failed to stage upload: %w", err)
	}

	src := a.Content
	if s.opts.MaxUploadBytes > 0 {
		src = io.LimitReader(src, s.opts.MaxUploadBytes+1)
	}
	n, copyErr := io.Copy(tmp, src)
	closeErr := tmp.Close()

	switch {
	case copyErr != nil:
		err = fmt.Errorf("failed to stage upload: %w", copyErr)
	case closeErr != nil:
		err = fmt.Errorf("failed to stage upload: %w", closeErr)
	case s.opts.MaxUploadBytes > 0 && n > s.opts.MaxUploadBytes:
		err = &ValidationError{Fields: []FieldError{{
			Field:   "file",
			Message: fmt.Sprintf("file exceeds %d KB", s.opts.MaxUploadBytes/1024),
		}}}
	}
	if err != nil {
		s.removeStaged(tmp.Name())
		return "", 0, err
	}
	return tmp.Name(), n, nil
}

func (s *Service) removeStaged(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn().Err(err).Str("path", path).Msg("failed to remove staged upload")
	}
}

// stagingName keeps the user's file name recognisable on disk without
// letting it pick the directory or the CreateTemp wildcard.
func stagingName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(name)
	return strings.ReplaceAll(name, "*", "_")
}

func (s *Service) appendWithRetry(ctx context.Context, cells []string, file models.UploadedFile) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opts.AppendAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, s.opts.RetryBackoff*time.Duration(attempt-1)); err != nil {
				return attempt - 1, &RemoteError{Step: StepAppend, Err: err}
			}
			landed, err := s.rowLanded(ctx, file)
			if err == nil && landed {
				s.log.Info().Str("key", file.IdempotencyKey()).Msg("row already present, not appending again")
				return attempt - 1, nil
			}
		}

		err := s.table.Append(ctx, cells)
		if err == nil {
			return attempt, nil
		}
		lastErr = err
		s.log.Warn().Err(err).Int("attempt", attempt).Str("key", file.IdempotencyKey()).Msg("append failed")
	}
	return s.opts.AppendAttempts, &RemoteError{Step: StepAppend, Err: lastErr}
}

// rowLanded looks for a row carrying the idempotency key, file name plus
// upload time. The link must match too: two uploads of one file name in
// the same second share a key but never a blob.
func (s *Service) rowLanded(ctx context.Context, file models.UploadedFile) (bool, error) {
	records, err := s.table.ReadAll(ctx)
	if err != nil {
		return false, err
	}
	cols := s.opts.Columns
	for _, rec := range records {
		if rec[cols.FileName] == file.Name && rec[cols.UploadTime] == file.Timestamp() && rec[cols.Link] == file.Link {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) compensate(ctx context.Context, row models.SheetRow, file models.UploadedFile, attempts int, cause error) error {
	// The request may already be cancelled; the compensating write must
	// still go through.
	ctx = context.WithoutCancel(ctx)

	pf := &PartialFailureError{
		Key:          file.IdempotencyKey(),
		BlobID:       file.BlobID,
		Link:         file.Link,
		Compensation: CompensateNone,
		Err:          cause,
	}

	if s.opts.Compensation == CompensateJournal && s.journal != nil {
		p := models.PendingAppend{
			ID:             uuid.NewString(),
			IdempotencyKey: pf.Key,
			Row:            row,
			BlobID:         file.BlobID,
			Link:           file.Link,
			LastError:      cause.Error(),
			Attempts:       attempts,
			CreatedAt:      s.opts.Now(),
		}
		err := s.journal.SavePending(ctx, p)
		if err == nil {
			pf.Compensation = CompensateJournal
			pf.PendingID = p.ID
			s.log.Error().Err(cause).Str("pending_id", p.ID).Str("key", pf.Key).Msg("append failed, row queued in journal")
			return pf
		}
		s.log.Error().Err(err).Str("key", pf.Key).Msg("journal write failed, removing uploaded file")
		pf.CompensationErr = err
	}

	if err := s.blobs.Delete(ctx, file.BlobID); err != nil {
		pf.CompensationErr = errors.Join(pf.CompensationErr, err)
		s.log.Error().Err(err).Str("blob_id", file.BlobID).Msg("failed to remove orphaned upload")
		return pf
	}
	pf.Compensation = CompensateDelete
	pf.CompensationErr = nil
	s.log.Error().Err(cause).Str("blob_id", file.BlobID).Msg("append failed, uploaded file removed")
	return pf
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
