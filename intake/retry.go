package intake

import (
	"context"
	"fmt"
)

type RetryReport struct {
	Resolved  int
	Duplicate int
	Failed    int
}

// landedKey is the idempotency key plus the blob link, which tells apart
// same-name uploads made in the same second.
func landedKey(fileName, uploadTime, link string) string {
	return fileName + "|" + uploadTime + "|" + link
}

// RetryPending replays journaled appends. Rows whose idempotency key is
// already in the sheet are resolved without appending again.
func (s *Service) RetryPending(ctx context.Context) (RetryReport, error) {
	var report RetryReport
	if s.journal == nil {
		return report, ErrNoJournal
	}

	pending, err := s.journal.ListPending(ctx)
	if err != nil {
		return report, err
	}
	if len(pending) == 0 {
		return report, nil
	}

	header, err := s.table.Header(ctx)
	if err != nil {
		return report, &RemoteError{Step: StepHeader, Err: err}
	}
	records, err := s.table.ReadAll(ctx)
	if err != nil {
		return report, &RemoteError{Step: StepReadAll, Err: err}
	}

	cols := s.opts.Columns
	present := make(map[string]bool, len(records))
	for _, rec := range records {
		present[landedKey(rec[cols.FileName], rec[cols.UploadTime], rec[cols.Link])] = true
	}

	for _, p := range pending {
		logger := s.log.With().Str("pending_id", p.ID).Str("key", p.IdempotencyKey).Logger()

		key := landedKey(p.Row.FileName, p.Row.UploadTime, p.Row.Link)
		if present[key] {
			if err := s.journal.MarkResolved(ctx, p.ID); err != nil {
				return report, err
			}
			report.Duplicate++
			logger.Info().Msg("row already in sheet, pending append resolved")
			continue
		}

		cells, err := cols.Build(header, p.Row)
		if err != nil {
			return report, fmt.Errorf("pending append %s: %w", p.ID, err)
		}

		if err := s.table.Append(ctx, cells); err != nil {
			report.Failed++
			logger.Warn().Err(err).Msg("retry append failed")
			if recErr := s.journal.RecordAttempt(ctx, p.ID, err.Error()); recErr != nil {
				return report, recErr
			}
			continue
		}

		if err := s.journal.MarkResolved(ctx, p.ID); err != nil {
			return report, err
		}
		present[key] = true
		report.Resolved++
		logger.Info().Msg("pending append written")
	}
	return report, nil
}
