package intake

import (
	"errors"
	"fmt"
	"strings"
)

var ErrNoJournal = errors.New("no pending-append journal configured")

type FieldError struct {
	Field   string
	Message string
}

// ValidationError is returned before any side effect has happened.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + ": " + f.Message
	}
	return "invalid submission: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

type Step string

const (
	StepHeader  Step = "header"
	StepReadAll Step = "read"
	StepUpload  Step = "upload"
	StepAppend  Step = "append"
)

// RemoteError wraps a failed call to the sheet or the blob store.
type RemoteError struct {
	Step Step
	Err  error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

type Compensation string

const (
	CompensateJournal Compensation = "journal"
	CompensateDelete  Compensation = "delete"
	CompensateNone    Compensation = "none"
)

func ParseCompensation(s string) (Compensation, error) {
	switch c := Compensation(strings.ToLower(strings.TrimSpace(s))); c {
	case CompensateJournal, CompensateDelete:
		return c, nil
	default:
		return "", fmt.Errorf("unknown compensation %q, want journal or delete", s)
	}
}

// PartialFailureError means the blob was uploaded but the row never made
// it into the sheet. Compensation says what was done about it.
type PartialFailureError struct {
	Key             string
	BlobID          string
	Link            string
	PendingID       string
	Compensation    Compensation
	CompensationErr error
	Err             error
}

func (e *PartialFailureError) Error() string {
	msg := fmt.Sprintf("row for %s not appended after upload: %v", e.Key, e.Err)
	switch e.Compensation {
	case CompensateJournal:
		msg += fmt.Sprintf(" (queued for retry as %s)", e.PendingID)
	case CompensateDelete:
		msg += " (uploaded file removed)"
	default:
		msg += fmt.Sprintf(" (uploaded file left at %s: %v)", e.Link, e.CompensationErr)
	}
	return msg
}

func (e *PartialFailureError) Unwrap() error { return e.Err }
