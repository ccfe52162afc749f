package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// JobHandler executes one type of background job.
type JobHandler interface {
	// Type returns the job_type this handler processes.
	Type() string

	// Handle executes the job. payload is the raw JSON stored with the job.
	// Return NewPermanentError for failures a retry cannot fix.
	Handle(ctx context.Context, payload []byte) error
}

// PermanentError marks a job failure that should not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return "permanent: " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// NewPermanentError wraps err so the job is failed without retries.
// A nil err stays nil.
func NewPermanentError(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err or anything it wraps is a PermanentError.
func IsPermanent(err error) bool {
	var permErr *PermanentError
	return errors.As(err, &permErr)
}

// DecodePayload unmarshals a job payload. A payload that does not decode
// will never decode, so the error is permanent.
func DecodePayload[T any](payload []byte) (T, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, NewPermanentError(fmt.Errorf("invalid %T payload: %w", v, err))
	}
	return v, nil
}
