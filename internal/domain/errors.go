package domain

import (
	"errors"
	"fmt"
)

// ErrMalformedRecord matches any MalformedRecordError via errors.Is.
var ErrMalformedRecord = errors.New("malformed feed record")

// MalformedRecordError reports a feature that lacks a required field.
type MalformedRecordError struct {
	Index int    // position in features[]
	ID    string // feature id, if any
	Field string
}

func (e *MalformedRecordError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("malformed feed record at index %d: missing %s", e.Index, e.Field)
	}
	return fmt.Sprintf("malformed feed record %q at index %d: missing %s", e.ID, e.Index, e.Field)
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// NetworkError reports a failed feed request: transport error, non-200
// status, or an undecodable body.
type NetworkError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("feed request %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("feed request %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
