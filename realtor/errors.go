package realtor

import "fmt"

// TransientError marks a connection-level failure that survived the retry
// budget. The partition is aborted but whatever was accumulated is kept.
type TransientError struct {
	PostalCode string
	Err        error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient fetch failure for %s: %v", e.PostalCode, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// MalformedResponseError marks a response that parsed but did not carry the
// expected data.home_search shape. Not retryable.
type MalformedResponseError struct {
	PostalCode string
	Detail     string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed search response for %s: %s", e.PostalCode, e.Detail)
}

// FieldMissingError marks a raw entry lacking a required field. The record is
// dropped; the partition continues.
type FieldMissingError struct {
	Field string
}

func (e *FieldMissingError) Error() string {
	return fmt.Sprintf("required field %s missing", e.Field)
}
