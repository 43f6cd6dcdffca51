package assetsync

import "fmt"

// AssetTransferError marks one asset whose download or upload exhausted its
// retry budget. Never fatal to the run.
type AssetTransferError struct {
	Filename string
	Err      error
}

func (e *AssetTransferError) Error() string {
	return fmt.Sprintf("asset transfer failed for %s: %v", e.Filename, e.Err)
}

func (e *AssetTransferError) Unwrap() error { return e.Err }

// RemoteDeleteError marks one orphaned remote file that could not be removed.
// Cleanup is best-effort; the next run will try again.
type RemoteDeleteError struct {
	Filename string
	Err      error
}

func (e *RemoteDeleteError) Error() string {
	return fmt.Sprintf("remote delete failed for %s: %v", e.Filename, e.Err)
}

func (e *RemoteDeleteError) Unwrap() error { return e.Err }
