// errors.go - Failure taxonomy shared across the pipeline
package format

import "errors"

// Per-file setup failures abort the run; per-page failures are logged,
// counted and skipped. Which sentinel a condition maps to decides that.
var (
	// ErrInvalidFormat marks an unrecognized magic or header shape.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrChecksumMismatch marks a failed integrity check.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrDecryptionFailure marks a failed page or key-block decryption.
	ErrDecryptionFailure = errors.New("decryption failure")
	// ErrDecompressionFailure marks a failed inflate of a page payload.
	ErrDecompressionFailure = errors.New("decompression failure")
	// ErrTruncatedRead marks a short file or page.
	ErrTruncatedRead = errors.New("truncated read")
	// ErrSchemaMismatch marks a selected index or column that does not exist.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrRemapConflict marks an ambiguous or unsatisfiable index-id remap.
	ErrRemapConflict = errors.New("remap conflict")
	// ErrUnsupportedPageType marks a recognized but undecodable page.
	ErrUnsupportedPageType = errors.New("unsupported page type")
)
