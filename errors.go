// errors.go - Re-exported failure taxonomy
package ibdrescue

import "github.com/dbrescue/go-ibdrescue/format"

// The sentinels live in format so every layer can classify failures
// without import cycles; embedding callers match with errors.Is.
var (
	ErrInvalidFormat        = format.ErrInvalidFormat
	ErrChecksumMismatch     = format.ErrChecksumMismatch
	ErrDecryptionFailure    = format.ErrDecryptionFailure
	ErrDecompressionFailure = format.ErrDecompressionFailure
	ErrTruncatedRead        = format.ErrTruncatedRead
	ErrSchemaMismatch       = format.ErrSchemaMismatch
	ErrRemapConflict        = format.ErrRemapConflict
	ErrUnsupportedPageType  = format.ErrUnsupportedPageType
)
