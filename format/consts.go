// consts.go - On-disk constants shared by every layer
package format

// Sizes and fixed offsets
const (
	// DefaultPageSize is the logical page size of a modern tablespace.
	DefaultPageSize = 16 * 1024

	FilHeaderSize     = 38
	FilTrailerSize    = 8
	RecordHeaderSize  = 5 // compact header (3B bits + 2B next)
	SystemRecordBytes = 8 // "infimum\x00" or "supremum" literal
	PageDirSlotSize   = 2

	// Index (page) header = 36 bytes
	// FSEG header (immediately after) = 20 bytes
	PageHeaderSize = 56
	PageDataOff    = FilHeaderSize + PageHeaderSize

	// FIL header field offsets
	FilPageChecksum = 0
	FilPageOffset   = 4
	FilPagePrev     = 8
	FilPageNext     = 12
	FilPageLSN      = 16
	FilPageType     = 24
	FilPageFlushLSN = 26
	FilPageSpaceID  = 34

	// Transparent compression reuses the 8 flush-LSN bytes (26..33)
	// as a compact sub-header.
	FilPageVersion      = 26
	FilPageAlgorithm    = 27
	FilPageOriginalType = 28
	FilPageOriginalSize = 30
	FilPageCompressSize = 32

	// FSP header starts right after the FIL header on page 0.
	FSPHeaderOffset = FilHeaderSize
	FSPSpaceID      = FSPHeaderOffset + 0
	FSPSize         = FSPHeaderOffset + 8
	FSPSpaceFlags   = FSPHeaderOffset + 16
	FSPHeaderSize   = 112

	// Extent bookkeeping
	ExtentSizeBytes = 1024 * 1024
	XDESEntrySize   = 40
)

// Page types (FIL_PAGE_TYPE values)
type PageType uint16

const (
	PageTypeAllocated    PageType = 0
	PageTypeUnused       PageType = 1
	PageTypeUndoLog      PageType = 2
	PageTypeInode        PageType = 3
	PageTypeIbufFreeList PageType = 4
	PageTypeIbufBitmap   PageType = 5
	PageTypeSys          PageType = 6
	PageTypeTrxSys       PageType = 7
	PageTypeFspHdr       PageType = 8
	PageTypeXdes         PageType = 9
	PageTypeBlob         PageType = 10
	PageTypeZblob        PageType = 11
	PageTypeZblob2       PageType = 12
	PageTypeUnknown      PageType = 13

	// Transparent whole-page compression / encryption tags
	PageTypeCompressed             PageType = 14
	PageTypeEncrypted              PageType = 15
	PageTypeCompressedAndEncrypted PageType = 16
	PageTypeEncryptedRtree         PageType = 17

	PageTypeSDIBlob  PageType = 22
	PageTypeSDIZblob PageType = 23

	PageTypeLobIndex PageType = 24
	PageTypeLobData  PageType = 25
	PageTypeLobFirst PageType = 26

	PageTypeSDI   PageType = 17853
	PageTypeRtree PageType = 17854
	PageTypeIndex PageType = 17855
)

// IsEncrypted reports whether the tag marks a page whose body is ciphered.
func (t PageType) IsEncrypted() bool {
	return t == PageTypeEncrypted || t == PageTypeCompressedAndEncrypted ||
		t == PageTypeEncryptedRtree
}

// IsTransparentlyCompressed reports whether the tag marks a whole-page
// compressed image (distinct from the classic index-page scheme).
func (t PageType) IsTransparentlyCompressed() bool {
	return t == PageTypeCompressed || t == PageTypeCompressedAndEncrypted
}

// PageTypeNames returns a fresh tag-to-name table. Callers own the map;
// there is no process-wide copy to mutate.
func PageTypeNames() map[PageType]string {
	return map[PageType]string{
		PageTypeAllocated:              "ALLOCATED",
		PageTypeUnused:                 "UNUSED",
		PageTypeUndoLog:                "UNDO_LOG",
		PageTypeInode:                  "INODE",
		PageTypeIbufFreeList:           "IBUF_FREE_LIST",
		PageTypeIbufBitmap:             "IBUF_BITMAP",
		PageTypeSys:                    "SYS",
		PageTypeTrxSys:                 "TRX_SYS",
		PageTypeFspHdr:                 "FSP_HDR",
		PageTypeXdes:                   "XDES",
		PageTypeBlob:                   "BLOB",
		PageTypeZblob:                  "ZBLOB",
		PageTypeZblob2:                 "ZBLOB2",
		PageTypeUnknown:                "UNKNOWN",
		PageTypeCompressed:             "COMPRESSED",
		PageTypeEncrypted:              "ENCRYPTED",
		PageTypeCompressedAndEncrypted: "COMPRESSED_AND_ENCRYPTED",
		PageTypeEncryptedRtree:         "ENCRYPTED_RTREE",
		PageTypeSDIBlob:                "SDI_BLOB",
		PageTypeSDIZblob:               "SDI_ZBLOB",
		PageTypeLobIndex:               "LOB_INDEX",
		PageTypeLobData:                "LOB_DATA",
		PageTypeLobFirst:               "LOB_FIRST",
		PageTypeSDI:                    "SDI",
		PageTypeRtree:                  "RTREE",
		PageTypeIndex:                  "INDEX",
	}
}

type PageFormat uint8

const (
	FormatRedundant PageFormat = 0
	FormatCompact   PageFormat = 1
)

type PageDirection uint16

const (
	DirLeft        PageDirection = 1
	DirRight       PageDirection = 2
	DirSameRec     PageDirection = 3
	DirSamePage    PageDirection = 4
	DirNoDirection PageDirection = 5
)

type RecordType uint8

const (
	RecConventional RecordType = 0
	RecNodePointer  RecordType = 1
	RecInfimum      RecordType = 2
	RecSupremum     RecordType = 3
)

// Compression algorithm ids stored in the transparent sub-header.
type CompressionAlg uint8

const (
	AlgNone   CompressionAlg = 0
	AlgZlib   CompressionAlg = 1
	AlgLZ4    CompressionAlg = 2
	AlgSnappy CompressionAlg = 3
)

// Space-flags bit layout (FSP_SPACE_FLAGS).
const (
	FlagsPostAntelopeShift = 0
	FlagsZipSsizeShift     = 1
	FlagsZipSsizeMask      = 0xf
	FlagsAtomicBlobsShift  = 5
	FlagsPageSsizeShift    = 6
	FlagsPageSsizeMask     = 0xf
	FlagsDataDirShift      = 10
	FlagsSharedShift       = 11
	FlagsTemporaryShift    = 12
	FlagsEncryptionShift   = 13
	FlagsSDIShift          = 14
)

// ZipSsize extracts the compressed-page shift from space flags
// (0 means the space is not page-zip compressed).
func ZipSsize(flags uint32) uint32 {
	return (flags >> FlagsZipSsizeShift) & FlagsZipSsizeMask
}

// PageSsize extracts the logical page-size shift from space flags.
func PageSsize(flags uint32) uint32 {
	return (flags >> FlagsPageSsizeShift) & FlagsPageSsizeMask
}

// ClearZipSsize zeroes the compressed-page size bits so the space
// declares itself uncompressed.
func ClearZipSsize(flags uint32) uint32 {
	return flags &^ (uint32(FlagsZipSsizeMask) << FlagsZipSsizeShift)
}

// PhysicalPageSize maps space flags to the on-disk page size.
func PhysicalPageSize(flags uint32) int {
	if z := ZipSsize(flags); z != 0 {
		return 512 << z
	}
	return LogicalPageSize(flags)
}

// LogicalPageSize maps space flags to the in-memory page size.
func LogicalPageSize(flags uint32) int {
	if s := PageSsize(flags); s != 0 {
		return 512 << s
	}
	return DefaultPageSize
}
