// exports.go - Re-exports for main package API
package ibdrescue

import (
	"github.com/dbrescue/go-ibdrescue/format"
	"github.com/dbrescue/go-ibdrescue/page"
	"github.com/dbrescue/go-ibdrescue/record"
	"github.com/dbrescue/go-ibdrescue/schema"
)

// Re-export types from format package
type (
	PageType       = format.PageType
	PageFormat     = format.PageFormat
	PageDirection  = format.PageDirection
	RecordType     = format.RecordType
	ChecksumAlg    = format.ChecksumAlg
	CompressionAlg = format.CompressionAlg
)

// Re-export constants from format package
const (
	DefaultPageSize   = format.DefaultPageSize
	PageTypeIndex     = format.PageTypeIndex
	PageTypeUndoLog   = format.PageTypeUndoLog
	PageTypeAllocated = format.PageTypeAllocated
	PageTypeSDI       = format.PageTypeSDI
	PageTypeFspHdr    = format.PageTypeFspHdr
	PageTypeBlob      = format.PageTypeBlob
	FormatCompact     = format.FormatCompact
	FormatRedundant   = format.FormatRedundant
	RecConventional   = format.RecConventional
	RecNodePointer    = format.RecNodePointer
	RecInfimum        = format.RecInfimum
	RecSupremum       = format.RecSupremum
	ChecksumCRC32C    = format.ChecksumCRC32C
	ChecksumInnoDB    = format.ChecksumInnoDB
	ChecksumNone      = format.ChecksumNone
)

// Re-export types from page package
type (
	InnerPage  = page.InnerPage
	IndexPage  = page.IndexPage
	FilHeader  = page.FilHeader
	FilTrailer = page.FilTrailer
	FspHeader  = page.FspHeader
	BlobPage   = page.BlobPage
	SDIRecord  = page.SDIRecord
)

// Re-export functions from page package
var (
	NewInnerPage    = page.NewInnerPage
	ParseIndexPage  = page.ParseIndexPage
	ParseFilHeader  = page.ParseFilHeader
	ParseFilTrailer = page.ParseFilTrailer
	ParseFspHeader  = page.ParseFspHeader
	ParseBlobPage   = page.ParseBlobPage
	ParseSDIRecords = page.ParseSDIRecords
)

// Re-export types from record package
type (
	RecordHeader  = record.RecordHeader
	IndexHeader   = record.IndexHeader
	GenericRecord = record.GenericRecord
	ParsedRow     = record.ParsedRow
	Value         = record.Value
)

// Re-export types from schema package
type (
	TableDef = schema.TableDef
	IndexDef = schema.IndexDef
	Column   = schema.Column
)

// Re-export functions from record/schema packages
var (
	ParseRecordHeader    = record.ParseRecordHeader
	ParseIndexHeader     = record.ParseIndexHeader
	ParseTableDefFromSQL = schema.ParseTableDefFromSQL
	ParseSDIExport       = schema.ParseSDIExport
)

// WalkRecords is a convenience function to walk records on an IndexPage
func WalkRecords(p *IndexPage, max int, skipSystem bool) ([]record.GenericRecord, error) {
	return p.WalkRecords(max, skipSystem)
}
