// iterator.go - Record iteration and traversal utilities
package record

import (
	"fmt"

	"github.com/dbrescue/go-ibdrescue/format"
)

// WalkRecordsFromData walks records from raw page data following the compact
// record header's relative next offset. If skipSystem is true, INFIMUM and
// SUPREMUM are not returned. max limits the number of records to traverse
// (safety). Works on any logical page size.
func WalkRecordsFromData(pageNo uint32, pageData []byte, infimum GenericRecord, max int, skipSystem bool) ([]GenericRecord, error) {
	var out []GenericRecord
	cur := infimum
	if !skipSystem {
		out = append(out, cur)
	}
	for steps := 0; steps < max; steps++ {
		nextContent := cur.NextRecordPos()
		if cur.Header.NextRecOffset == 0 {
			break // usually SUPREMUM has next==0
		}
		if nextContent < format.FilHeaderSize+format.PageHeaderSize ||
			nextContent >= len(pageData)-format.FilTrailerSize {
			return out, fmt.Errorf("next content position out of bounds: %d: %w",
				nextContent, format.ErrInvalidFormat)
		}
		hdr, err := ParseRecordHeader(pageData, nextContent-format.RecordHeaderSize)
		if err != nil {
			return out, err
		}
		rec := GenericRecord{PageNumber: pageNo, Header: hdr, ContentPos: nextContent}

		// Raw span up to the next record; the schema-driven parser is
		// authoritative about the real extent.
		dataSize := 0
		if hdr.NextRecOffset > format.RecordHeaderSize {
			dataSize = hdr.NextRecOffset - format.RecordHeaderSize
		} else if hdr.Type == format.RecSupremum {
			dataSize = format.SystemRecordBytes
		}
		if dataSize > 0 && nextContent+dataSize <= len(pageData) {
			rec.Data = pageData[nextContent : nextContent+dataSize]
		}

		if rec.Header.Type == format.RecSupremum {
			if !skipSystem {
				out = append(out, rec)
			}
			break
		}
		out = append(out, rec)
		cur = rec
	}
	return out, nil
}
