// blob.go - External large-object chain pages
package page

import (
	"fmt"

	"github.com/dbrescue/go-ibdrescue/format"
)

// BLOB page body layout: part length (4), next page number (4), data.
const (
	BlobHeaderPartLen  = format.FilHeaderSize + 0
	BlobHeaderNextPage = format.FilHeaderSize + 4
	BlobDataOff        = format.FilHeaderSize + 8
)

const blobNoNext uint32 = 0xFFFFFFFF

// BlobPage is one link of an external large-object chain.
type BlobPage struct {
	PageNo   uint32
	PartLen  uint32
	NextPage *uint32
	Data     []byte
}

// ParseBlobPage decodes a BLOB/SDI-BLOB chain page with its header at
// the standard position. Compressed chain pages (ZBLOB) carry a zlib
// stream in Data; the caller inflates each link independently before
// concatenation.
func ParseBlobPage(ip *InnerPage) (*BlobPage, error) {
	return ParseBlobPageAt(ip, BlobHeaderPartLen)
}

// ParseBlobPageAt decodes a chain page whose part header sits at
// hdrOff. The first link of a chain is read at the offset the extern
// pointer stores; subsequent links use the standard position.
func ParseBlobPageAt(ip *InnerPage, hdrOff int) (*BlobPage, error) {
	switch ip.FIL.PageType {
	case format.PageTypeBlob, format.PageTypeSDIBlob,
		format.PageTypeZblob, format.PageTypeZblob2, format.PageTypeSDIZblob:
	default:
		return nil, fmt.Errorf("page %d is not a BLOB page: type=%d: %w",
			ip.PageNo, ip.FIL.PageType, format.ErrUnsupportedPageType)
	}
	if hdrOff < format.FilHeaderSize || hdrOff+8 > len(ip.Data)-format.FilTrailerSize {
		return nil, fmt.Errorf("page %d blob header offset %d out of page: %w",
			ip.PageNo, hdrOff, format.ErrInvalidFormat)
	}
	partLen, err := format.Be32(ip.Data, hdrOff)
	if err != nil {
		return nil, err
	}
	next, _ := format.Be32(ip.Data, hdrOff+4)
	dataOff := hdrOff + 8
	end := dataOff + int(partLen)
	if end > len(ip.Data)-format.FilTrailerSize {
		return nil, fmt.Errorf("page %d blob part length %d overflows page: %w",
			ip.PageNo, partLen, format.ErrInvalidFormat)
	}
	bp := &BlobPage{PageNo: ip.PageNo, PartLen: partLen, Data: ip.Data[dataOff:end]}
	if next != blobNoNext && next != 0 {
		bp.NextPage = &next
	}
	return bp, nil
}

// WriteBlobPage composes a BLOB chain page image of the given logical
// size. nextPage nil means end of chain.
func WriteBlobPage(pageSize int, typ format.PageType, pageNo, spaceID uint32, part []byte, nextPage *uint32) ([]byte, error) {
	if BlobDataOff+len(part)+format.FilTrailerSize > pageSize {
		return nil, fmt.Errorf("blob part %d too large for page size %d: %w",
			len(part), pageSize, format.ErrInvalidFormat)
	}
	p := make([]byte, pageSize)
	h := FilHeader{PageNumber: pageNo, PageType: typ, SpaceID: spaceID}
	if err := h.Write(p); err != nil {
		return nil, err
	}
	format.PutBe32(p, BlobHeaderPartLen, uint32(len(part)))
	next := blobNoNext
	if nextPage != nil {
		next = *nextPage
	}
	format.PutBe32(p, BlobHeaderNextPage, next)
	copy(p[BlobDataOff:], part)
	return p, nil
}
