// fil.go - FIL header and trailer parsing for tablespace pages
package page

import (
	"fmt"

	"github.com/dbrescue/go-ibdrescue/format"
)

const filNull uint32 = 0xFFFFFFFF

type FilHeader struct {
	Checksum   uint32
	PageNumber uint32
	Prev       *uint32
	Next       *uint32
	LastModLSN uint64
	PageType   format.PageType
	FlushLSN   uint64
	SpaceID    uint32
}

func ParseFilHeader(p []byte) (FilHeader, error) {
	if len(p) < format.FilHeaderSize {
		return FilHeader{}, fmt.Errorf("short page: %d: %w", len(p), format.ErrTruncatedRead)
	}
	chk, _ := format.Be32(p, format.FilPageChecksum)
	pg, _ := format.Be32(p, format.FilPageOffset)
	prev, _ := format.Be32(p, format.FilPagePrev)
	next, _ := format.Be32(p, format.FilPageNext)
	lsn, _ := format.Be64(p, format.FilPageLSN)
	pt, _ := format.Be16(p, format.FilPageType)
	flush, _ := format.Be64(p, format.FilPageFlushLSN)
	space, _ := format.Be32(p, format.FilPageSpaceID)
	var prevPtr, nextPtr *uint32
	if prev != filNull {
		prevPtr = &prev
	}
	if next != filNull {
		nextPtr = &next
	}
	return FilHeader{
		Checksum: chk, PageNumber: pg, Prev: prevPtr, Next: nextPtr,
		LastModLSN: lsn, PageType: format.PageType(pt), FlushLSN: flush, SpaceID: space,
	}, nil
}

// Write stamps the header fields back into a page image. The checksum
// slot is left for format.StampChecksum.
func (h FilHeader) Write(p []byte) error {
	if len(p) < format.FilHeaderSize {
		return fmt.Errorf("short page: %d: %w", len(p), format.ErrTruncatedRead)
	}
	format.PutBe32(p, format.FilPageOffset, h.PageNumber)
	prev, next := filNull, filNull
	if h.Prev != nil {
		prev = *h.Prev
	}
	if h.Next != nil {
		next = *h.Next
	}
	format.PutBe32(p, format.FilPagePrev, prev)
	format.PutBe32(p, format.FilPageNext, next)
	format.PutBe64(p, format.FilPageLSN, h.LastModLSN)
	format.PutBe16(p, format.FilPageType, uint16(h.PageType))
	format.PutBe64(p, format.FilPageFlushLSN, h.FlushLSN)
	format.PutBe32(p, format.FilPageSpaceID, h.SpaceID)
	return nil
}

type FilTrailer struct {
	Checksum uint32
	Low32LSN uint32
}

func ParseFilTrailer(p []byte) (FilTrailer, error) {
	if len(p) < format.FilTrailerSize {
		return FilTrailer{}, fmt.Errorf("short trailer: %w", format.ErrTruncatedRead)
	}
	off := len(p) - format.FilTrailerSize
	chk, _ := format.Be32(p, off+0)
	lsn, _ := format.Be32(p, off+4)
	return FilTrailer{Checksum: chk, Low32LSN: lsn}, nil
}
