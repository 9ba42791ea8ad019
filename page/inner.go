// inner.go - Base page structure: FIL header + body + FIL trailer
package page

import (
	"fmt"

	"github.com/dbrescue/go-ibdrescue/format"
)

// InnerPage is one logical page: the full decoded byte image plus the
// parsed FIL framing. Physical size <= logical size always; equality
// means the page was never compressed.
type InnerPage struct {
	PageNo  uint32
	FIL     FilHeader
	Trailer FilTrailer
	Data    []byte // full logical page bytes
}

func NewInnerPage(pageNo uint32, p []byte) (*InnerPage, error) {
	if len(p) < format.FilHeaderSize+format.FilTrailerSize {
		return nil, fmt.Errorf("page %d too small: %d: %w", pageNo, len(p), format.ErrTruncatedRead)
	}
	h, err := ParseFilHeader(p)
	if err != nil {
		return nil, err
	}
	t, err := ParseFilTrailer(p)
	if err != nil {
		return nil, err
	}
	// Freshly initialized pages carry a zero trailer; only flag a
	// mismatch when both sides are populated.
	if t.Low32LSN != 0 && h.LastModLSN != 0 && uint32(h.LastModLSN&0xffffffff) != t.Low32LSN {
		return nil, fmt.Errorf("page %d low32 LSN mismatch: hdr=%#x trl=%#x: %w",
			pageNo, uint32(h.LastModLSN), t.Low32LSN, format.ErrInvalidFormat)
	}
	return &InnerPage{PageNo: pageNo, FIL: h, Trailer: t, Data: p}, nil
}

func (ip *InnerPage) PageType() format.PageType { return ip.FIL.PageType }

// Size is the logical page size this image was decoded to.
func (ip *InnerPage) Size() int { return len(ip.Data) }
