// xdes.go - Extent descriptor entries on FSP_HDR/XDES pages
package page

import (
	"fmt"

	"github.com/dbrescue/go-ibdrescue/format"
)

// Extent states.
type XdesState uint32

const (
	XdesNotInited XdesState = 0
	XdesFree      XdesState = 1
	XdesFreeFrag  XdesState = 2
	XdesFullFrag  XdesState = 3
	XdesFseg      XdesState = 4
)

// XdesEntry describes one extent: owning segment, state and the 2-bit
// per-page free/clean bitmap.
type XdesEntry struct {
	SegmentID uint64
	State     XdesState
	Bitmap    []byte
}

// ParseXdesEntry decodes the n-th descriptor on an FSP_HDR/XDES page.
func ParseXdesEntry(p []byte, n int) (XdesEntry, error) {
	off := xdesArrOffset() + n*format.XDESEntrySize
	if off+format.XDESEntrySize > len(p) {
		return XdesEntry{}, fmt.Errorf("xdes entry %d out of page: %w", n, format.ErrTruncatedRead)
	}
	seg, _ := format.Be64(p, off)
	state, _ := format.Be32(p, off+20)
	bm := make([]byte, 16)
	copy(bm, p[off+24:off+40])
	return XdesEntry{SegmentID: seg, State: XdesState(state), Bitmap: bm}, nil
}

// ExtentDescriptor returns the descriptor covering pageNo, read from
// the FSP_HDR/XDES page that owns its group. Descriptor pages repeat
// every pageSize pages, each holding one entry per extent of its group.
func ExtentDescriptor(descPage []byte, pageNo uint32, pageSize int) (XdesEntry, error) {
	n := int(pageNo) % pageSize / ExtentPages(pageSize)
	return ParseXdesEntry(descPage, n)
}

// PageFree reports the free bit for a page within this extent.
func (x XdesEntry) PageFree(idx int) bool {
	bit := idx * 2 // free bit is the low bit of each 2-bit pair
	if bit/8 >= len(x.Bitmap) {
		return false
	}
	return x.Bitmap[bit/8]&(1<<(uint(bit)%8)) != 0
}
