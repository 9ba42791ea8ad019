// params.go - Tablespace parameters derived from page 0
package ibdrescue

import (
	"fmt"
	"strings"

	"github.com/dbrescue/go-ibdrescue/format"
	"github.com/dbrescue/go-ibdrescue/page"
)

// TablespaceParams is everything the interpreter needs to know about a
// file before touching page 1: sizes, the space flags and whether the
// space carries encryption or SDI.
type TablespaceParams struct {
	SpaceID      uint32
	Flags        uint32
	SizePages    uint32
	LogicalSize  int // in-memory page size
	PhysicalSize int // on-disk page size; < LogicalSize only when compressed
	PostAntelope bool
	AtomicBlobs  bool
	Compressed   bool
	Encrypted    bool
	HasSDI       bool
}

// ParamsFromPageZero decodes the FSP header of a raw page-0 image.
// The image must be at least the physical page size; the flags word
// itself tells us what that size is.
func ParamsFromPageZero(p []byte) (*TablespaceParams, error) {
	hdr, err := page.ParseFspHeader(p)
	if err != nil {
		return nil, err
	}
	flags := hdr.Flags
	tp := &TablespaceParams{
		SpaceID:      hdr.SpaceID,
		Flags:        flags,
		SizePages:    hdr.SizePages,
		LogicalSize:  format.LogicalPageSize(flags),
		PhysicalSize: format.PhysicalPageSize(flags),
		PostAntelope: flags&(1<<format.FlagsPostAntelopeShift) != 0,
		AtomicBlobs:  flags&(1<<format.FlagsAtomicBlobsShift) != 0,
		Compressed:   format.ZipSsize(flags) != 0,
		Encrypted:    flags&(1<<format.FlagsEncryptionShift) != 0,
		HasSDI:       flags&(1<<format.FlagsSDIShift) != 0,
	}
	if len(p) < tp.PhysicalSize {
		return nil, fmt.Errorf("page 0 shorter than physical page size %d: %w",
			tp.PhysicalSize, format.ErrTruncatedRead)
	}
	return tp, nil
}

// EncryptionInfoOffset is where page 0 stores the encryption header for
// this tablespace's page size.
func (tp *TablespaceParams) EncryptionInfoOffset() int {
	return page.EncryptionInfoOffset(tp.LogicalSize)
}

// String renders a one-screen summary for the info command.
func (tp *TablespaceParams) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "space id:       %d\n", tp.SpaceID)
	fmt.Fprintf(&sb, "flags:          %#x\n", tp.Flags)
	fmt.Fprintf(&sb, "size (pages):   %d\n", tp.SizePages)
	fmt.Fprintf(&sb, "logical page:   %d\n", tp.LogicalSize)
	fmt.Fprintf(&sb, "physical page:  %d\n", tp.PhysicalSize)
	fmt.Fprintf(&sb, "post-antelope:  %v\n", tp.PostAntelope)
	fmt.Fprintf(&sb, "atomic blobs:   %v\n", tp.AtomicBlobs)
	fmt.Fprintf(&sb, "compressed:     %v\n", tp.Compressed)
	fmt.Fprintf(&sb, "encrypted:      %v\n", tp.Encrypted)
	fmt.Fprintf(&sb, "sdi:            %v\n", tp.HasSDI)
	return sb.String()
}
