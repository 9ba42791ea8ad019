// fsp.go - File-space header on page 0 and the space flags word
package page

import (
	"fmt"

	"github.com/dbrescue/go-ibdrescue/format"
)

// FspHeader is the space header carried by page 0.
type FspHeader struct {
	SpaceID   uint32
	SizePages uint32
	FreeLimit uint32
	Flags     uint32
}

func ParseFspHeader(p []byte) (FspHeader, error) {
	if len(p) < format.FSPHeaderOffset+format.FSPHeaderSize {
		return FspHeader{}, fmt.Errorf("short FSP header: %w", format.ErrTruncatedRead)
	}
	id, _ := format.Be32(p, format.FSPSpaceID)
	size, _ := format.Be32(p, format.FSPSize)
	limit, _ := format.Be32(p, format.FSPSize+4)
	flags, _ := format.Be32(p, format.FSPSpaceFlags)
	return FspHeader{SpaceID: id, SizePages: size, FreeLimit: limit, Flags: flags}, nil
}

// Write stamps the space header fields back into a page-0 image.
func (h FspHeader) Write(p []byte) error {
	if len(p) < format.FSPHeaderOffset+format.FSPHeaderSize {
		return fmt.Errorf("short FSP header: %w", format.ErrTruncatedRead)
	}
	format.PutBe32(p, format.FSPSpaceID, h.SpaceID)
	format.PutBe32(p, format.FSPSize, h.SizePages)
	format.PutBe32(p, format.FSPSize+4, h.FreeLimit)
	format.PutBe32(p, format.FSPSpaceFlags, h.Flags)
	return nil
}

// ExtentPages is the number of pages one extent covers at a page size.
func ExtentPages(pageSize int) int {
	n := format.ExtentSizeBytes / pageSize
	if n < 64 {
		n = 64
	}
	return n
}

// xdesArrOffset is where the extent-descriptor array starts on an
// FSP_HDR or XDES page.
func xdesArrOffset() int {
	return format.FSPHeaderOffset + format.FSPHeaderSize
}

// EncryptionInfoOffset is where page 0 stores the encryption-info blob:
// right after the extent-descriptor array.
func EncryptionInfoOffset(pageSize int) int {
	entries := pageSize / ExtentPages(pageSize)
	return xdesArrOffset() + format.XDESEntrySize*entries
}
