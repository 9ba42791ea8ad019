// pagezip.go - Classic per-index-page compaction codec
//
// Only B-tree index pages are compacted under this scheme; every other
// page type in a compressed tablespace is stored verbatim at the
// physical size. The compacted image keeps the FIL header and the
// page/fseg headers verbatim, deflates the record heap, and carries the
// page directory and FIL trailer verbatim at the physical end:
//
//	[0,38)   FIL header
//	[38,94)  index header + fseg header
//	[94,98)  big-endian deflate stream length
//	[98,..)  zlib stream of the logical bytes [94, heap top)
//	tail     page directory + FIL trailer from the logical page end
package zipdec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"

	"github.com/dbrescue/go-ibdrescue/format"
)

const (
	zipHeaderEnd = format.FilHeaderSize + format.PageHeaderSize // 94
	zipLenOff    = zipHeaderEnd
	zipDataOff   = zipHeaderEnd + 4
)

// trailerLen is the verbatim tail: directory slots plus FIL trailer.
func trailerLen(p []byte) (int, error) {
	nSlots, err := format.Be16(p, format.FilHeaderSize)
	if err != nil {
		return 0, err
	}
	return format.FilTrailerSize + int(nSlots)*format.PageDirSlotSize, nil
}

// InflateIndexPage expands a compacted index page to its logical size,
// reconstructing header, record heap and page directory.
func InflateIndexPage(phys []byte, logicalSize int) ([]byte, error) {
	if len(phys) < zipDataOff {
		return nil, errors.Wrap(format.ErrTruncatedRead, "compacted page")
	}
	heapTop, err := format.Be16(phys, format.FilHeaderSize+2)
	if err != nil {
		return nil, errors.Wrap(format.ErrTruncatedRead, "heap top")
	}
	tail, err := trailerLen(phys)
	if err != nil {
		return nil, errors.Wrap(format.ErrTruncatedRead, "directory slots")
	}
	streamLen, err := format.Be32(phys, zipLenOff)
	if err != nil {
		return nil, errors.Wrap(format.ErrTruncatedRead, "stream length")
	}
	if zipDataOff+int(streamLen)+tail > len(phys) {
		return nil, errors.Wrapf(format.ErrInvalidFormat,
			"compacted layout overflows physical page: stream=%d tail=%d", streamLen, tail)
	}
	if int(heapTop) < zipHeaderEnd || int(heapTop) > logicalSize-tail {
		return nil, errors.Wrapf(format.ErrInvalidFormat, "heap top %d out of range", heapTop)
	}

	zr, err := zlib.NewReader(bytes.NewReader(phys[zipDataOff : zipDataOff+int(streamLen)]))
	if err != nil {
		return nil, errors.Wrap(format.ErrDecompressionFailure, "open stream")
	}
	defer zr.Close()
	heap := make([]byte, int(heapTop)-zipHeaderEnd)
	if _, err := io.ReadFull(zr, heap); err != nil {
		return nil, errors.Wrap(format.ErrDecompressionFailure, "inflate record heap")
	}

	out := make([]byte, logicalSize)
	copy(out[:zipHeaderEnd], phys[:zipHeaderEnd])
	copy(out[zipHeaderEnd:], heap)
	copy(out[logicalSize-tail:], phys[len(phys)-tail:])
	return out, nil
}

// DeflateIndexPage compacts a logical index page into physSize bytes.
// Fails when the deflated heap does not fit; the caller then stores the
// page uncompressed.
func DeflateIndexPage(logical []byte, physSize int) ([]byte, error) {
	heapTop, err := format.Be16(logical, format.FilHeaderSize+2)
	if err != nil {
		return nil, errors.Wrap(format.ErrTruncatedRead, "heap top")
	}
	tail, err := trailerLen(logical)
	if err != nil {
		return nil, errors.Wrap(format.ErrTruncatedRead, "directory slots")
	}
	if int(heapTop) < zipHeaderEnd || int(heapTop) > len(logical)-tail {
		return nil, errors.Wrapf(format.ErrInvalidFormat, "heap top %d out of range", heapTop)
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, errors.Wrap(format.ErrDecompressionFailure, "open deflate")
	}
	if _, err := zw.Write(logical[zipHeaderEnd:heapTop]); err != nil {
		return nil, errors.Wrap(format.ErrDecompressionFailure, "deflate record heap")
	}
	if err := zw.Close(); err != nil {
		return nil, errors.Wrap(format.ErrDecompressionFailure, "close deflate")
	}

	if zipDataOff+buf.Len()+tail > physSize {
		return nil, errors.Wrapf(format.ErrDecompressionFailure,
			"page does not compact into %d bytes", physSize)
	}

	out := make([]byte, physSize)
	copy(out[:zipHeaderEnd], logical[:zipHeaderEnd])
	format.PutBe32(out, zipLenOff, uint32(buf.Len()))
	copy(out[zipDataOff:], buf.Bytes())
	copy(out[physSize-tail:], logical[len(logical)-tail:])
	return out, nil
}
