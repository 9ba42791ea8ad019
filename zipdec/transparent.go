// transparent.go - Whole-page compression (any page type)
//
// The transparent scheme reuses the 8 flush-LSN bytes of the FIL header
// as a compact sub-header (version, algorithm, original type, original
// size, compressed size) and compresses the entire page body with a
// general-purpose compressor.
package zipdec

import (
	"bytes"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"

	"github.com/dbrescue/go-ibdrescue/format"
)

// Transparent sub-header versions.
const (
	TransparentV1 = 1
	TransparentV2 = 2
)

// DecompressTransparent expands a whole-page compressed image back to
// logicalSize bytes and restores the original type tag. The page must
// carry the plain "compressed" tag (an encrypted one is decrypted
// first; order is decrypt then decompress).
func DecompressTransparent(p []byte, logicalSize int) ([]byte, error) {
	pt, err := format.Be16(p, format.FilPageType)
	if err != nil {
		return nil, errors.Wrap(format.ErrTruncatedRead, "page type")
	}
	if format.PageType(pt) != format.PageTypeCompressed {
		return nil, errors.Wrapf(format.ErrInvalidFormat,
			"not a transparently compressed page: type=%d", pt)
	}

	alg := format.CompressionAlg(p[format.FilPageAlgorithm])
	origType, _ := format.Be16(p, format.FilPageOriginalType)
	origSize, _ := format.Be16(p, format.FilPageOriginalSize)
	compSize, _ := format.Be16(p, format.FilPageCompressSize)

	if format.FilHeaderSize+int(compSize) > len(p) {
		return nil, errors.Wrapf(format.ErrInvalidFormat,
			"compressed payload %d overflows page", compSize)
	}
	if format.FilHeaderSize+int(origSize) > logicalSize {
		return nil, errors.Wrapf(format.ErrInvalidFormat,
			"original size %d overflows logical page", origSize)
	}
	payload := p[format.FilHeaderSize : format.FilHeaderSize+int(compSize)]

	body := make([]byte, int(origSize))
	switch alg {
	case format.AlgZlib:
		zr, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, errors.Wrap(format.ErrDecompressionFailure, "zlib open")
		}
		defer zr.Close()
		if _, err := io.ReadFull(zr, body); err != nil {
			return nil, errors.Wrap(format.ErrDecompressionFailure, "zlib inflate")
		}
	case format.AlgLZ4:
		n, err := lz4.UncompressBlock(payload, body)
		if err != nil || n != len(body) {
			return nil, errors.Wrap(format.ErrDecompressionFailure, "lz4 inflate")
		}
	case format.AlgSnappy:
		out, err := snappy.Decode(body, payload)
		if err != nil || len(out) != len(body) {
			return nil, errors.Wrap(format.ErrDecompressionFailure, "snappy inflate")
		}
		copy(body, out)
	default:
		return nil, errors.Wrapf(format.ErrUnsupportedPageType,
			"compression algorithm %d", alg)
	}

	out := make([]byte, logicalSize)
	copy(out[:format.FilHeaderSize], p[:format.FilHeaderSize])
	format.PutBe16(out, format.FilPageType, origType)
	// The sub-header displaced the flush LSN; it is zero on non-zero pages.
	for i := format.FilPageFlushLSN; i < format.FilPageSpaceID; i++ {
		out[i] = 0
	}
	copy(out[format.FilHeaderSize:], body)
	return out, nil
}

// CompressTransparent produces a whole-page compressed image of a
// logical page, trimming trailing zero bytes before compressing the
// body. Returns the original page when compression does not help.
func CompressTransparent(p []byte, alg format.CompressionAlg, version uint8) ([]byte, bool, error) {
	body := p[format.FilHeaderSize:]
	origSize := len(body)
	for origSize > 0 && body[origSize-1] == 0 {
		origSize--
	}
	body = body[:origSize]

	var payload []byte
	switch alg {
	case format.AlgZlib:
		var buf bytes.Buffer
		zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
		if err != nil {
			return nil, false, errors.Wrap(format.ErrDecompressionFailure, "zlib open")
		}
		if _, err := zw.Write(body); err != nil {
			return nil, false, errors.Wrap(format.ErrDecompressionFailure, "zlib deflate")
		}
		if err := zw.Close(); err != nil {
			return nil, false, errors.Wrap(format.ErrDecompressionFailure, "zlib close")
		}
		payload = buf.Bytes()
	case format.AlgLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(body)))
		n, err := lz4.CompressBlock(body, dst, nil)
		if err != nil {
			return nil, false, errors.Wrap(format.ErrDecompressionFailure, "lz4 deflate")
		}
		if n == 0 {
			return p, false, nil // incompressible
		}
		payload = dst[:n]
	case format.AlgSnappy:
		payload = snappy.Encode(nil, body)
	default:
		return nil, false, errors.Wrapf(format.ErrUnsupportedPageType,
			"compression algorithm %d", alg)
	}

	if format.FilHeaderSize+len(payload) >= len(p) {
		return p, false, nil
	}

	out := make([]byte, len(p))
	copy(out[:format.FilHeaderSize], p[:format.FilHeaderSize])
	origType, _ := format.Be16(p, format.FilPageType)
	format.PutBe16(out, format.FilPageType, uint16(format.PageTypeCompressed))
	out[format.FilPageVersion] = version
	out[format.FilPageAlgorithm] = byte(alg)
	format.PutBe16(out, format.FilPageOriginalType, origType)
	format.PutBe16(out, format.FilPageOriginalSize, uint16(origSize))
	format.PutBe16(out, format.FilPageCompressSize, uint16(len(payload)))
	copy(out[format.FilHeaderSize:], payload)
	return out, true, nil
}
