package zipdec

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbrescue/go-ibdrescue/format"
)

// syntheticIndexPage fills a logical index page with a recognizable
// heap and two directory slots so the codec has something real to move.
func syntheticIndexPage(logicalSize, heapTop, nSlots int) []byte {
	p := make([]byte, logicalSize)
	format.PutBe32(p, format.FilPageOffset, 3)
	format.PutBe16(p, format.FilPageType, uint16(format.PageTypeIndex))
	format.PutBe16(p, format.FilHeaderSize, uint16(nSlots))     // NumDirSlots
	format.PutBe16(p, format.FilHeaderSize+2, uint16(heapTop))  // HeapTop
	for i := format.PageDataOff; i < heapTop; i++ {
		p[i] = byte(i*31 + 7)
	}
	dirStart := logicalSize - format.FilTrailerSize - nSlots*format.PageDirSlotSize
	for i := 0; i < nSlots; i++ {
		format.PutBe16(p, dirStart+i*format.PageDirSlotSize, uint16(99+13*i))
	}
	return p
}

func TestIndexPageCodecRoundTrip(t *testing.T) {
	logical := format.DefaultPageSize
	page := syntheticIndexPage(logical, 4200, 2)

	for _, phys := range []int{4 * 1024, 8 * 1024} {
		comp, err := DeflateIndexPage(page, phys)
		require.NoError(t, err)
		require.Len(t, comp, phys)

		back, err := InflateIndexPage(comp, logical)
		require.NoError(t, err)
		assert.Equal(t, page[:4200], back[:4200], "header and heap survive")
		tail := logical - format.FilTrailerSize - 2*format.PageDirSlotSize
		assert.Equal(t, page[tail:], back[tail:], "directory and trailer survive")
	}
}

func TestDeflateIndexPageTooDense(t *testing.T) {
	logical := format.DefaultPageSize
	page := syntheticIndexPage(logical, logical-200, 4)
	// High-entropy heap so the deflate stream cannot fit a 1K frame.
	seed := uint32(0x1234_5678)
	for i := format.PageDataOff; i < logical-200; i++ {
		seed = seed*1664525 + 1013904223
		page[i] = byte(seed >> 24)
	}
	_, err := DeflateIndexPage(page, 1024)
	assert.ErrorIs(t, errors.Cause(err), format.ErrDecompressionFailure)
}

func TestInflateIndexPageRejects(t *testing.T) {
	logical := format.DefaultPageSize
	comp, err := DeflateIndexPage(syntheticIndexPage(logical, 4200, 2), 8*1024)
	require.NoError(t, err)

	t.Run("truncated", func(t *testing.T) {
		_, err := InflateIndexPage(comp[:50], logical)
		assert.ErrorIs(t, errors.Cause(err), format.ErrTruncatedRead)
	})

	t.Run("stream length overflow", func(t *testing.T) {
		bad := append([]byte(nil), comp...)
		format.PutBe32(bad, format.FilHeaderSize+format.PageHeaderSize, 1<<30)
		_, err := InflateIndexPage(bad, logical)
		assert.ErrorIs(t, errors.Cause(err), format.ErrInvalidFormat)
	})

	t.Run("corrupt stream", func(t *testing.T) {
		bad := append([]byte(nil), comp...)
		bad[format.FilHeaderSize+format.PageHeaderSize+4] ^= 0xFF
		_, err := InflateIndexPage(bad, logical)
		assert.ErrorIs(t, errors.Cause(err), format.ErrDecompressionFailure)
	})
}
