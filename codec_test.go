package ibdrescue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbrescue/go-ibdrescue/format"
	"github.com/dbrescue/go-ibdrescue/zipdec"
)

func TestCodecReverseVerbatim(t *testing.T) {
	c := &PageCodec{}
	p := make([]byte, format.DefaultPageSize)
	format.PutBe16(p, format.FilPageType, uint16(format.PageTypeIndex))
	p[200] = 0xAB

	out, err := c.Reverse(p, 3)
	require.NoError(t, err)
	assert.Equal(t, p, out)
}

func TestCodecReverseTransparent(t *testing.T) {
	c := &PageCodec{}
	plain := make([]byte, format.DefaultPageSize)
	format.PutBe16(plain, format.FilPageType, uint16(format.PageTypeIndex))
	for i := format.FilHeaderSize; i < 4000; i++ {
		plain[i] = byte(i % 13)
	}
	comp, ok, err := zipdec.CompressTransparent(plain, format.AlgZlib, zipdec.TransparentV2)
	require.NoError(t, err)
	require.True(t, ok)

	out, err := c.Reverse(comp, 3)
	require.NoError(t, err)
	pt, _ := format.Be16(out, format.FilPageType)
	assert.Equal(t, format.PageTypeIndex, format.PageType(pt))
	assert.Equal(t, plain[format.FilHeaderSize:], out[format.FilHeaderSize:])
}

func TestCodecReverseTruncated(t *testing.T) {
	c := &PageCodec{}
	_, err := c.Reverse(make([]byte, 100), 3)
	assert.Error(t, err)
}

func TestParamsFromPageZero(t *testing.T) {
	p := fspPage(t, 9)
	params, err := ParamsFromPageZero(p)
	require.NoError(t, err)
	assert.Equal(t, uint32(testSpaceID), params.SpaceID)
	assert.Equal(t, uint32(9), params.SizePages)
	assert.Equal(t, format.DefaultPageSize, params.LogicalSize)
	assert.Equal(t, format.DefaultPageSize, params.PhysicalSize)
	assert.True(t, params.PostAntelope)
	assert.True(t, params.AtomicBlobs)
	assert.True(t, params.HasSDI)
	assert.False(t, params.Compressed)
	assert.False(t, params.Encrypted)
}

func TestParamsRejectShortPageZero(t *testing.T) {
	_, err := ParamsFromPageZero(make([]byte, 64))
	assert.Error(t, err)
}
