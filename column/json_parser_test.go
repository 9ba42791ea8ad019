package column

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbrescue/go-ibdrescue/format"
)

func TestDecodeBinaryJSONScalars(t *testing.T) {
	for _, tc := range []struct {
		name string
		data []byte
		want interface{}
	}{
		{"null", []byte{jsonLiteral, jsonLiteralNull}, nil},
		{"true", []byte{jsonLiteral, jsonLiteralTrue}, true},
		{"false", []byte{jsonLiteral, jsonLiteralFalse}, false},
		{"int16", []byte{jsonInt16, 0xFF, 0xFF}, int64(-1)},
		{"uint16", []byte{jsonUint16, 0x39, 0x30}, uint64(12345)},
		{"int32", []byte{jsonInt32, 0x00, 0xCA, 0x9A, 0x3B}, int64(1000000000)},
		{"int64", []byte{jsonInt64, 0xFE, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, int64(-2)},
		{"double", []byte{jsonDouble, 0, 0, 0, 0, 0, 0, 0xF8, 0x3F}, 1.5},
		{"string", []byte{jsonString, 0x02, 'h', 'i'}, "hi"},
		{"empty payload", nil, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			v, err := DecodeBinaryJSON(tc.data)
			require.NoError(t, err)
			assert.Equal(t, tc.want, v)
		})
	}
}

func TestDecodeBinaryJSONArray(t *testing.T) {
	// [null, true, 300] with every element inlined in its value entry.
	data := []byte{
		jsonSmallArray,
		0x03, 0x00, // count
		0x0E, 0x00, // total size including the type byte
		jsonLiteral, jsonLiteralNull, 0x00,
		jsonLiteral, jsonLiteralTrue, 0x00,
		jsonInt16, 0x2C, 0x01,
	}
	v, err := DecodeBinaryJSON(data)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{nil, true, int64(300)}, v)
}

func TestDecodeBinaryJSONObject(t *testing.T) {
	// {"a": 1, "b": "hi"}: key "a" at body 18, "b" at 19, string data
	// at body 20. Offsets count from the container start.
	data := []byte{
		jsonSmallObject,
		0x02, 0x00, // count
		0x18, 0x00, // total size including the type byte
		0x13, 0x00, 0x01, 0x00, // key entry "a"
		0x14, 0x00, 0x01, 0x00, // key entry "b"
		jsonInt16, 0x01, 0x00, // value entry 0, inline 1
		jsonString, 0x14, 0x00, // value entry 1, offset to data
		'a', 'b',
		0x02, 'h', 'i',
	}
	v, err := DecodeBinaryJSON(data)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": int64(1), "b": "hi"}, v)
}

func TestDecodeBinaryJSONRejects(t *testing.T) {
	t.Run("unknown type", func(t *testing.T) {
		_, err := DecodeBinaryJSON([]byte{0x55, 0x00})
		assert.ErrorIs(t, err, format.ErrInvalidFormat)
	})

	t.Run("truncated string", func(t *testing.T) {
		_, err := DecodeBinaryJSON([]byte{jsonString, 0x05, 'h'})
		assert.ErrorIs(t, err, format.ErrTruncatedRead)
	})

	t.Run("truncated container", func(t *testing.T) {
		_, err := DecodeBinaryJSON([]byte{jsonSmallObject, 0x02})
		assert.ErrorIs(t, err, format.ErrTruncatedRead)
	})

	t.Run("bad literal", func(t *testing.T) {
		_, err := DecodeBinaryJSON([]byte{jsonLiteral, 0x09})
		assert.ErrorIs(t, err, format.ErrInvalidFormat)
	})
}
