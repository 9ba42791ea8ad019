package column

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbrescue/go-ibdrescue/schema"
)

func parseOne(t *testing.T, reg *Registry, col *schema.Column, data []byte, varLen int) (interface{}, int) {
	t.Helper()
	v, n, err := reg.ParseColumn(data, 0, col, varLen)
	require.NoError(t, err)
	return v, n
}

func TestIntParsing(t *testing.T) {
	reg := NewRegistry(DefaultOptions())

	t.Run("signed int stores sign bit toggled", func(t *testing.T) {
		v, n := parseOne(t, reg, &schema.Column{Type: schema.TypeInt}, []byte{0x80, 0, 0, 7}, 0)
		assert.Equal(t, 4, n)
		assert.Equal(t, int64(7), v)

		v, _ = parseOne(t, reg, &schema.Column{Type: schema.TypeInt}, []byte{0x7F, 0xFF, 0xFF, 0xFB}, 0)
		assert.Equal(t, int64(-5), v)
	})

	t.Run("unsigned int is stored raw", func(t *testing.T) {
		v, _ := parseOne(t, reg, &schema.Column{Type: schema.TypeInt, Unsigned: true},
			[]byte{0xDE, 0xAD, 0xBE, 0xEF}, 0)
		assert.Equal(t, uint64(0xDEADBEEF), v)
	})

	t.Run("mediumint sign extends", func(t *testing.T) {
		v, n := parseOne(t, reg, &schema.Column{Type: schema.TypeMediumInt}, []byte{0x7F, 0xFF, 0xFF}, 0)
		assert.Equal(t, 3, n)
		assert.Equal(t, int64(-1), v)

		v, _ = parseOne(t, reg, &schema.Column{Type: schema.TypeMediumInt}, []byte{0x80, 0x00, 0x05}, 0)
		assert.Equal(t, int64(5), v)
	})

	t.Run("bigint", func(t *testing.T) {
		v, _ := parseOne(t, reg, &schema.Column{Type: schema.TypeBigInt},
			[]byte{0x80, 0, 0, 0, 0, 0, 0, 1}, 0)
		assert.Equal(t, int64(1), v)
	})

	t.Run("year offsets from 1900", func(t *testing.T) {
		v, _ := parseOne(t, reg, &schema.Column{Type: schema.TypeYear}, []byte{124}, 0)
		assert.Equal(t, uint64(2024), v)
		v, _ = parseOne(t, reg, &schema.Column{Type: schema.TypeYear}, []byte{0}, 0)
		assert.Equal(t, uint64(0), v)
	})

	t.Run("boolean", func(t *testing.T) {
		v, _ := parseOne(t, reg, &schema.Column{Type: schema.TypeBoolean}, []byte{0x81}, 0)
		assert.Equal(t, true, v)
		v, _ = parseOne(t, reg, &schema.Column{Type: schema.TypeBoolean}, []byte{0x80}, 0)
		assert.Equal(t, false, v)
	})

	t.Run("hidden row id", func(t *testing.T) {
		v, n := parseOne(t, reg, &schema.Column{Type: schema.TypeRowID},
			[]byte{0, 0, 0, 0, 1, 2}, 0)
		assert.Equal(t, 6, n)
		assert.Equal(t, uint64(258), v)
	})

	t.Run("raw mode skips sign correction", func(t *testing.T) {
		raw := NewRegistry(Options{SignCorrection: false})
		v, _ := parseOne(t, raw, &schema.Column{Type: schema.TypeInt}, []byte{0, 0, 0, 7}, 0)
		assert.Equal(t, int64(7), v)
	})
}

func TestDateTimeParsing(t *testing.T) {
	reg := NewRegistry(DefaultOptions())

	t.Run("date", func(t *testing.T) {
		// 2024-03-15 packed as year<<9 | month<<5 | day, sign bit toggled.
		v, n := parseOne(t, reg, &schema.Column{Type: schema.TypeDate}, []byte{0x8F, 0xD0, 0x6F}, 0)
		assert.Equal(t, 3, n)
		assert.Equal(t, "2024-03-15", v)
	})

	t.Run("datetime", func(t *testing.T) {
		v, n := parseOne(t, reg, &schema.Column{Type: schema.TypeDateTime},
			[]byte{0x99, 0xB2, 0xDE, 0xA5, 0x1E}, 0)
		assert.Equal(t, 5, n)
		assert.Equal(t, "2024-03-15 10:20:30", v)
	})

	t.Run("time", func(t *testing.T) {
		v, n := parseOne(t, reg, &schema.Column{Type: schema.TypeTime}, []byte{0x80, 0x10, 0x83}, 0)
		assert.Equal(t, 3, n)
		assert.Equal(t, "01:02:03", v)
	})

	t.Run("timestamp", func(t *testing.T) {
		v, n := parseOne(t, reg, &schema.Column{Type: schema.TypeTimestamp},
			[]byte{0x65, 0x53, 0xF1, 0x00}, 0)
		assert.Equal(t, 4, n)
		assert.Equal(t, uint64(1700000000), v)
	})

	t.Run("datetime with fraction consumes frac bytes", func(t *testing.T) {
		col := &schema.Column{Type: schema.TypeDateTime, Precision: 3}
		// frac 123.000 us stored in 2 bytes as 1230 (hundredths of ms).
		data := []byte{0x99, 0xB2, 0xDE, 0xA5, 0x1E, 0x04, 0xCE}
		v, n := parseOne(t, reg, col, data, 0)
		assert.Equal(t, 7, n)
		assert.Equal(t, "2024-03-15 10:20:30.123", v)
	})
}

func TestDecimalParsing(t *testing.T) {
	reg := NewRegistry(DefaultOptions())
	col := &schema.Column{Type: schema.TypeDecimal, Precision: 12, Scale: 4}

	t.Run("positive", func(t *testing.T) {
		v, n := parseOne(t, reg, col, []byte{0x80, 0x00, 0x04, 0xD2, 0x16, 0x2E}, 0)
		assert.Equal(t, 6, n)
		d := v.(decimal.Decimal)
		assert.Equal(t, "1234.5678", d.String())
	})

	t.Run("negative stores the complement", func(t *testing.T) {
		v, _ := parseOne(t, reg, col, []byte{0x7F, 0xFF, 0xFB, 0x2D, 0xE9, 0xD1}, 0)
		d := v.(decimal.Decimal)
		assert.Equal(t, "-1234.5678", d.String())
	})

	t.Run("storage size matches schema", func(t *testing.T) {
		c := schema.Column{Type: schema.TypeDecimal, Precision: 12, Scale: 4}
		assert.Equal(t, c.StorageSize(), DecimalStorageSize(12, 4))
	})
}

func TestFloatParsing(t *testing.T) {
	reg := NewRegistry(DefaultOptions())

	v, n := parseOne(t, reg, &schema.Column{Type: schema.TypeFloat}, []byte{0x00, 0x00, 0xC0, 0x3F}, 0)
	assert.Equal(t, 4, n)
	assert.Equal(t, 1.5, v)

	v, n = parseOne(t, reg, &schema.Column{Type: schema.TypeDouble},
		[]byte{0, 0, 0, 0, 0, 0, 0xF8, 0x3F}, 0)
	assert.Equal(t, 8, n)
	assert.Equal(t, 1.5, v)
}

func TestEnumSetBitParsing(t *testing.T) {
	reg := NewRegistry(DefaultOptions())

	t.Run("enum", func(t *testing.T) {
		col := &schema.Column{Type: schema.TypeEnum, EnumValues: []string{"red", "green", "blue"}}
		v, n := parseOne(t, reg, col, []byte{2}, 0)
		assert.Equal(t, 1, n)
		assert.Equal(t, "green", v)

		v, _ = parseOne(t, reg, col, []byte{0}, 0)
		assert.Equal(t, "", v, "index zero is the empty value")
	})

	t.Run("set", func(t *testing.T) {
		col := &schema.Column{Type: schema.TypeSet, SetValues: []string{"a", "b", "c"}}
		v, n := parseOne(t, reg, col, []byte{0b101}, 0)
		assert.Equal(t, 1, n)
		assert.Equal(t, "a,c", v)
	})

	t.Run("bit", func(t *testing.T) {
		col := &schema.Column{Type: schema.TypeBit, Length: 10}
		v, n := parseOne(t, reg, col, []byte{0x02, 0x01}, 0)
		assert.Equal(t, 2, n)
		assert.Equal(t, uint64(0x201), v)
	})
}

func TestStringParsing(t *testing.T) {
	reg := NewRegistry(DefaultOptions())

	t.Run("varchar passes utf8 through", func(t *testing.T) {
		col := &schema.Column{Type: schema.TypeVarchar, Length: 10, Charset: "utf8mb4"}
		v, n := parseOne(t, reg, col, []byte("héllo"), 6)
		assert.Equal(t, 6, n)
		assert.Equal(t, "héllo", v)
	})

	t.Run("char latin1 decodes and trims padding", func(t *testing.T) {
		col := &schema.Column{Type: schema.TypeChar, Length: 5, Charset: "latin1"}
		v, n := parseOne(t, reg, col, []byte{0xE9, 'x', ' ', ' ', ' '}, 0)
		assert.Equal(t, 5, n)
		assert.Equal(t, "éx", v)
	})

	t.Run("blob keeps raw bytes", func(t *testing.T) {
		col := &schema.Column{Type: schema.TypeBlob}
		v, _ := parseOne(t, reg, col, []byte{0x00, 0xFF, 0x10}, 3)
		assert.Equal(t, []byte{0x00, 0xFF, 0x10}, v)
	})

	t.Run("skip matches parse widths", func(t *testing.T) {
		col := &schema.Column{Type: schema.TypeVarchar, Length: 10, Charset: "utf8mb4"}
		n, err := reg.SkipColumn([]byte("abcdef"), 0, col, 6)
		require.NoError(t, err)
		assert.Equal(t, 6, n)
	})
}

func TestRegistryUnknownType(t *testing.T) {
	reg := NewRegistry(DefaultOptions())
	_, _, err := reg.ParseColumn([]byte{1}, 0, &schema.Column{Type: "GEOMETRY"}, 0)
	assert.ErrorIs(t, err, schema.ErrUnsupportedType)
}
