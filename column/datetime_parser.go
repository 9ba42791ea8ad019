// datetime_parser.go - Parser for date and time column types
package column

import (
	"fmt"

	"github.com/dbrescue/go-ibdrescue/format"
	"github.com/dbrescue/go-ibdrescue/schema"
)

// DateTimeParser handles DATE, TIME, DATETIME, TIMESTAMP in the
// packed little-struct formats introduced with fractional seconds.
type DateTimeParser struct {
	BaseParser
}

// fracBytes is the storage for a fractional-seconds precision.
func fracBytes(precision int) int {
	return (precision + 1) / 2
}

func readFrac(input []byte, offset, precision int) (int, int, error) {
	n := fracBytes(precision)
	if n == 0 {
		return 0, 0, nil
	}
	if offset+n > len(input) {
		return 0, 0, format.ErrShortRead
	}
	frac := 0
	for i := 0; i < n; i++ {
		frac = frac<<8 | int(input[offset+i])
	}
	// Scale to microseconds.
	for i := n; i < 3; i++ {
		frac *= 100
	}
	return frac, n, nil
}

func (p *DateTimeParser) Parse(input []byte, offset int, col *schema.Column, varLen int) (interface{}, int, error) {
	switch col.Type {
	case schema.TypeDate:
		// 3 bytes: day 5 bits, month 4 bits, year the rest; sign bit toggled.
		raw, err := format.Be24(input, offset)
		if err != nil {
			return nil, 0, err
		}
		raw ^= uint32(p.signBit(24))
		day := raw & 0x1F
		month := (raw >> 5) & 0x0F
		year := raw >> 9
		return fmt.Sprintf("%04d-%02d-%02d", year, month, day), 3, nil

	case schema.TypeTime:
		// 3 bytes packed: sign(1) hour(10) minute(6) second(6), plus frac.
		raw, err := format.Be24(input, offset)
		if err != nil {
			return nil, 0, err
		}
		raw ^= 0x800000 // sign bit, always stored toggled
		neg := false
		v := int32(raw)
		if raw&0x800000 != 0 {
			v = int32(raw | 0xFF000000)
		}
		if v < 0 {
			neg = true
			v = -v
		}
		sec := v & 0x3F
		min := (v >> 6) & 0x3F
		hour := (v >> 12) & 0x3FF
		frac, n, err := readFrac(input, offset+3, col.Precision)
		if err != nil {
			return nil, 0, err
		}
		s := fmt.Sprintf("%02d:%02d:%02d", hour, min, sec)
		if neg {
			s = "-" + s
		}
		if col.Precision > 0 {
			s += fmt.Sprintf(".%0*d", col.Precision, frac/pow10(6-col.Precision))
		}
		return s, 3 + n, nil

	case schema.TypeDateTime:
		// 5 bytes packed: sign(1) year-month(17) day(5) hour(5) min(6) sec(6).
		if offset+5 > len(input) {
			return nil, 0, format.ErrShortRead
		}
		var raw uint64
		for i := 0; i < 5; i++ {
			raw = raw<<8 | uint64(input[offset+i])
		}
		raw ^= 1 << 39 // sign bit
		sec := raw & 0x3F
		min := (raw >> 6) & 0x3F
		hour := (raw >> 12) & 0x1F
		day := (raw >> 17) & 0x1F
		ym := (raw >> 22) & 0x1FFFF
		year := ym / 13
		month := ym % 13
		frac, n, err := readFrac(input, offset+5, col.Precision)
		if err != nil {
			return nil, 0, err
		}
		s := fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", year, month, day, hour, min, sec)
		if col.Precision > 0 {
			s += fmt.Sprintf(".%0*d", col.Precision, frac/pow10(6-col.Precision))
		}
		return s, 5 + n, nil

	case schema.TypeTimestamp:
		// 4-byte big-endian epoch seconds plus frac.
		epoch, err := p.readUint32(input, offset)
		if err != nil {
			return nil, 0, err
		}
		frac, n, err := readFrac(input, offset+4, col.Precision)
		if err != nil {
			return nil, 0, err
		}
		if col.Precision > 0 {
			return fmt.Sprintf("%d.%0*d", epoch, col.Precision, frac/pow10(6-col.Precision)), 4 + n, nil
		}
		return uint64(epoch), 4, nil

	default:
		return nil, 0, schema.ErrUnsupportedType
	}
}

func (p *DateTimeParser) Skip(input []byte, offset int, col *schema.Column, varLen int) (int, error) {
	switch col.Type {
	case schema.TypeDate:
		return 3, nil
	case schema.TypeTime:
		return 3 + fracBytes(col.Precision), nil
	case schema.TypeDateTime:
		return 5 + fracBytes(col.Precision), nil
	case schema.TypeTimestamp:
		return 4 + fracBytes(col.Precision), nil
	default:
		return 0, schema.ErrUnsupportedType
	}
}

func pow10(n int) int {
	v := 1
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}
