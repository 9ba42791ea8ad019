// decimal_parser.go - Parser for DECIMAL/NUMERIC columns
//
// The engine packs decimals in base-10^9 groups of 4 bytes, with
// leftover digit groups in 1..4 bytes, big-endian, and the sign bit of
// the first byte inverted so byte order sorts correctly. Negative
// values store the one's complement of the whole image.
package column

import (
	"github.com/shopspring/decimal"

	"github.com/dbrescue/go-ibdrescue/format"
	"github.com/dbrescue/go-ibdrescue/schema"
)

// DecimalParser yields decimal.Decimal values, rendered as strings by
// the output layer so precision is never silently lost.
type DecimalParser struct {
	BaseParser
}

const digitsPerGroup = 9

// leftoverBytes[d] is the storage for d leftover decimal digits.
var leftoverBytes = [10]int{0, 1, 1, 2, 2, 3, 3, 4, 4, 4}

// DecimalStorageSize is the packed size for a precision/scale pair.
func DecimalStorageSize(precision, scale int) int {
	intDigits := precision - scale
	n := (intDigits/digitsPerGroup)*4 + leftoverBytes[intDigits%digitsPerGroup]
	n += (scale/digitsPerGroup)*4 + leftoverBytes[scale%digitsPerGroup]
	return n
}

func (p *DecimalParser) Parse(input []byte, offset int, col *schema.Column, varLen int) (interface{}, int, error) {
	size := DecimalStorageSize(col.Precision, col.Scale)
	raw, err := p.readBytes(input, offset, size)
	if err != nil {
		return nil, 0, err
	}
	buf := make([]byte, size)
	copy(buf, raw)

	negative := buf[0]&0x80 == 0
	buf[0] ^= 0x80
	if negative {
		for i := range buf {
			buf[i] = ^buf[i]
		}
	}

	intDigits := col.Precision - col.Scale
	digits := make([]byte, 0, col.Precision+2)
	pos := 0

	appendGroup := func(nDigits int) error {
		nBytes := leftoverBytes[nDigits%digitsPerGroup]
		if nDigits >= digitsPerGroup {
			nBytes = 4
		}
		if nBytes == 0 {
			return nil
		}
		if pos+nBytes > len(buf) {
			return format.ErrShortRead
		}
		var v uint64
		for i := 0; i < nBytes; i++ {
			v = v<<8 | uint64(buf[pos+i])
		}
		pos += nBytes
		group := make([]byte, nDigits)
		for i := nDigits - 1; i >= 0; i-- {
			group[i] = byte('0' + v%10)
			v /= 10
		}
		digits = append(digits, group...)
		return nil
	}

	if r := intDigits % digitsPerGroup; r > 0 {
		if err := appendGroup(r); err != nil {
			return nil, 0, err
		}
	}
	for i := 0; i < intDigits/digitsPerGroup; i++ {
		if err := appendGroup(digitsPerGroup); err != nil {
			return nil, 0, err
		}
	}
	intPart := string(digits)
	digits = digits[:0]
	for i := 0; i < col.Scale/digitsPerGroup; i++ {
		if err := appendGroup(digitsPerGroup); err != nil {
			return nil, 0, err
		}
	}
	if r := col.Scale % digitsPerGroup; r > 0 {
		if err := appendGroup(r); err != nil {
			return nil, 0, err
		}
	}
	fracPart := string(digits)

	s := trimLeadingZeros(intPart)
	if fracPart != "" {
		s += "." + fracPart
	}
	if negative {
		s = "-" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, 0, schema.ErrUnsupportedType
	}
	return d, size, nil
}

func (p *DecimalParser) Skip(input []byte, offset int, col *schema.Column, varLen int) (int, error) {
	return DecimalStorageSize(col.Precision, col.Scale), nil
}

func trimLeadingZeros(s string) string {
	i := 0
	for i < len(s)-1 && s[i] == '0' {
		i++
	}
	if s == "" {
		return "0"
	}
	return s[i:]
}
