// float_parser.go - Parser for FLOAT/DOUBLE columns
//
// Floating-point values are stored in IEEE 754 little-endian machine
// order, unlike every other numeric type.
package column

import (
	"encoding/binary"
	"math"

	"github.com/dbrescue/go-ibdrescue/schema"
)

type FloatParser struct {
	BaseParser
}

func (p *FloatParser) Parse(input []byte, offset int, col *schema.Column, varLen int) (interface{}, int, error) {
	switch col.Type {
	case schema.TypeFloat:
		raw, err := p.readBytes(input, offset, 4)
		if err != nil {
			return nil, 0, err
		}
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(raw))), 4, nil
	case schema.TypeDouble:
		raw, err := p.readBytes(input, offset, 8)
		if err != nil {
			return nil, 0, err
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(raw)), 8, nil
	default:
		return nil, 0, schema.ErrUnsupportedType
	}
}

func (p *FloatParser) Skip(input []byte, offset int, col *schema.Column, varLen int) (int, error) {
	switch col.Type {
	case schema.TypeFloat:
		return 4, nil
	case schema.TypeDouble:
		return 8, nil
	default:
		return 0, schema.ErrUnsupportedType
	}
}
