// int_parser.go - Parser for integer column types
package column

import (
	"github.com/dbrescue/go-ibdrescue/schema"
)

// IntParser handles all integer type columns
type IntParser struct {
	BaseParser
}

// Parse parses integer value based on column type
func (p *IntParser) Parse(input []byte, offset int, col *schema.Column, varLen int) (interface{}, int, error) {
	switch col.Type {
	case schema.TypeTinyInt:
		if col.Unsigned {
			val, err := p.readUint8(input, offset)
			return uint64(val), 1, err
		}
		val, err := p.readInt8(input, offset)
		return int64(val), 1, err

	case schema.TypeYear:
		// YEAR is stored as an unsigned byte offset from 1900, 0 = 0000
		val, err := p.readUint8(input, offset)
		if err != nil {
			return nil, 0, err
		}
		if val == 0 {
			return uint64(0), 1, nil
		}
		return uint64(val) + 1900, 1, nil

	case schema.TypeSmallInt:
		if col.Unsigned {
			val, err := p.readUint16(input, offset)
			return uint64(val), 2, err
		}
		val, err := p.readInt16(input, offset)
		return int64(val), 2, err

	case schema.TypeMediumInt:
		if col.Unsigned {
			val, err := p.readUnsignedMediumInt(input, offset)
			return uint64(val), 3, err
		}
		val, err := p.readMediumInt(input, offset)
		return int64(val), 3, err

	case schema.TypeInt:
		if col.Unsigned {
			val, err := p.readUint32(input, offset)
			return uint64(val), 4, err
		}
		val, err := p.readInt32(input, offset)
		return int64(val), 4, err

	case schema.TypeBigInt:
		if col.Unsigned {
			val, err := p.readUint64(input, offset)
			return val, 8, err
		}
		val, err := p.readInt64(input, offset)
		return val, 8, err

	case schema.TypeBoolean, schema.TypeBool:
		val, err := p.readUint8(input, offset)
		if err != nil {
			return nil, 0, err
		}
		if p.Opts.SignCorrection {
			val ^= 0x80
		}
		return val != 0, 1, nil

	case schema.TypeRowID:
		// Hidden 6-byte row id, unsigned, no sign correction.
		raw, err := p.readBytes(input, offset, 6)
		if err != nil {
			return nil, 0, err
		}
		var v uint64
		for _, b := range raw {
			v = v<<8 | uint64(b)
		}
		return v, 6, nil

	default:
		return nil, 0, schema.ErrUnsupportedType
	}
}

// Skip skips integer value without parsing
func (p *IntParser) Skip(input []byte, offset int, col *schema.Column, varLen int) (int, error) {
	switch col.Type {
	case schema.TypeTinyInt, schema.TypeBoolean, schema.TypeBool, schema.TypeYear:
		return 1, nil
	case schema.TypeSmallInt:
		return 2, nil
	case schema.TypeMediumInt:
		return 3, nil
	case schema.TypeInt:
		return 4, nil
	case schema.TypeBigInt:
		return 8, nil
	case schema.TypeRowID:
		return 6, nil
	default:
		return 0, schema.ErrUnsupportedType
	}
}
