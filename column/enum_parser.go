// enum_parser.go - Parser for ENUM, SET and BIT columns
package column

import (
	"strings"

	"github.com/dbrescue/go-ibdrescue/schema"
)

type EnumParser struct {
	BaseParser
}

func (p *EnumParser) Parse(input []byte, offset int, col *schema.Column, varLen int) (interface{}, int, error) {
	switch col.Type {
	case schema.TypeEnum:
		// 1 byte up to 255 values, 2 bytes beyond; index is 1-based.
		size := 1
		if len(col.EnumValues) > 255 {
			size = 2
		}
		raw, err := p.readBytes(input, offset, size)
		if err != nil {
			return nil, 0, err
		}
		idx := int(raw[0])
		if size == 2 {
			idx = int(raw[0])<<8 | int(raw[1])
		}
		if idx == 0 {
			return "", size, nil
		}
		if idx <= len(col.EnumValues) {
			return col.EnumValues[idx-1], size, nil
		}
		return idx, size, nil

	case schema.TypeSet:
		// Bitmask, one bit per member, 1..8 bytes.
		size := (len(col.SetValues) + 7) / 8
		if size == 0 {
			size = 1
		}
		raw, err := p.readBytes(input, offset, size)
		if err != nil {
			return nil, 0, err
		}
		var mask uint64
		for i := 0; i < size; i++ {
			mask = mask<<8 | uint64(raw[i])
		}
		var members []string
		for i, v := range col.SetValues {
			if mask&(1<<uint(i)) != 0 {
				members = append(members, v)
			}
		}
		return strings.Join(members, ","), size, nil

	case schema.TypeBit:
		size := (col.Length + 7) / 8
		if size == 0 {
			size = 1
		}
		raw, err := p.readBytes(input, offset, size)
		if err != nil {
			return nil, 0, err
		}
		var v uint64
		for i := 0; i < size; i++ {
			v = v<<8 | uint64(raw[i])
		}
		return v, size, nil

	default:
		return nil, 0, schema.ErrUnsupportedType
	}
}

func (p *EnumParser) Skip(input []byte, offset int, col *schema.Column, varLen int) (int, error) {
	switch col.Type {
	case schema.TypeEnum:
		if len(col.EnumValues) > 255 {
			return 2, nil
		}
		return 1, nil
	case schema.TypeSet:
		size := (len(col.SetValues) + 7) / 8
		if size == 0 {
			size = 1
		}
		return size, nil
	case schema.TypeBit:
		size := (col.Length + 7) / 8
		if size == 0 {
			size = 1
		}
		return size, nil
	default:
		return 0, schema.ErrUnsupportedType
	}
}
