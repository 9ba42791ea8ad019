// json_parser.go - Recursive-descent reader for binary JSON payloads
//
// The stored form is one type byte followed by a type-specific body.
// Containers hold a count, a total size, an offset table for keys and
// values, and inline small scalars; every multi-byte integer inside is
// little-endian, unlike the row format around it.
package column

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dbrescue/go-ibdrescue/format"
)

const (
	jsonSmallObject = 0x00
	jsonLargeObject = 0x01
	jsonSmallArray  = 0x02
	jsonLargeArray  = 0x03
	jsonLiteral     = 0x04
	jsonInt16       = 0x05
	jsonUint16      = 0x06
	jsonInt32       = 0x07
	jsonUint32      = 0x08
	jsonInt64       = 0x09
	jsonUint64      = 0x0a
	jsonDouble      = 0x0b
	jsonString      = 0x0c
	jsonOpaque      = 0x0f

	jsonLiteralNull  = 0x00
	jsonLiteralTrue  = 0x01
	jsonLiteralFalse = 0x02
)

// DecodeBinaryJSON decodes a complete binary JSON payload into plain
// Go values (map[string]interface{}, []interface{}, scalars).
func DecodeBinaryJSON(data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return decodeJSONValue(data[0], data[1:])
}

func decodeJSONValue(typ byte, body []byte) (interface{}, error) {
	switch typ {
	case jsonSmallObject:
		return decodeJSONContainer(body, true, false)
	case jsonLargeObject:
		return decodeJSONContainer(body, true, true)
	case jsonSmallArray:
		return decodeJSONContainer(body, false, false)
	case jsonLargeArray:
		return decodeJSONContainer(body, false, true)
	case jsonLiteral:
		if len(body) < 1 {
			return nil, errJSONShort("literal")
		}
		switch body[0] {
		case jsonLiteralNull:
			return nil, nil
		case jsonLiteralTrue:
			return true, nil
		case jsonLiteralFalse:
			return false, nil
		}
		return nil, fmt.Errorf("bad json literal %#x: %w", body[0], format.ErrInvalidFormat)
	case jsonInt16:
		if len(body) < 2 {
			return nil, errJSONShort("int16")
		}
		return int64(int16(binary.LittleEndian.Uint16(body))), nil
	case jsonUint16:
		if len(body) < 2 {
			return nil, errJSONShort("uint16")
		}
		return uint64(binary.LittleEndian.Uint16(body)), nil
	case jsonInt32:
		if len(body) < 4 {
			return nil, errJSONShort("int32")
		}
		return int64(int32(binary.LittleEndian.Uint32(body))), nil
	case jsonUint32:
		if len(body) < 4 {
			return nil, errJSONShort("uint32")
		}
		return uint64(binary.LittleEndian.Uint32(body)), nil
	case jsonInt64:
		if len(body) < 8 {
			return nil, errJSONShort("int64")
		}
		return int64(binary.LittleEndian.Uint64(body)), nil
	case jsonUint64:
		if len(body) < 8 {
			return nil, errJSONShort("uint64")
		}
		return binary.LittleEndian.Uint64(body), nil
	case jsonDouble:
		if len(body) < 8 {
			return nil, errJSONShort("double")
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(body)), nil
	case jsonString:
		s, n, err := readJSONVarlen(body)
		if err != nil {
			return nil, err
		}
		if n+int(s) > len(body) {
			return nil, errJSONShort("string")
		}
		return string(body[n : n+int(s)]), nil
	case jsonOpaque:
		// field type byte + varlen data
		if len(body) < 1 {
			return nil, errJSONShort("opaque")
		}
		s, n, err := readJSONVarlen(body[1:])
		if err != nil {
			return nil, err
		}
		if 1+n+int(s) > len(body) {
			return nil, errJSONShort("opaque")
		}
		return body[1+n : 1+n+int(s)], nil
	default:
		return nil, fmt.Errorf("bad json type %#x: %w", typ, format.ErrInvalidFormat)
	}
}

// decodeJSONContainer walks an object or array body. Small containers
// use 2-byte counts and offsets, large ones 4-byte.
func decodeJSONContainer(body []byte, isObject, large bool) (interface{}, error) {
	w := 2
	if large {
		w = 4
	}
	if len(body) < 2*w {
		return nil, errJSONShort("container header")
	}
	count := int(readJSONUint(body, 0, w))
	size := int(readJSONUint(body, w, w))
	if size > len(body)+1 { // size includes the type byte
		return nil, errJSONShort("container body")
	}

	// value entry: type byte + inline value or offset
	entry := w + 1
	keyEntryOff := 2 * w
	valEntryOff := keyEntryOff
	if isObject {
		valEntryOff += count * (w + 2) // key entries: offset + 2-byte length
	}

	readVal := func(i int) (interface{}, error) {
		off := valEntryOff + i*entry
		if off+entry > len(body) {
			return nil, errJSONShort("value entry")
		}
		typ := body[off]
		switch typ {
		case jsonLiteral, jsonInt16, jsonUint16:
			return decodeJSONValue(typ, body[off+1:off+entry])
		case jsonInt32, jsonUint32:
			if !large {
				break
			}
			return decodeJSONValue(typ, body[off+1:off+entry])
		}
		valOff := int(readJSONUint(body, off+1, w))
		if valOff < 1 || valOff > len(body) {
			return nil, errJSONShort("value offset")
		}
		// Offsets count from the start of the container value, which
		// includes the element's own type byte at position 0.
		return decodeJSONValue(typ, body[valOff-1+1:])
	}

	if !isObject {
		arr := make([]interface{}, 0, count)
		for i := 0; i < count; i++ {
			v, err := readVal(i)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	}

	obj := make(map[string]interface{}, count)
	for i := 0; i < count; i++ {
		keOff := keyEntryOff + i*(w+2)
		if keOff+w+2 > len(body) {
			return nil, errJSONShort("key entry")
		}
		kOff := int(readJSONUint(body, keOff, w))
		kLen := int(binary.LittleEndian.Uint16(body[keOff+w : keOff+w+2]))
		if kOff < 1 || kOff-1+kLen > len(body) {
			return nil, errJSONShort("key bytes")
		}
		key := string(body[kOff-1 : kOff-1+kLen])
		v, err := readVal(i)
		if err != nil {
			return nil, err
		}
		obj[key] = v
	}
	return obj, nil
}

func readJSONUint(b []byte, off, w int) uint64 {
	if w == 2 {
		return uint64(binary.LittleEndian.Uint16(b[off : off+2]))
	}
	return uint64(binary.LittleEndian.Uint32(b[off : off+4]))
}

// readJSONVarlen reads the variable-length size prefix: 7 bits per
// byte, high bit is the continuation flag.
func readJSONVarlen(b []byte) (uint64, int, error) {
	var v uint64
	for i := 0; i < len(b) && i < 5; i++ {
		v |= uint64(b[i]&0x7F) << (7 * uint(i))
		if b[i]&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, errJSONShort("varlen")
}

func errJSONShort(what string) error {
	return fmt.Errorf("binary json %s truncated: %w", what, format.ErrTruncatedRead)
}
