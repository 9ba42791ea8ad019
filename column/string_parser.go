// string_parser.go - Parser for string/text column types
package column

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/dbrescue/go-ibdrescue/schema"
)

// StringParser handles VARCHAR, CHAR, TEXT and other string types,
// decoding stored bytes to UTF-8 per the column's character set.
type StringParser struct {
	BaseParser
}

// decoderFor maps a column character set to a byte decoder. UTF-8
// family sets pass through.
func decoderFor(charset string) *encoding.Decoder {
	switch charset {
	case "latin1":
		// The engine's latin1 is Windows-1252, not ISO 8859-1.
		return charmap.Windows1252.NewDecoder()
	case "latin2":
		return charmap.ISO8859_2.NewDecoder()
	case "cp1251":
		return charmap.Windows1251.NewDecoder()
	case "ucs2":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	default:
		return nil
	}
}

func (p *StringParser) decodeText(data []byte, charset string) (string, error) {
	dec := decoderFor(charset)
	if dec == nil {
		return string(data), nil
	}
	out, err := dec.Bytes(data)
	if err != nil {
		return string(data), nil // surface raw bytes rather than fail the row
	}
	return string(out), nil
}

// Parse parses string value based on column type
func (p *StringParser) Parse(input []byte, offset int, col *schema.Column, varLen int) (interface{}, int, error) {
	switch col.Type {
	case schema.TypeChar:
		length := varLen
		if !col.IsVariableLength() || varLen <= 0 {
			length = col.Length
		}
		data, err := p.readBytes(input, offset, length)
		if err != nil {
			return nil, 0, err
		}
		str, err := p.decodeText(data, col.Charset)
		if err != nil {
			return nil, 0, err
		}
		return strings.TrimRight(str, " "), length, nil

	case schema.TypeVarchar, schema.TypeText, schema.TypeTinyText,
		schema.TypeMediumText, schema.TypeLongText:
		if varLen <= 0 {
			return "", 0, nil
		}
		data, err := p.readBytes(input, offset, varLen)
		if err != nil {
			return nil, 0, err
		}
		str, err := p.decodeText(data, col.Charset)
		if err != nil {
			return nil, 0, err
		}
		return str, varLen, nil

	case schema.TypeBinary:
		data, err := p.readBytes(input, offset, col.Length)
		if err != nil {
			return nil, 0, err
		}
		out := make([]byte, col.Length)
		copy(out, data)
		return out, col.Length, nil

	case schema.TypeVarBinary, schema.TypeBlob, schema.TypeTinyBlob,
		schema.TypeMediumBlob, schema.TypeLongBlob, schema.TypeJSON:
		if varLen <= 0 {
			return []byte{}, 0, nil
		}
		data, err := p.readBytes(input, offset, varLen)
		if err != nil {
			return nil, 0, err
		}
		out := make([]byte, varLen)
		copy(out, data)
		return out, varLen, nil

	default:
		return nil, 0, schema.ErrUnsupportedType
	}
}

// Skip skips string value without parsing
func (p *StringParser) Skip(input []byte, offset int, col *schema.Column, varLen int) (int, error) {
	switch col.Type {
	case schema.TypeChar:
		if col.IsVariableLength() && varLen > 0 {
			return varLen, nil
		}
		return col.Length, nil

	case schema.TypeVarchar, schema.TypeText, schema.TypeTinyText,
		schema.TypeMediumText, schema.TypeLongText,
		schema.TypeVarBinary, schema.TypeBlob, schema.TypeTinyBlob,
		schema.TypeMediumBlob, schema.TypeLongBlob, schema.TypeJSON:
		return varLen, nil

	case schema.TypeBinary:
		return col.Length, nil

	default:
		return 0, schema.ErrUnsupportedType
	}
}
