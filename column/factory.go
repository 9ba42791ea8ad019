// factory.go - Registry routing column types to their parsers
package column

import (
	"github.com/dbrescue/go-ibdrescue/schema"
)

// Registry holds one parser per value family, all sharing the same
// Options. Construct one per decode session; instances are cheap and
// safe for concurrent reads.
type Registry struct {
	intP      IntParser
	stringP   StringParser
	dateTimeP DateTimeParser
	decimalP  DecimalParser
	floatP    FloatParser
	enumP     EnumParser
}

// NewRegistry builds a registry with the given options.
func NewRegistry(opts Options) *Registry {
	base := BaseParser{Opts: opts}
	return &Registry{
		intP:      IntParser{BaseParser: base},
		stringP:   StringParser{BaseParser: base},
		dateTimeP: DateTimeParser{BaseParser: base},
		decimalP:  DecimalParser{BaseParser: base},
		floatP:    FloatParser{BaseParser: base},
		enumP:     EnumParser{BaseParser: base},
	}
}

// ParserFor returns the parser handling the column's type, or nil for
// types the registry does not know.
func (r *Registry) ParserFor(col *schema.Column) Parser {
	switch col.Type {
	case schema.TypeTinyInt, schema.TypeSmallInt, schema.TypeMediumInt,
		schema.TypeInt, schema.TypeBigInt, schema.TypeYear,
		schema.TypeBoolean, schema.TypeBool, schema.TypeRowID:
		return &r.intP
	case schema.TypeChar, schema.TypeVarchar,
		schema.TypeText, schema.TypeTinyText, schema.TypeMediumText, schema.TypeLongText,
		schema.TypeBinary, schema.TypeVarBinary,
		schema.TypeBlob, schema.TypeTinyBlob, schema.TypeMediumBlob, schema.TypeLongBlob,
		schema.TypeJSON:
		return &r.stringP
	case schema.TypeDate, schema.TypeTime, schema.TypeDateTime, schema.TypeTimestamp:
		return &r.dateTimeP
	case schema.TypeDecimal, schema.TypeNumeric:
		return &r.decimalP
	case schema.TypeFloat, schema.TypeDouble:
		return &r.floatP
	case schema.TypeEnum, schema.TypeSet, schema.TypeBit:
		return &r.enumP
	}
	return nil
}

// ParseColumn decodes one column value at offset. varLen carries the
// on-page length for variable-length columns and is ignored otherwise.
func (r *Registry) ParseColumn(input []byte, offset int, col *schema.Column, varLen int) (interface{}, int, error) {
	p := r.ParserFor(col)
	if p == nil {
		return nil, 0, schema.ErrUnsupportedType
	}
	return p.Parse(input, offset, col, varLen)
}

// SkipColumn returns the stored width of the column without decoding.
func (r *Registry) SkipColumn(input []byte, offset int, col *schema.Column, varLen int) (int, error) {
	p := r.ParserFor(col)
	if p == nil {
		return 0, schema.ErrUnsupportedType
	}
	return p.Skip(input, offset, col, varLen)
}
