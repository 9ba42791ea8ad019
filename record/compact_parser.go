// compact_parser.go - Parser for InnoDB compact record format
//
// Compact layout, growing downward from the record origin:
//   [varlen headers (reversed)][NULL bitmap][5B header] | [field data...]
// The origin (ContentPos) is where field data starts; headers are read
// backwards from there.
package record

import (
	"fmt"

	"github.com/dbrescue/go-ibdrescue/column"
	"github.com/dbrescue/go-ibdrescue/format"
	"github.com/dbrescue/go-ibdrescue/schema"
)

// internal field widths on clustered leaf records
const (
	trxIDLen   = 6
	rollPtrLen = 7
)

// CompactParser decodes records against a table definition and a
// selected index. The index decides which columns appear in a record
// and in what order.
type CompactParser struct {
	table *schema.TableDef
	index *schema.IndexDef
	reg   *column.Registry
}

// NewCompactParser builds a parser for the table's selected index. The
// primary index is assumed when none has been selected.
func NewCompactParser(table *schema.TableDef, reg *column.Registry) (*CompactParser, error) {
	idx := table.SelectedIndex()
	if idx == nil {
		idx = table.PrimaryIndex()
	}
	if idx == nil {
		return nil, fmt.Errorf("table %s has no usable index: %w", table.Name, format.ErrSchemaMismatch)
	}
	return &CompactParser{table: table, index: idx, reg: reg}, nil
}

// Index returns the index this parser decodes.
func (p *CompactParser) Index() *schema.IndexDef { return p.index }

// fieldSpec is one physical field of a record.
type fieldSpec struct {
	col      *schema.Column
	internal bool // trx-id or roll-ptr, col carries only a name
	width    int  // fixed width for internal fields
}

// recordFields returns the physical field order for a record of this
// index at the given tree level.
//
// Clustered leaf:      key cols, trx-id, roll-ptr, remaining cols
// Clustered non-leaf:  key cols (child pointer follows separately)
// Secondary leaf:      key cols, then clustered key cols not in the key
// Secondary non-leaf:  same as leaf, plus the child pointer
func (p *CompactParser) recordFields(isLeaf bool) ([]fieldSpec, error) {
	var fields []fieldSpec
	inKey := make(map[string]bool, len(p.index.Columns))
	for _, name := range p.index.Columns {
		col, ok := p.table.GetColumn(name)
		if !ok {
			return nil, fmt.Errorf("index %s references unknown column %s: %w",
				p.index.Name, name, format.ErrSchemaMismatch)
		}
		inKey[name] = true
		fields = append(fields, fieldSpec{col: col})
	}

	if p.index.IsPrimary {
		if !isLeaf {
			return fields, nil
		}
		fields = append(fields,
			fieldSpec{col: &schema.Column{Name: "DB_TRX_ID"}, internal: true, width: trxIDLen},
			fieldSpec{col: &schema.Column{Name: "DB_ROLL_PTR"}, internal: true, width: rollPtrLen})
		for _, col := range p.table.Columns {
			if inKey[col.Name] {
				continue
			}
			fields = append(fields, fieldSpec{col: col})
		}
		return fields, nil
	}

	// Secondary: the clustered key makes the record unique.
	for _, name := range p.table.PrimaryKeys {
		if inKey[name] {
			continue
		}
		col, _ := p.table.GetColumn(name)
		fields = append(fields, fieldSpec{col: col})
	}
	return fields, nil
}

// ParseRow decodes the user record at rec.ContentPos.
func (p *CompactParser) ParseRow(pageData []byte, rec *GenericRecord, isLeaf bool) (*ParsedRow, error) {
	row, _, err := p.parseRow(pageData, rec, isLeaf)
	return row, err
}

// parseRow additionally returns the offset one past the last field,
// which is where a node-pointer record stores its child page number.
func (p *CompactParser) parseRow(pageData []byte, rec *GenericRecord, isLeaf bool) (*ParsedRow, int, error) {
	if rec.Header.Type == format.RecInfimum || rec.Header.Type == format.RecSupremum {
		return nil, 0, fmt.Errorf("system record has no row: %w", format.ErrInvalidFormat)
	}

	fields, err := p.recordFields(isLeaf)
	if err != nil {
		return nil, 0, err
	}

	headerPos := rec.ContentPos - format.RecordHeaderSize
	if headerPos < 0 {
		return nil, 0, fmt.Errorf("record origin %d before header: %w", rec.ContentPos, format.ErrInvalidFormat)
	}

	// Null bitmap covers the nullable columns of THIS record, one bit
	// each in field order, packed toward the record header.
	var nullable []*schema.Column
	for _, f := range fields {
		if !f.internal && f.col.Nullable {
			nullable = append(nullable, f.col)
		}
	}
	nullBitmapSize := (len(nullable) + 7) / 8
	bitmapPos := headerPos - nullBitmapSize
	if bitmapPos < 0 {
		return nil, 0, fmt.Errorf("null bitmap out of page: %w", format.ErrTruncatedRead)
	}
	isNull := make(map[string]bool, len(nullable))
	for i, col := range nullable {
		b := pageData[headerPos-1-i/8]
		if b&(1<<uint(i%8)) != 0 {
			isNull[col.Name] = true
		}
	}

	// Variable-length headers precede the bitmap, stored in reverse
	// field order: the byte closest to the bitmap belongs to the first
	// variable column.
	type varInfo struct {
		length int
		extern bool
	}
	varLens := make(map[string]varInfo)
	pos := bitmapPos
	for _, f := range fields {
		if f.internal || !f.col.IsVariableLength() || isNull[f.col.Name] {
			continue
		}
		pos--
		if pos < 0 {
			return nil, 0, fmt.Errorf("varlen header out of page: %w", format.ErrTruncatedRead)
		}
		first := int(pageData[pos])
		info := varInfo{length: first}
		if twoByteLength(f.col, first) {
			pos--
			if pos < 0 {
				return nil, 0, fmt.Errorf("varlen header out of page: %w", format.ErrTruncatedRead)
			}
			info.extern = first&0x40 != 0
			info.length = (first&0x3F)<<8 | int(pageData[pos])
		}
		varLens[f.col.Name] = info
	}

	row := &ParsedRow{
		PageNo:     rec.PageNumber,
		HeapNumber: rec.Header.HeapNumber,
		Deleted:    rec.Header.FlagsDeleted,
		Values:     make([]Value, 0, len(fields)),
	}

	dataPos := rec.ContentPos
	for _, f := range fields {
		if f.internal {
			raw, err := readField(pageData, dataPos, f.width)
			if err != nil {
				return nil, 0, fmt.Errorf("read %s: %w", f.col.Name, err)
			}
			var v uint64
			for _, b := range raw {
				v = v<<8 | uint64(b)
			}
			row.Values = append(row.Values, Value{Column: f.col.Name, Kind: KindInternal, Uint: v})
			dataPos += f.width
			continue
		}

		if isNull[f.col.Name] {
			row.Values = append(row.Values, Value{Column: f.col.Name, Kind: KindNull})
			continue
		}

		info := varLens[f.col.Name]
		if info.extern {
			// Inline image is a local prefix followed by the 20-byte
			// chain pointer; hand both back unresolved.
			raw, err := readField(pageData, dataPos, info.length)
			if err != nil {
				return nil, 0, fmt.Errorf("read extern column %s: %w", f.col.Name, err)
			}
			if info.length < ExternRefSize {
				return nil, 0, fmt.Errorf("extern column %s shorter than pointer: %w",
					f.col.Name, format.ErrInvalidFormat)
			}
			ref, err := ParseExternRef(raw, info.length-ExternRefSize)
			if err != nil {
				return nil, 0, err
			}
			prefix := make([]byte, info.length-ExternRefSize)
			copy(prefix, raw)
			row.Values = append(row.Values, Value{
				Column: f.col.Name, Kind: KindExtern, Bytes: prefix, Extern: ref,
			})
			dataPos += info.length
			continue
		}

		val, n, err := p.reg.ParseColumn(pageData, dataPos, f.col, info.length)
		if err != nil {
			return nil, 0, fmt.Errorf("parse column %s: %w", f.col.Name, err)
		}
		v := valueFromParsed(f.col.Name, val)
		if f.col.Type == schema.TypeDate || f.col.Type == schema.TypeTime ||
			f.col.Type == schema.TypeDateTime || f.col.Type == schema.TypeTimestamp {
			if v.Kind == KindString {
				v.Kind = KindTemporal
			}
		}
		row.Values = append(row.Values, v)
		dataPos += n
	}

	return row, dataPos, nil
}

// ParseNodePointer decodes a non-leaf record: the key fields followed
// by the 4-byte child page number.
func (p *CompactParser) ParseNodePointer(pageData []byte, rec *GenericRecord) (*ParsedRow, uint32, error) {
	row, end, err := p.parseRow(pageData, rec, false)
	if err != nil {
		return nil, 0, err
	}
	child, err := format.Be32(pageData, end)
	if err != nil {
		return nil, 0, fmt.Errorf("read child pointer: %w", err)
	}
	return row, child, nil
}

func readField(p []byte, off, n int) ([]byte, error) {
	if off < 0 || off+n > len(p) {
		return nil, format.ErrShortRead
	}
	return p[off : off+n], nil
}

// twoByteLength reports whether the column's length header takes two
// bytes given the first (rightmost) byte read. Columns that can never
// exceed 255 stored bytes always use one byte.
func twoByteLength(col *schema.Column, firstByte int) bool {
	if firstByte <= 127 {
		return false
	}
	return col.MaxInlineBytes() > 255
}
