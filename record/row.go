// row.go - Decoded row model with tagged values and extern pointers
package record

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dbrescue/go-ibdrescue/format"
)

// ValueKind tags the decoded representation of a column value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindInt
	KindUint
	KindFloat
	KindString
	KindBytes
	KindTemporal
	KindDecimal
	KindBool
	KindInternal // trx-id / roll-ptr, carried but not user data
	KindExtern   // local prefix plus off-page pointer, not yet resolved
)

// ExternRef is the 20-byte pointer to an off-page chain, stored after
// the local prefix of an overflowing column.
type ExternRef struct {
	SpaceID uint32
	PageNo  uint32
	Offset  uint32 // byte offset of the first blob header in the page
	Length  uint64 // total off-page bytes (high bit of the stored field flags ownership)
}

const ExternRefSize = 20

// ParseExternRef reads the pointer from the last 20 bytes of a column image.
func ParseExternRef(b []byte, off int) (ExternRef, error) {
	if off < 0 || off+ExternRefSize > len(b) {
		return ExternRef{}, fmt.Errorf("short extern pointer: %w", format.ErrTruncatedRead)
	}
	space, _ := format.Be32(b, off)
	page, _ := format.Be32(b, off+4)
	offset, _ := format.Be32(b, off+8)
	length, _ := format.Be64(b, off+12)
	return ExternRef{
		SpaceID: space,
		PageNo:  page,
		Offset:  offset,
		Length:  length & 0x3FFFFFFFFFFFFFFF,
	}, nil
}

// Write stamps the pointer back into a column image.
func (e ExternRef) Write(b []byte, off int) error {
	if off < 0 || off+ExternRefSize > len(b) {
		return fmt.Errorf("short extern pointer: %w", format.ErrTruncatedRead)
	}
	format.PutBe32(b, off, e.SpaceID)
	format.PutBe32(b, off+4, e.PageNo)
	format.PutBe32(b, off+8, e.Offset)
	format.PutBe64(b, off+12, e.Length)
	return nil
}

// Value is one decoded column: the kind says which field is live.
type Value struct {
	Column string
	Kind   ValueKind

	Int     int64
	Uint    uint64
	Float   float64
	Str     string
	Bytes   []byte
	Decimal decimal.Decimal

	// Extern columns keep the inline prefix in Bytes and the chain
	// pointer here until the caller resolves it.
	Extern ExternRef
}

// Go returns the natural Go representation, for JSON output and tests.
func (v Value) Go() interface{} {
	switch v.Kind {
	case KindNull:
		return nil
	case KindInt:
		return v.Int
	case KindUint, KindInternal:
		return v.Uint
	case KindFloat:
		return v.Float
	case KindString, KindTemporal:
		return v.Str
	case KindBytes, KindExtern:
		return v.Bytes
	case KindDecimal:
		return v.Decimal
	case KindBool:
		return v.Int != 0
	}
	return nil
}

// IsNull reports whether the value is SQL NULL.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// valueFromParsed wraps a column parser result into a tagged Value.
func valueFromParsed(name string, raw interface{}) Value {
	v := Value{Column: name}
	switch x := raw.(type) {
	case nil:
		v.Kind = KindNull
	case int64:
		v.Kind = KindInt
		v.Int = x
	case int:
		v.Kind = KindInt
		v.Int = int64(x)
	case uint64:
		v.Kind = KindUint
		v.Uint = x
	case uint8:
		v.Kind = KindUint
		v.Uint = uint64(x)
	case float64:
		v.Kind = KindFloat
		v.Float = x
	case string:
		v.Kind = KindString
		v.Str = x
	case []byte:
		v.Kind = KindBytes
		v.Bytes = x
	case bool:
		v.Kind = KindBool
		if x {
			v.Int = 1
		}
	case decimal.Decimal:
		v.Kind = KindDecimal
		v.Decimal = x
	default:
		v.Kind = KindString
		v.Str = fmt.Sprint(x)
	}
	return v
}

// ParsedRow is one decoded user record in index column order.
type ParsedRow struct {
	PageNo     uint32
	HeapNumber uint16
	Deleted    bool
	Values     []Value
}

// Value returns the named column value, if present.
func (r *ParsedRow) Value(name string) (Value, bool) {
	for _, v := range r.Values {
		if v.Column == name {
			return v, true
		}
	}
	return Value{}, false
}

// HasExtern reports whether any column still points off-page.
func (r *ParsedRow) HasExtern() bool {
	for _, v := range r.Values {
		if v.Kind == KindExtern {
			return true
		}
	}
	return false
}
