// parser.go - Column parser interface and base implementation
package column

import (
	"github.com/dbrescue/go-ibdrescue/format"
	"github.com/dbrescue/go-ibdrescue/schema"
)

// Options configure value decoding. Caller-owned; there is no
// process-wide parser state.
type Options struct {
	// SignCorrection toggles the engine's sign-bit XOR on stored
	// integers. On for real tablespace data, off for raw/test buffers.
	SignCorrection bool
}

// DefaultOptions decode real on-disk data.
func DefaultOptions() Options { return Options{SignCorrection: true} }

// Parser interface for parsing column values from raw bytes
type Parser interface {
	// Parse reads and parses column value from input
	Parse(input []byte, offset int, col *schema.Column, varLen int) (value interface{}, bytesRead int, err error)

	// Skip skips column value in input without parsing
	Skip(input []byte, offset int, col *schema.Column, varLen int) (bytesRead int, err error)
}

// BaseParser provides common functionality for column parsers
type BaseParser struct {
	Opts Options
}

// readBytes reads specified number of bytes from input
func (p *BaseParser) readBytes(input []byte, offset, length int) ([]byte, error) {
	if offset < 0 || offset+length > len(input) {
		return nil, format.ErrShortRead
	}
	return input[offset : offset+length], nil
}

func (p *BaseParser) readUint8(input []byte, offset int) (uint8, error) {
	if offset+1 > len(input) {
		return 0, format.ErrShortRead
	}
	return input[offset], nil
}

func (p *BaseParser) readUint16(input []byte, offset int) (uint16, error) {
	return format.Be16(input, offset)
}

func (p *BaseParser) readUint32(input []byte, offset int) (uint32, error) {
	return format.Be32(input, offset)
}

func (p *BaseParser) readUint64(input []byte, offset int) (uint64, error) {
	return format.Be64(input, offset)
}

// signMask applies the storage convention: stored integers have their
// sign bit toggled so byte order sorts correctly.
func (p *BaseParser) signBit(width uint) uint64 {
	if !p.Opts.SignCorrection {
		return 0
	}
	return 1 << (width - 1)
}

func (p *BaseParser) readInt8(input []byte, offset int) (int8, error) {
	val, err := p.readUint8(input, offset)
	if err != nil {
		return 0, err
	}
	return int8(uint64(val) ^ p.signBit(8)), nil
}

func (p *BaseParser) readInt16(input []byte, offset int) (int16, error) {
	val, err := p.readUint16(input, offset)
	if err != nil {
		return 0, err
	}
	return int16(uint64(val) ^ p.signBit(16)), nil
}

func (p *BaseParser) readInt32(input []byte, offset int) (int32, error) {
	val, err := p.readUint32(input, offset)
	if err != nil {
		return 0, err
	}
	return int32(uint64(val) ^ p.signBit(32)), nil
}

func (p *BaseParser) readInt64(input []byte, offset int) (int64, error) {
	val, err := p.readUint64(input, offset)
	if err != nil {
		return 0, err
	}
	return int64(val ^ p.signBit(64)), nil
}

// readMediumInt reads a 3-byte big-endian signed integer.
func (p *BaseParser) readMediumInt(input []byte, offset int) (int32, error) {
	val, err := format.Be24(input, offset)
	if err != nil {
		return 0, err
	}
	val ^= uint32(p.signBit(24))
	if val&0x800000 != 0 {
		val |= 0xFF000000
	}
	return int32(val), nil
}

// readUnsignedMediumInt reads a 3-byte big-endian unsigned integer.
func (p *BaseParser) readUnsignedMediumInt(input []byte, offset int) (uint32, error) {
	return format.Be24(input, offset)
}
