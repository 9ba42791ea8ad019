// endian.go - Big-endian byte reading and writing utilities
package format

import (
	"encoding/binary"
	"errors"
)

// ErrShortRead is returned when a fixed-width field would run past
// the end of its buffer.
var ErrShortRead = errors.New("short read")

func Be16(b []byte, off int) (uint16, error) {
	if off < 0 || off+2 > len(b) {
		return 0, ErrShortRead
	}
	return binary.BigEndian.Uint16(b[off : off+2]), nil
}

func Be24(b []byte, off int) (uint32, error) {
	if off < 0 || off+3 > len(b) {
		return 0, ErrShortRead
	}
	return uint32(b[off])<<16 | uint32(b[off+1])<<8 | uint32(b[off+2]), nil
}

func Be32(b []byte, off int) (uint32, error) {
	if off < 0 || off+4 > len(b) {
		return 0, ErrShortRead
	}
	return binary.BigEndian.Uint32(b[off : off+4]), nil
}

func Be48(b []byte, off int) (uint64, error) {
	if off < 0 || off+6 > len(b) {
		return 0, ErrShortRead
	}
	return uint64(b[off])<<40 | uint64(b[off+1])<<32 | uint64(b[off+2])<<24 |
		uint64(b[off+3])<<16 | uint64(b[off+4])<<8 | uint64(b[off+5]), nil
}

func Be64(b []byte, off int) (uint64, error) {
	if off < 0 || off+8 > len(b) {
		return 0, ErrShortRead
	}
	return binary.BigEndian.Uint64(b[off : off+8]), nil
}

func PutBe16(b []byte, off int, v uint16) error {
	if off < 0 || off+2 > len(b) {
		return ErrShortRead
	}
	binary.BigEndian.PutUint16(b[off:off+2], v)
	return nil
}

func PutBe32(b []byte, off int, v uint32) error {
	if off < 0 || off+4 > len(b) {
		return ErrShortRead
	}
	binary.BigEndian.PutUint32(b[off:off+4], v)
	return nil
}

func PutBe64(b []byte, off int, v uint64) error {
	if off < 0 || off+8 > len(b) {
		return ErrShortRead
	}
	binary.BigEndian.PutUint64(b[off:off+8], v)
	return nil
}
