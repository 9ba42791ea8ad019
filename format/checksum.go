// checksum.go - Page checksum algorithms validated by the import path
package format

import "hash/crc32"

// ChecksumAlg selects the stored-checksum formula.
type ChecksumAlg int

const (
	// ChecksumCRC32C is the modern algorithm: CRC-32C over two spans
	// (page number..flush-LSN, body after the FIL header) XORed together.
	ChecksumCRC32C ChecksumAlg = iota
	// ChecksumInnoDB is the legacy fold-based pair of checksums.
	ChecksumInnoDB
	// ChecksumNone stores the magic constant in both slots.
	ChecksumNone
)

const noChecksumMagic = 0xDEADBEEF

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// PageChecksumCRC32C computes the CRC-32C page checksum over a full page
// image. The checksum field itself (bytes 0..3) and the trailer are
// excluded by construction.
func PageChecksumCRC32C(p []byte) uint32 {
	c1 := crc32.Checksum(p[FilPageOffset:FilPageFlushLSN], castagnoli)
	c2 := crc32.Checksum(p[FilHeaderSize:len(p)-FilTrailerSize], castagnoli)
	return c1 ^ c2
}

// foldPair mirrors the engine's ut_fold_ulint_pair.
func foldPair(n1, n2 uint32) uint32 {
	return ((((n1 ^ n2 ^ 0x0a9563d8) << 8) + n1) ^ 0x29d03a6b) + n2
}

// foldBytes mirrors ut_fold_binary over a byte span.
func foldBytes(b []byte) uint32 {
	var fold uint32
	for _, c := range b {
		fold = foldPair(fold, uint32(c))
	}
	return fold
}

// PageChecksumInnoDB computes the legacy header checksum (the "new
// checksum" of the old algorithm, stored at offset 0).
func PageChecksumInnoDB(p []byte) uint32 {
	h := foldBytes(p[FilPageOffset:FilPageFlushLSN])
	b := foldBytes(p[FilHeaderSize : len(p)-FilTrailerSize])
	return h + b
}

// PageChecksumInnoDBOld computes the legacy trailer checksum (over the
// LSN-less header prefix), stored in the trailer slot.
func PageChecksumInnoDBOld(p []byte) uint32 {
	return foldBytes(p[:FilPageLSN])
}

// StampChecksum recomputes and stores the checksum fields of a full
// logical page image in place.
func StampChecksum(p []byte, alg ChecksumAlg) {
	var head, tail uint32
	switch alg {
	case ChecksumCRC32C:
		head = PageChecksumCRC32C(p)
		tail = head
	case ChecksumInnoDB:
		head = PageChecksumInnoDB(p)
		tail = PageChecksumInnoDBOld(p)
	case ChecksumNone:
		head = noChecksumMagic
		tail = noChecksumMagic
	}
	PutBe32(p, FilPageChecksum, head)
	PutBe32(p, len(p)-FilTrailerSize, tail)
}

// VerifyChecksum checks a full page image against the stored checksum.
func VerifyChecksum(p []byte, alg ChecksumAlg) bool {
	stored, err := Be32(p, FilPageChecksum)
	if err != nil {
		return false
	}
	switch alg {
	case ChecksumCRC32C:
		return stored == PageChecksumCRC32C(p)
	case ChecksumInnoDB:
		return stored == PageChecksumInnoDB(p)
	case ChecksumNone:
		return true
	}
	return false
}

// CRC32C computes a plain Castagnoli CRC, used to seal the unwrapped
// key-material block.
func CRC32C(b []byte) uint32 {
	return crc32.Checksum(b, castagnoli)
}
