// page.go - Whole-page decrypt/encrypt transforms
package crypt

import (
	"github.com/pkg/errors"

	"github.com/dbrescue/go-ibdrescue/format"
)

// encryptedRegionLen computes how many bytes past the FIL header are
// ciphered on a given page.
//
// For plain encrypted pages the whole body is ciphered. For
// compressed-and-encrypted pages only the compressed payload is, with a
// 64-byte floor; v1 headers additionally round the length up to the
// cipher block size.
func encryptedRegionLen(p []byte, version InfoVersion) (int, error) {
	pt, err := format.Be16(p, format.FilPageType)
	if err != nil {
		return 0, errors.Wrap(format.ErrTruncatedRead, "page type")
	}
	body := len(p) - format.FilHeaderSize
	if format.PageType(pt) != format.PageTypeCompressedAndEncrypted {
		return body, nil
	}
	compLen, err := format.Be16(p, format.FilPageCompressSize)
	if err != nil {
		return 0, errors.Wrap(format.ErrTruncatedRead, "compressed size")
	}
	n := int(compLen)
	if version == InfoV1 {
		n = AlignBlock(n)
	}
	if n < MinEncryptedLen {
		n = MinEncryptedLen
	}
	if n > body {
		return 0, errors.Wrapf(format.ErrInvalidFormat,
			"encrypted region %d exceeds page body %d", n, body)
	}
	return n, nil
}

// DecryptPage reverses page encryption in place and restores the
// original page-type tag. Non-encrypted pages pass through untouched.
// Returns whether the page still needs a decompression pass.
func DecryptPage(p []byte, ki *KeyIv, version InfoVersion) (bool, error) {
	pt, err := format.Be16(p, format.FilPageType)
	if err != nil {
		return false, errors.Wrap(format.ErrTruncatedRead, "page type")
	}
	typ := format.PageType(pt)
	if !typ.IsEncrypted() {
		return typ.IsTransparentlyCompressed(), nil
	}
	if ki == nil {
		return false, errors.Wrap(format.ErrDecryptionFailure,
			"encrypted page but no tablespace key")
	}

	n, err := encryptedRegionLen(p, version)
	if err != nil {
		return false, err
	}
	region := p[format.FilHeaderSize : format.FilHeaderSize+n]
	if err := DecryptRegion(region, region, ki); err != nil {
		return false, err
	}

	// Restore the pre-encryption type tag.
	switch typ {
	case format.PageTypeEncrypted:
		orig, _ := format.Be16(p, format.FilPageOriginalType)
		format.PutBe16(p, format.FilPageType, orig)
		return false, nil
	case format.PageTypeEncryptedRtree:
		format.PutBe16(p, format.FilPageType, uint16(format.PageTypeRtree))
		return false, nil
	default: // compressed-and-encrypted
		format.PutBe16(p, format.FilPageType, uint16(format.PageTypeCompressed))
		return true, nil
	}
}

// EncryptPage is the inverse transform, used to synthesize encrypted
// fixtures and to re-seal pages when a rebuild keeps encryption on.
// The page must already carry its final type tag in the side field.
func EncryptPage(p []byte, ki *KeyIv, version InfoVersion, typ format.PageType) error {
	cur, err := format.Be16(p, format.FilPageType)
	if err != nil {
		return errors.Wrap(format.ErrTruncatedRead, "page type")
	}
	switch typ {
	case format.PageTypeEncrypted:
		format.PutBe16(p, format.FilPageOriginalType, cur)
	case format.PageTypeEncryptedRtree, format.PageTypeCompressedAndEncrypted:
	default:
		return errors.Wrapf(format.ErrInvalidFormat, "not an encrypted tag: %d", typ)
	}
	format.PutBe16(p, format.FilPageType, uint16(typ))

	n, err := encryptedRegionLen(p, version)
	if err != nil {
		return err
	}
	region := p[format.FilHeaderSize : format.FilHeaderSize+n]
	return EncryptRegion(region, region, ki)
}
