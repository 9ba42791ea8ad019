// cipher.go - Unpadded AES-256-CBC exactly as the engine lays it out
package crypt

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/pkg/errors"

	"github.com/dbrescue/go-ibdrescue/format"
)

// MinEncryptedLen is the smallest region the engine ever ciphers.
const MinEncryptedLen = 64

const tailLen = 2 * aes.BlockSize

// EncryptRegion ciphers a region whose length need not be block-aligned,
// reproducing the engine's unpadded layout: CBC over the block-aligned
// prefix, the unaligned remainder copied verbatim, then the last two
// blocks of that intermediate stream re-ciphered in place as one
// independent CBC(iv) unit.
func EncryptRegion(dst, src []byte, ki *KeyIv) error {
	n := len(src)
	if len(dst) < n {
		return errors.Wrap(format.ErrDecryptionFailure, "short destination")
	}
	if n < aes.BlockSize {
		return errors.Wrapf(format.ErrDecryptionFailure, "region too small: %d", n)
	}
	block, err := aes.NewCipher(ki.Key[:])
	if err != nil {
		return errors.Wrap(format.ErrDecryptionFailure, "data key cipher")
	}
	iv := ki.Iv[:aes.BlockSize]

	mainLen := (n / aes.BlockSize) * aes.BlockSize
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(dst[:mainLen], src[:mainLen])
	if mainLen == n {
		return nil
	}
	if n < tailLen {
		return errors.Wrapf(format.ErrDecryptionFailure, "non-aligned region too small: %d", n)
	}
	copy(dst[mainLen:n], src[mainLen:n])

	// Second pass over the stream tail: part main ciphertext, part
	// plaintext remainder, ciphered again as one 32-byte unit.
	var tail [tailLen]byte
	copy(tail[:], dst[n-tailLen:n])
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(dst[n-tailLen:n], tail[:])
	return nil
}

// DecryptRegion reverses EncryptRegion. The last two blocks must be
// decrypted first, as one 32-byte unit: that restores the tail of the
// main ciphertext (and the verbatim remainder) before the aligned
// prefix is decrypted. A strict left-to-right pass over a non-aligned
// region produces corrupt trailing bytes; this ordering is the engine's
// own layout, not an implementation choice.
func DecryptRegion(dst, src []byte, ki *KeyIv) error {
	n := len(src)
	if len(dst) < n {
		return errors.Wrap(format.ErrDecryptionFailure, "short destination")
	}
	if n < aes.BlockSize {
		return errors.Wrapf(format.ErrDecryptionFailure, "region too small: %d", n)
	}
	block, err := aes.NewCipher(ki.Key[:])
	if err != nil {
		return errors.Wrap(format.ErrDecryptionFailure, "data key cipher")
	}
	iv := ki.Iv[:aes.BlockSize]

	mainLen := (n / aes.BlockSize) * aes.BlockSize
	if mainLen == n {
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(dst[:n], src[:n])
		return nil
	}
	if n < tailLen {
		return errors.Wrapf(format.ErrDecryptionFailure, "non-aligned region too small: %d", n)
	}

	work := make([]byte, n)
	copy(work, src[:n])
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(work[n-tailLen:n], work[n-tailLen:n])
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(dst[:mainLen], work[:mainLen])
	copy(dst[mainLen:n], work[mainLen:n])
	return nil
}

// AlignBlock rounds n up to the cipher block size, used for the oldest
// transparent-compression header version.
func AlignBlock(n int) int {
	return (n + aes.BlockSize - 1) &^ (aes.BlockSize - 1)
}
