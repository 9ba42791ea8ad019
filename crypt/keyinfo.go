// keyinfo.go - Encryption-info header parsing and tablespace key unwrap
package crypt

import (
	"crypto/aes"

	"github.com/pkg/errors"

	"github.com/dbrescue/go-ibdrescue/format"
)

// Encryption-info header versions, identified by a 3-byte magic.
type InfoVersion int

const (
	InfoV1 InfoVersion = 1
	InfoV2 InfoVersion = 2
	InfoV3 InfoVersion = 3
)

const (
	MagicSize  = 3
	keyIDSize  = 4
	uuidSize   = 36
	KeyLen     = 32
	IvLen      = 32
	wrappedLen = KeyLen + IvLen // 64-byte obfuscated block
)

var (
	magicV1 = []byte("lCA")
	magicV2 = []byte("lCB")
	magicV3 = []byte("lCC")
)

// infoOffsets maps header version to the byte offset of the 64-byte
// key-material block. A fixed table, not a computation: v1 never carries
// a server uuid, v2/v3 skip 36 extra bytes for it.
var infoOffsets = map[InfoVersion]int{
	InfoV1: MagicSize + keyIDSize,
	InfoV2: MagicSize + keyIDSize + uuidSize,
	InfoV3: MagicSize + keyIDSize + uuidSize,
}

// EncryptionInfo is the decoded on-disk header: consumed once per file
// to produce a KeyIv, then discarded.
type EncryptionInfo struct {
	Version    InfoVersion
	MasterKeyID uint32
	ServerUUID string // empty for v1
	Wrapped    [wrappedLen]byte
	Checksum   uint32
}

// KeyIv is the per-tablespace key material. Never persisted.
type KeyIv struct {
	Key [KeyLen]byte
	Iv  [IvLen]byte
}

// ParseEncryptionInfo decodes the raw header blob read from the
// tablespace. The blob starts with one of the three magics.
func ParseEncryptionInfo(blob []byte) (*EncryptionInfo, error) {
	if len(blob) < MagicSize {
		return nil, errors.Wrap(format.ErrTruncatedRead, "encryption info")
	}
	var ver InfoVersion
	switch {
	case string(blob[:MagicSize]) == string(magicV1):
		ver = InfoV1
	case string(blob[:MagicSize]) == string(magicV2):
		ver = InfoV2
	case string(blob[:MagicSize]) == string(magicV3):
		ver = InfoV3
	default:
		return nil, errors.Wrapf(format.ErrInvalidFormat,
			"unrecognized encryption magic % x", blob[:MagicSize])
	}

	keyID, err := format.Be32(blob, MagicSize)
	if err != nil {
		return nil, errors.Wrap(format.ErrTruncatedRead, "master key id")
	}

	off := infoOffsets[ver]
	if ver == InfoV1 && keyID == 0 {
		// Legacy v1 headers with master-key-id 0 store the key id a
		// second time before the key block.
		off += keyIDSize
	}

	info := &EncryptionInfo{Version: ver, MasterKeyID: keyID}
	if ver != InfoV1 {
		if len(blob) < MagicSize+keyIDSize+uuidSize {
			return nil, errors.Wrap(format.ErrTruncatedRead, "server uuid")
		}
		info.ServerUUID = string(blob[MagicSize+keyIDSize : MagicSize+keyIDSize+uuidSize])
	}

	if len(blob) < off+wrappedLen+4 {
		return nil, errors.Wrap(format.ErrTruncatedRead, "key material block")
	}
	copy(info.Wrapped[:], blob[off:off+wrappedLen])
	info.Checksum, _ = format.Be32(blob, off+wrappedLen)
	return info, nil
}

// UnwrapKey decrypts the 64-byte key-material block with the master key
// (AES-256-ECB, no padding), verifies its CRC-32C seal and splits it
// into the tablespace key and IV.
func UnwrapKey(info *EncryptionInfo, masterKey []byte) (*KeyIv, error) {
	if len(masterKey) == 0 {
		return nil, errors.Wrap(format.ErrDecryptionFailure, "empty master key")
	}
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, errors.Wrap(format.ErrDecryptionFailure, "master key cipher")
	}

	var plain [wrappedLen]byte
	for off := 0; off < wrappedLen; off += aes.BlockSize {
		block.Decrypt(plain[off:off+aes.BlockSize], info.Wrapped[off:off+aes.BlockSize])
	}

	if got := format.CRC32C(plain[:]); got != info.Checksum {
		return nil, errors.Wrapf(format.ErrChecksumMismatch,
			"key material: stored %#x computed %#x", info.Checksum, got)
	}

	ki := &KeyIv{}
	copy(ki.Key[:], plain[:KeyLen])
	copy(ki.Iv[:], plain[KeyLen:])
	return ki, nil
}

// WrapKey is the inverse of UnwrapKey, used to synthesize encryption
// headers for round-trip verification.
func WrapKey(ki *KeyIv, masterKey []byte, info *EncryptionInfo) error {
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return errors.Wrap(format.ErrDecryptionFailure, "master key cipher")
	}
	var plain [wrappedLen]byte
	copy(plain[:KeyLen], ki.Key[:])
	copy(plain[KeyLen:], ki.Iv[:])
	info.Checksum = format.CRC32C(plain[:])
	for off := 0; off < wrappedLen; off += aes.BlockSize {
		block.Encrypt(info.Wrapped[off:off+aes.BlockSize], plain[off:off+aes.BlockSize])
	}
	return nil
}

// EncodeEncryptionInfo serializes an EncryptionInfo back to its on-disk
// shape, used by tests and by rebuilds that retain encryption headers.
func EncodeEncryptionInfo(info *EncryptionInfo) []byte {
	var magic []byte
	switch info.Version {
	case InfoV1:
		magic = magicV1
	case InfoV2:
		magic = magicV2
	default:
		magic = magicV3
	}
	out := make([]byte, 0, 128)
	out = append(out, magic...)
	var id [4]byte
	format.PutBe32(id[:], 0, info.MasterKeyID)
	out = append(out, id[:]...)
	if info.Version == InfoV1 && info.MasterKeyID == 0 {
		out = append(out, id[:]...)
	}
	if info.Version != InfoV1 {
		uuid := make([]byte, uuidSize)
		copy(uuid, info.ServerUUID)
		out = append(out, uuid...)
	}
	out = append(out, info.Wrapped[:]...)
	var chk [4]byte
	format.PutBe32(chk[:], 0, info.Checksum)
	out = append(out, chk[:]...)
	return out
}
