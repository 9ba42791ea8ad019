package crypt

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbrescue/go-ibdrescue/format"
)

func testMasterKey() []byte {
	mk := make([]byte, 32)
	for i := range mk {
		mk[i] = byte(0x40 + i)
	}
	return mk
}

func sealedInfo(t *testing.T, ver InfoVersion, keyID uint32) ([]byte, *KeyIv) {
	t.Helper()
	ki := testKeyIv()
	info := &EncryptionInfo{Version: ver, MasterKeyID: keyID}
	if ver != InfoV1 {
		info.ServerUUID = "3f9c2a1e-0000-1111-2222-333344445555"
	}
	require.NoError(t, WrapKey(ki, testMasterKey(), info))
	return EncodeEncryptionInfo(info), ki
}

func TestKeyInfoRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name  string
		ver   InfoVersion
		keyID uint32
	}{
		{"v1", InfoV1, 1},
		{"v1 legacy key id zero", InfoV1, 0},
		{"v2", InfoV2, 7},
		{"v3", InfoV3, 42},
	} {
		t.Run(tc.name, func(t *testing.T) {
			blob, want := sealedInfo(t, tc.ver, tc.keyID)

			info, err := ParseEncryptionInfo(blob)
			require.NoError(t, err)
			assert.Equal(t, tc.ver, info.Version)
			assert.Equal(t, tc.keyID, info.MasterKeyID)

			got, err := UnwrapKey(info, testMasterKey())
			require.NoError(t, err)
			assert.Equal(t, want.Key, got.Key)
			assert.Equal(t, want.Iv, got.Iv)
		})
	}
}

func TestParseEncryptionInfoRejects(t *testing.T) {
	t.Run("bad magic", func(t *testing.T) {
		blob, _ := sealedInfo(t, InfoV3, 1)
		blob[0] = 'x'
		_, err := ParseEncryptionInfo(blob)
		assert.ErrorIs(t, errors.Cause(err), format.ErrInvalidFormat)
	})

	t.Run("truncated", func(t *testing.T) {
		blob, _ := sealedInfo(t, InfoV3, 1)
		_, err := ParseEncryptionInfo(blob[:20])
		assert.ErrorIs(t, errors.Cause(err), format.ErrTruncatedRead)
	})
}

func TestUnwrapKeyRejects(t *testing.T) {
	t.Run("corrupted key block", func(t *testing.T) {
		blob, _ := sealedInfo(t, InfoV2, 3)
		info, err := ParseEncryptionInfo(blob)
		require.NoError(t, err)
		info.Wrapped[17] ^= 0x01
		_, err = UnwrapKey(info, testMasterKey())
		assert.ErrorIs(t, errors.Cause(err), format.ErrChecksumMismatch)
	})

	t.Run("wrong master key", func(t *testing.T) {
		blob, _ := sealedInfo(t, InfoV2, 3)
		info, err := ParseEncryptionInfo(blob)
		require.NoError(t, err)
		wrong := testMasterKey()
		wrong[0] ^= 0xFF
		_, err = UnwrapKey(info, wrong)
		assert.ErrorIs(t, errors.Cause(err), format.ErrChecksumMismatch)
	})

	t.Run("empty master key", func(t *testing.T) {
		blob, _ := sealedInfo(t, InfoV1, 1)
		info, err := ParseEncryptionInfo(blob)
		require.NoError(t, err)
		_, err = UnwrapKey(info, nil)
		assert.ErrorIs(t, errors.Cause(err), format.ErrDecryptionFailure)
	})
}

// The v1 legacy layout stores the key id twice when it is zero; the
// key block moves four bytes right.
func TestLegacyV1Offset(t *testing.T) {
	blobZero, _ := sealedInfo(t, InfoV1, 0)
	blobOne, _ := sealedInfo(t, InfoV1, 1)
	assert.Equal(t, len(blobOne)+4, len(blobZero))
}
