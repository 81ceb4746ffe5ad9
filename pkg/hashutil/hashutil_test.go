package hashutil_test

import (
	"encoding/hex"
	"testing"

	"github.com/rohmanhakim/site-auditor/pkg/hashutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/blake3"
)

func TestHashBytes_SHA256(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{
			name:     "empty data",
			data:     []byte{},
			expected: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:     "simple string",
			data:     []byte("hello world"),
			expected: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := hashutil.HashBytes(tt.data, hashutil.HashAlgoSHA256)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestHashBytes_UnsupportedAlgorithm(t *testing.T) {
	result, err := hashutil.HashBytes([]byte("test data"), "unsupported")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported hash algorithm")
	assert.Empty(t, result)
}

func TestFingerprint128_IsTruncatedBlake3(t *testing.T) {
	data := []byte("https://example.com/page")
	full := blake3.Sum256(data)

	fp := hashutil.Fingerprint128(data)
	assert.Len(t, fp, 32)
	assert.Equal(t, hex.EncodeToString(full[:16]), fp)
}

func TestFingerprint128_Deterministic(t *testing.T) {
	assert.Equal(t,
		hashutil.Fingerprint128([]byte("same input")),
		hashutil.Fingerprint128([]byte("same input")),
	)
	assert.NotEqual(t,
		hashutil.Fingerprint128([]byte("input a")),
		hashutil.Fingerprint128([]byte("input b")),
	)
}

func TestShortHash64_Length(t *testing.T) {
	assert.Len(t, hashutil.ShortHash64([]byte("subject")), 16)
}
