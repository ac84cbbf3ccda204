package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptPrivateKey(t *testing.T) {
	data, err := EncryptPrivateKey(testKeyHex, "correct horse battery staple")
	require.NoError(t, err)

	got, err := DecryptPrivateKey(data, "correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)
}

func TestEncryptPrivateKey_Prefix(t *testing.T) {
	data, err := EncryptPrivateKey("0x"+testKeyHex, "pw")
	require.NoError(t, err)

	got, err := DecryptPrivateKey(data, "pw")
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)
}

func TestEncryptPrivateKey_Rejections(t *testing.T) {
	_, err := EncryptPrivateKey(testKeyHex, "")
	assert.Error(t, err)

	_, err = EncryptPrivateKey("nothex", "pw")
	assert.Error(t, err)

	// 16 bytes, not a 32-byte key.
	_, err = EncryptPrivateKey("00112233445566778899aabbccddeeff", "pw")
	assert.Error(t, err)
}

func TestDecryptPrivateKey_WrongPassword(t *testing.T) {
	data, err := EncryptPrivateKey(testKeyHex, "right")
	require.NoError(t, err)

	_, err = DecryptPrivateKey(data, "wrong")
	assert.Error(t, err)
}

func TestDecryptPrivateKey_Tampered(t *testing.T) {
	data, err := EncryptPrivateKey(testKeyHex, "pw")
	require.NoError(t, err)

	_, err = DecryptPrivateKey([]byte("not json"), "pw")
	assert.Error(t, err)

	_, err = DecryptPrivateKey([]byte(`{"schema":2}`), "pw")
	assert.Error(t, err)

	// Flip one ciphertext byte; GCM must refuse.
	tampered := make([]byte, len(data))
	copy(tampered, data)
	for i := len(tampered) - 1; i >= 0; i-- {
		if tampered[i] >= 'a' && tampered[i] < 'z' {
			tampered[i]++
			break
		}
	}
	_, err = DecryptPrivateKey(tampered, "pw")
	assert.Error(t, err)
}

func TestLoadPrivateKey(t *testing.T) {
	// Raw hex wins and loses its prefix.
	got, err := LoadPrivateKey(KeySource{RawHex: "0x" + testKeyHex})
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)

	// Keyfile path.
	data, err := EncryptPrivateKey(testKeyHex, "pw")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "wallet.key.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	got, err = LoadPrivateKey(KeySource{KeyfilePath: path, KeyfileSecret: "pw"})
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)

	// No source at all.
	_, err = LoadPrivateKey(KeySource{})
	assert.Error(t, err)

	// Invalid raw hex is caught before use.
	_, err = LoadPrivateKey(KeySource{RawHex: "xyz"})
	assert.Error(t, err)

	// Missing file.
	_, err = LoadPrivateKey(KeySource{KeyfilePath: filepath.Join(t.TempDir(), "absent"), KeyfileSecret: "pw"})
	assert.Error(t, err)
}
