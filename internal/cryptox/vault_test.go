package cryptox

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/dbelyaev/srpvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealVault_RoundTrip(t *testing.T) {
	masterKey := common.GenerateRandByteArray(32)
	password := []byte("correct horse battery staple")

	blob, err := SealVault(password, masterKey)
	require.NoError(t, err)

	assert.Equal(t, CipherSuiteAESGCM, blob.CipherSuite)
	assert.True(t, strings.HasPrefix(blob.CipherText, "A2:"))

	var meta VaultKdfMetadata
	require.NoError(t, json.Unmarshal([]byte(blob.KdfMetadataJSON), &meta))
	assert.Equal(t, "argon2id", meta.Kdf.Algorithm)
	assert.Equal(t, 16, meta.Kdf.SaltBytes)

	// The redeeming device re-derives the key independently from the same
	// password and the recorded parameters.
	plaintext, err := OpenVault(blob, []byte("correct horse battery staple"))
	require.NoError(t, err)
	assert.Equal(t, masterKey, plaintext)
}

func TestOpenVault_WrongPasswordFailsIntegrity(t *testing.T) {
	blob, err := SealVault([]byte("right password"), []byte("vault payload"))
	require.NoError(t, err)

	plaintext, err := OpenVault(blob, []byte("wrong password"))
	require.Error(t, err)
	assert.Nil(t, plaintext, "no garbage plaintext on auth failure")
	assert.True(t, errors.Is(err, common.ErrorUnauthorized))
}

func TestOpenVault_TamperedCiphertext(t *testing.T) {
	blob, err := SealVault([]byte("pw"), []byte("payload"))
	require.NoError(t, err)

	// Flip a character inside the base64 body.
	body := []rune(blob.CipherText)
	i := len(body) - 5
	if body[i] == 'A' {
		body[i] = 'B'
	} else {
		body[i] = 'A'
	}
	blob.CipherText = string(body)

	_, err = OpenVault(blob, []byte("pw"))
	require.Error(t, err)
}

func TestOpenVault_Malformed(t *testing.T) {
	tests := []struct {
		name string
		blob *VaultBlob
	}{
		{"nil blob", nil},
		{"missing header", &VaultBlob{CipherText: "nope"}},
		{"bad base64", &VaultBlob{CipherText: "A2:!!!"}},
		{"truncated payload", &VaultBlob{CipherText: "A2:AAAA"}},
		{"bad metadata json", &VaultBlob{CipherText: "A2:" + strings.Repeat("A", 64), KdfMetadataJSON: "{"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenVault(tt.blob, []byte("pw"))
			require.Error(t, err)
		})
	}
}

func TestOpenVault_UnsupportedSuite(t *testing.T) {
	blob, err := SealVault([]byte("pw"), []byte("payload"))
	require.NoError(t, err)
	blob.CipherSuite = "ROT13"

	_, err = OpenVault(blob, []byte("pw"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrorConfiguration))
}
