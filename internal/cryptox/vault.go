// Package cryptox implements the vault sealing primitive: a device-held
// secret (typically a 32-byte master key) encrypted under a key derived from
// the account password, so the bundle can cross the server without the
// server ever seeing the plaintext.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dbelyaev/srpvault/internal/common"
	"golang.org/x/crypto/argon2"
)

// CipherSuiteAESGCM names the only cipher suite this package produces.
const CipherSuiteAESGCM = "AES-256-GCM"

// vaultHeader versions the payload layout. "A2" payloads are
// salt || nonce || ciphertext || tag.
const vaultHeader = "A2"

const (
	vaultSaltLen  = 16
	vaultNonceLen = 12
	vaultKeyLen   = 32
)

// Vault key derivation costs. Recorded in the blob's metadata, so opening a
// blob always uses the costs it was sealed with.
const (
	vaultArgonTime        = 4
	vaultArgonMemoryKiB   = 64 * 1024
	vaultArgonParallelism = 2
)

// VaultBlob is the transferable form of a sealed vault. All three fields are
// stored and forwarded by the server verbatim; only a device holding the
// account password can open it.
type VaultBlob struct {
	CipherText      string
	CipherSuite     string
	KdfMetadataJSON string
}

// VaultKdfMetadata describes how the vault key is derived from the password.
type VaultKdfMetadata struct {
	Cipher string       `json:"cipher"`
	Kdf    vaultKdfSpec `json:"kdf"`
}

type vaultKdfSpec struct {
	Algorithm   string `json:"algorithm"`
	MemoryKiB   int    `json:"memoryKb"`
	Iterations  int    `json:"iterations"`
	Parallelism int    `json:"parallelism"`
	SaltBytes   int    `json:"saltBytes"`
	Header      string `json:"header"`
}

var (
	// ErrVaultMalformed reports a blob whose envelope cannot be parsed.
	ErrVaultMalformed = fmt.Errorf("%w: malformed vault blob", common.ErrorValidation)
	// ErrVaultAuthentication reports a failed GCM tag check: wrong password
	// or tampered ciphertext. No plaintext is ever returned in this case.
	ErrVaultAuthentication = fmt.Errorf("%w: vault authentication failed", common.ErrorUnauthorized)
)

func deriveVaultKey(password, salt []byte, spec vaultKdfSpec) []byte {
	return argon2.IDKey(password, salt,
		uint32(spec.Iterations), uint32(spec.MemoryKiB), uint8(spec.Parallelism), vaultKeyLen)
}

func defaultKdfSpec() vaultKdfSpec {
	return vaultKdfSpec{
		Algorithm:   "argon2id",
		MemoryKiB:   vaultArgonMemoryKiB,
		Iterations:  vaultArgonTime,
		Parallelism: vaultArgonParallelism,
		SaltBytes:   vaultSaltLen,
		Header:      vaultHeader,
	}
}

// SealVault encrypts plaintext under a key derived from password with a
// fresh random salt and nonce. The returned blob carries everything a
// redeeming device needs besides the password itself.
func SealVault(password, plaintext []byte) (*VaultBlob, error) {
	spec := defaultKdfSpec()
	salt := common.GenerateRandByteArray(vaultSaltLen)
	nonce := common.GenerateRandByteArray(vaultNonceLen)

	key := deriveVaultKey(password, salt, spec)
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	sealed := aesgcm.Seal(nil, nonce, plaintext, nil)

	payload := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	payload = append(payload, salt...)
	payload = append(payload, nonce...)
	payload = append(payload, sealed...)

	metadata, err := json.Marshal(VaultKdfMetadata{Cipher: CipherSuiteAESGCM, Kdf: spec})
	if err != nil {
		return nil, err
	}

	return &VaultBlob{
		CipherText:      vaultHeader + ":" + base64.StdEncoding.EncodeToString(payload),
		CipherSuite:     CipherSuiteAESGCM,
		KdfMetadataJSON: string(metadata),
	}, nil
}

// OpenVault re-derives the key from password and the blob's recorded KDF
// parameters and decrypts the payload. A wrong password fails the integrity
// check (ErrVaultAuthentication) rather than returning garbage plaintext.
func OpenVault(blob *VaultBlob, password []byte) ([]byte, error) {
	if blob == nil {
		return nil, ErrVaultMalformed
	}
	if blob.CipherSuite != "" && blob.CipherSuite != CipherSuiteAESGCM {
		return nil, fmt.Errorf("%w: unsupported cipher suite %q", common.ErrorConfiguration, blob.CipherSuite)
	}

	encoded, ok := strings.CutPrefix(blob.CipherText, vaultHeader+":")
	if !ok {
		return nil, ErrVaultMalformed
	}
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrVaultMalformed
	}

	spec := defaultKdfSpec()
	if blob.KdfMetadataJSON != "" {
		var meta VaultKdfMetadata
		if err := json.Unmarshal([]byte(blob.KdfMetadataJSON), &meta); err != nil {
			return nil, ErrVaultMalformed
		}
		if meta.Kdf.Algorithm != "argon2id" {
			return nil, fmt.Errorf("%w: unsupported vault kdf %q", common.ErrorConfiguration, meta.Kdf.Algorithm)
		}
		spec = meta.Kdf
	}

	saltLen := spec.SaltBytes
	if saltLen <= 0 {
		saltLen = vaultSaltLen
	}
	if len(payload) < saltLen+vaultNonceLen+1 {
		return nil, ErrVaultMalformed
	}

	salt := payload[:saltLen]
	nonce := payload[saltLen : saltLen+vaultNonceLen]
	sealed := payload[saltLen+vaultNonceLen:]

	key := deriveVaultKey(password, salt, spec)
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	plaintext, err := aesgcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrVaultAuthentication
	}
	return plaintext, nil
}
