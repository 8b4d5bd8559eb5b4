package srp

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/dbelyaev/srpvault/internal/common"
	"golang.org/x/crypto/argon2"
)

// KDF algorithm tags stored alongside a credential's salt. The tag is the
// single source of truth for how the private key is derived; an unknown tag
// is a configuration error, never a silent fallback to the weaker variant.
const (
	KdfArgon2id     = "argon2id"
	KdfLegacySHA256 = "sha256"
)

// Argon2id cost defaults for new registrations. Login-time derivation uses
// the costs stored in the credential, never these, so verifier and login
// agree even if the defaults change later.
const (
	argon2Time        = 3
	argon2MemoryKiB   = 64 * 1024
	argon2Parallelism = 2
	argon2SaltLen     = 16
	argon2KeyLen      = 32
)

// KdfParams carries the KDF algorithm tag, salt and cost parameters of a
// credential. The JSON form travels on the wire as kdfParametersJson.
type KdfParams struct {
	Algorithm   string `json:"alg"`
	SaltBase64  string `json:"salt"`
	Parallelism int    `json:"p"`
	Iterations  int    `json:"t"`
	MemoryKiB   int    `json:"m"`
}

// NewArgon2Params allocates a fresh Argon2id parameter set with a random
// salt for a new registration.
func NewArgon2Params() KdfParams {
	salt := common.GenerateRandByteArray(argon2SaltLen)
	return KdfParams{
		Algorithm:   KdfArgon2id,
		SaltBase64:  base64.StdEncoding.EncodeToString(salt),
		Parallelism: argon2Parallelism,
		Iterations:  argon2Time,
		MemoryKiB:   argon2MemoryKiB,
	}
}

// ParseKdfParams decodes a kdfParametersJson document.
func ParseKdfParams(raw string) (KdfParams, error) {
	var p KdfParams
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return KdfParams{}, fmt.Errorf("parsing kdf parameters: %w", err)
	}
	return p, nil
}

// JSON serializes the parameters to their wire form.
func (p KdfParams) JSON() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Salt decodes the base64 salt.
func (p KdfParams) Salt() ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(p.SaltBase64)
	if err != nil {
		return nil, fmt.Errorf("decoding kdf salt: %w", err)
	}
	return salt, nil
}

// ValidateForRegistration rejects parameter sets a registering client could
// use to downgrade itself: only argon2id with a reasonable salt and costs
// within server bounds is acceptable for new credentials.
func (p KdfParams) ValidateForRegistration() error {
	if p.Algorithm != KdfArgon2id {
		return fmt.Errorf("%w: new registrations must use %s", common.ErrorValidation, KdfArgon2id)
	}
	salt, err := p.Salt()
	if err != nil || len(salt) < 8 {
		return fmt.Errorf("%w: missing or malformed kdf salt", common.ErrorValidation)
	}
	if p.Iterations < 1 || p.Iterations > 16 {
		return fmt.Errorf("%w: argon2 iterations out of bounds", common.ErrorValidation)
	}
	if p.MemoryKiB < 8*1024 || p.MemoryKiB > 1024*1024 {
		return fmt.Errorf("%w: argon2 memory out of bounds", common.ErrorValidation)
	}
	if p.Parallelism < 1 || p.Parallelism > 8 {
		return fmt.Errorf("%w: argon2 parallelism out of bounds", common.ErrorValidation)
	}
	return nil
}

// KDF derives the SRP private key scalar x from a password. The two
// implementations form a closed set dispatched once at credential load
// time via ResolveKDF.
type KDF interface {
	// PrivateKey derives x for the given user and password.
	PrivateKey(userID string, password []byte) (*big.Int, error)
	// Algorithm returns the tag of the variant.
	Algorithm() string
}

// ResolveKDF selects the derivation variant for the given parameters.
// Unrecognized tags yield common.ErrorConfiguration.
func ResolveKDF(p KdfParams) (KDF, error) {
	salt, err := p.Salt()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorConfiguration, err)
	}
	switch p.Algorithm {
	case KdfArgon2id:
		if p.Iterations < 1 || p.MemoryKiB < 8 || p.Parallelism < 1 {
			return nil, fmt.Errorf("%w: argon2id parameters missing", common.ErrorConfiguration)
		}
		return &argon2KDF{salt: salt, time: uint32(p.Iterations), memoryKiB: uint32(p.MemoryKiB), threads: uint8(p.Parallelism)}, nil
	case KdfLegacySHA256:
		return &legacySHA256KDF{salt: salt}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kdf algorithm %q", common.ErrorConfiguration, p.Algorithm)
	}
}

// argon2KDF is the memory-hard variant used for all new credentials.
// The derivation is deliberately expensive (tens to hundreds of
// milliseconds); callers on latency-sensitive paths should account for it.
type argon2KDF struct {
	salt      []byte
	time      uint32
	memoryKiB uint32
	threads   uint8
}

func (k *argon2KDF) Algorithm() string { return KdfArgon2id }

func (k *argon2KDF) PrivateKey(userID string, password []byte) (*big.Int, error) {
	// x/crypto/argon2 has no associated-data input, so the userID is bound
	// into the password block instead of passed as AAD.
	material := make([]byte, 0, len(userID)+1+len(password))
	material = append(material, []byte(userID)...)
	material = append(material, ':')
	material = append(material, password...)
	defer common.WipeByteArray(material)

	hash := argon2.IDKey(material, k.salt, k.time, k.memoryKiB, k.threads, argon2KeyLen)
	defer common.WipeByteArray(hash)
	return new(big.Int).SetBytes(hash), nil
}

// legacySHA256KDF computes x = SHA-256(salt || SHA-256(userID ":" password)).
// Kept only for credentials created before the memory-hard rollout; new
// registrations must never select it.
type legacySHA256KDF struct {
	salt []byte
}

func (k *legacySHA256KDF) Algorithm() string { return KdfLegacySHA256 }

func (k *legacySHA256KDF) PrivateKey(userID string, password []byte) (*big.Int, error) {
	inner := sha256.New()
	inner.Write([]byte(userID))
	inner.Write([]byte(":"))
	inner.Write(password)
	innerSum := inner.Sum(nil)

	outer := sha256.New()
	outer.Write(k.salt)
	outer.Write(innerSum)
	digest := outer.Sum(nil)
	return new(big.Int).SetBytes(digest), nil
}
