package srp

import (
	"crypto/rand"
	"errors"
	"math/big"
)

var (
	bigZero = big.NewInt(0)
	bigOne  = big.NewInt(1)
)

// ErrInvalidModulus is returned when a modular operation is requested with a
// modulus that cannot carry the protocol (nil, zero, one, or negative).
var ErrInvalidModulus = errors.New("srp: invalid modulus")

// ModPow computes base^exponent mod modulus for non-negative exponents.
// It delegates to math/big's square-and-multiply exponentiation, which has a
// fixed structure over the exponent bits (no data-dependent early exit).
func ModPow(base, exponent, modulus *big.Int) *big.Int {
	return new(big.Int).Exp(base, exponent, modulus)
}

// RandomScalar returns a uniformly distributed integer in [1, modulus),
// sampled from crypto/rand. Candidates outside the range are rejected and
// redrawn rather than reduced, so there is no modulo bias.
func RandomScalar(modulus *big.Int) (*big.Int, error) {
	if modulus == nil || modulus.Cmp(bigOne) <= 0 {
		return nil, ErrInvalidModulus
	}

	size := (modulus.BitLen() + 7) / 8
	buf := make([]byte, size)
	for {
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		v := new(big.Int).SetBytes(buf)
		if v.Sign() > 0 && v.Cmp(modulus) < 0 {
			return v, nil
		}
	}
}

// ToBigEndian encodes a non-negative integer as a minimal-length unsigned
// big-endian byte sequence. Zero encodes to a single zero byte so the
// round-trip through FromBigEndian is unambiguous.
func ToBigEndian(v *big.Int) []byte {
	b := v.Bytes()
	if len(b) == 0 {
		return []byte{0}
	}
	return b
}

// FromBigEndian parses unsigned big-endian bytes into an integer.
func FromBigEndian(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// pad encodes v as unsigned big-endian, left-padded with zeros to length
// bytes. Values longer than length keep only the least significant bytes,
// matching the fixed-width hashing convention of the protocol.
func pad(v *big.Int, length int) []byte {
	b := v.Bytes()
	if len(b) == length {
		return b
	}
	if len(b) > length {
		return b[len(b)-length:]
	}
	out := make([]byte, length)
	copy(out[length-len(b):], b)
	return out
}
