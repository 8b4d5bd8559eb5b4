// Package srp implements the SRP-6a password-authenticated key exchange
// primitives shared by server and clients: the group parameters, the
// arbitrary-precision numeric helpers, the private-key derivation (KDF)
// variants, and the six message derivations of the protocol.
package srp

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
	"sync"
)

// Algorithm tags the credential format produced by this package.
const Algorithm = "SRP-6a-2048-SHA256"

// DefaultModulusHex is the hex encoding of the default group modulus N.
// Both protocol participants must use the same group for a negotiation;
// servers return the group per negotiation so clients never have to assume
// a hardcoded one.
const DefaultModulusHex = "AC6BDB41324A9A9BF166DE5E1389582FAF72B6651987EE07FC3192943DB56050" +
	"A37329CBB4A099ED8193E0757767A13DD52312AB4B03310DCD7F48A9DA04FD50" +
	"E8083969EDB767B0CF6096A4FA3B58F90F6A54B42A59D53B3A2A7C5F4F5F4E46" +
	"2E9F6A4E128E71B9F0C67C8E18CBF4C3BAFE8A31C5CFFFB4E90D54BD45BF37DF" +
	"365C1A65E68CFDA76D4DA708DF1FB2BC2E4A4371"

// DefaultGenerator is the default group generator g.
const DefaultGenerator = 2

// Group holds the process-wide, read-only SRP group parameters (modulus N
// and generator g). The multiplier k = H(pad(N) || pad(g)) is a pure
// function of the group and is computed lazily once per Group.
type Group struct {
	N *big.Int
	G *big.Int

	kOnce sync.Once
	k     *big.Int
}

// NewGroup builds a Group from a hex-encoded modulus and a generator.
func NewGroup(modulusHex string, generator int) (*Group, error) {
	n, ok := new(big.Int).SetString(modulusHex, 16)
	if !ok {
		return nil, fmt.Errorf("srp: invalid modulus hex")
	}
	if n.Cmp(bigOne) <= 0 {
		return nil, ErrInvalidModulus
	}
	return &Group{N: n, G: big.NewInt(int64(generator))}, nil
}

var (
	defaultGroupOnce sync.Once
	defaultGroup     *Group
)

// DefaultGroup returns the process-wide default group. The modulus constant
// is compiled in, so a parse failure is a programming error and panics.
func DefaultGroup() *Group {
	defaultGroupOnce.Do(func() {
		g, err := NewGroup(DefaultModulusHex, DefaultGenerator)
		if err != nil {
			panic(err)
		}
		defaultGroup = g
	})
	return defaultGroup
}

// PadLength is the byte length all protocol values are padded to before
// hashing: the byte length of N.
func (g *Group) PadLength() int {
	return (g.N.BitLen() + 7) / 8
}

// Multiplier returns the SRP-6a multiplier k = H(pad(N) || pad(g)),
// memoized on first use and immutable thereafter.
func (g *Group) Multiplier() *big.Int {
	g.kOnce.Do(func() {
		h := sha256.New()
		h.Write(pad(g.N, g.PadLength()))
		h.Write(pad(g.G, g.PadLength()))
		g.k = new(big.Int).SetBytes(h.Sum(nil))
	})
	return g.k
}

// ModulusHex returns the upper-case hex encoding of N for the wire.
func (g *Group) ModulusHex() string {
	return strings.ToUpper(g.N.Text(16))
}

// Generator returns g as an int for the wire.
func (g *Group) Generator() int {
	return int(g.G.Int64())
}

// Matches reports whether the wire-form group parameters denote this group.
// A mismatch between participants is a configuration error, not a runtime
// fault.
func (g *Group) Matches(modulusHex string, generator int) bool {
	return strings.EqualFold(modulusHex, g.ModulusHex()) && generator == g.Generator()
}
