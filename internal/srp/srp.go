package srp

import (
	"crypto/sha256"
	"crypto/subtle"
	"math/big"
)

// hashParts returns SHA-256 over the concatenation of the given byte slices.
func hashParts(parts ...[]byte) []byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// Ephemeral is a one-shot key pair for a single protocol run.
// The secret must be discarded once the run completes.
type Ephemeral struct {
	Secret *big.Int
	Public *big.Int
}

// ComputeVerifier computes v = g^x mod N from the private key x.
// The server stores v instead of anything password-derived.
func ComputeVerifier(g *Group, privateKey *big.Int) *big.Int {
	return ModPow(g.G, privateKey, g.N)
}

// GenerateClientEphemeral draws a random secret a and returns (a, A = g^a mod N).
func GenerateClientEphemeral(g *Group) (*Ephemeral, error) {
	secret, err := RandomScalar(g.N)
	if err != nil {
		return nil, err
	}
	return &Ephemeral{Secret: secret, Public: ModPow(g.G, secret, g.N)}, nil
}

// GenerateServerEphemeral draws a random secret b and returns
// (b, B = k*v + g^b mod N) for the stored verifier v.
func GenerateServerEphemeral(g *Group, verifier *big.Int) (*Ephemeral, error) {
	secret, err := RandomScalar(g.N)
	if err != nil {
		return nil, err
	}
	gb := ModPow(g.G, secret, g.N)
	pub := new(big.Int).Mul(g.Multiplier(), verifier)
	pub.Add(pub, gb)
	pub.Mod(pub, g.N)
	if pub.Sign() < 0 {
		pub.Add(pub, g.N)
	}
	return &Ephemeral{Secret: secret, Public: pub}, nil
}

// ComputeScramble computes u = H(pad(A) || pad(B)). A zero result collapses
// the protocol; callers must treat it as a violation and restart.
func ComputeScramble(g *Group, clientPublic, serverPublic *big.Int) *big.Int {
	l := g.PadLength()
	digest := hashParts(pad(clientPublic, l), pad(serverPublic, l))
	return new(big.Int).SetBytes(digest)
}

// ComputeClientSession computes the client-side session secret
// S = (B - k*g^x)^(a + u*x) mod N.
func ComputeClientSession(g *Group, serverPublic, privateKey, clientSecret, scramble *big.Int) *big.Int {
	gx := ModPow(g.G, privateKey, g.N)

	base := new(big.Int).Mul(g.Multiplier(), gx)
	base.Sub(serverPublic, base)
	base.Mod(base, g.N)
	if base.Sign() < 0 {
		base.Add(base, g.N)
	}

	exponent := new(big.Int).Mul(scramble, privateKey)
	exponent.Add(exponent, clientSecret)
	exponent.Mod(exponent, g.N)
	if exponent.Sign() < 0 {
		exponent.Add(exponent, g.N)
	}

	return ModPow(base, exponent, g.N)
}

// ComputeServerSession computes the server-side session secret
// S = (A * v^u)^b mod N. For honest participants it equals the client's S.
func ComputeServerSession(g *Group, clientPublic, verifier, serverSecret, scramble *big.Int) *big.Int {
	vu := ModPow(verifier, scramble, g.N)
	base := new(big.Int).Mul(clientPublic, vu)
	base.Mod(base, g.N)
	if base.Sign() < 0 {
		base.Add(base, g.N)
	}
	return ModPow(base, serverSecret, g.N)
}

// ComputeSessionKey derives the shared session key K = H(pad(S)).
func ComputeSessionKey(g *Group, session *big.Int) []byte {
	return hashParts(pad(session, g.PadLength()))
}

// ComputeClientProof computes M1 = H(pad(A) || pad(B) || K).
func ComputeClientProof(g *Group, clientPublic, serverPublic *big.Int, sessionKey []byte) []byte {
	l := g.PadLength()
	return hashParts(pad(clientPublic, l), pad(serverPublic, l), sessionKey)
}

// ComputeServerProof computes M2 = H(pad(A) || M1 || K), the mutual
// authentication step the client must verify even after the server accepted.
func ComputeServerProof(g *Group, clientPublic *big.Int, clientProof, sessionKey []byte) []byte {
	return hashParts(pad(clientPublic, g.PadLength()), clientProof, sessionKey)
}

// ValidPublicEphemeral reports whether a received public value is usable:
// positive and not congruent to zero mod N.
func ValidPublicEphemeral(g *Group, v *big.Int) bool {
	if v == nil || v.Sign() <= 0 {
		return false
	}
	return new(big.Int).Mod(v, g.N).Sign() != 0
}

// ValidVerifier reports whether a registered verifier lies in (0, N).
func ValidVerifier(g *Group, v *big.Int) bool {
	return v != nil && v.Sign() > 0 && v.Cmp(g.N) < 0
}

// CheckProof compares two proofs in constant time. It never short-circuits
// on the first differing byte.
func CheckProof(expected, provided []byte) bool {
	if len(expected) != len(provided) {
		return false
	}
	return subtle.ConstantTimeCompare(expected, provided) == 1
}
