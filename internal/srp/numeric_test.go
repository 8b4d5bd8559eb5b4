package srp

import (
	"bytes"
	"math/big"
	"testing"
)

func TestModPow(t *testing.T) {
	tests := []struct {
		name                 string
		base, exp, mod, want int64
	}{
		{"small", 4, 13, 497, 445},
		{"zero exponent", 7, 0, 13, 1},
		{"base zero", 0, 5, 13, 0},
		{"identity", 9, 1, 1000, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ModPow(big.NewInt(tt.base), big.NewInt(tt.exp), big.NewInt(tt.mod))
			if got.Int64() != tt.want {
				t.Fatalf("ModPow(%d,%d,%d) = %v, want %d", tt.base, tt.exp, tt.mod, got, tt.want)
			}
		})
	}
}

func TestRandomScalar_Range(t *testing.T) {
	mod := big.NewInt(257)
	for i := 0; i < 200; i++ {
		v, err := RandomScalar(mod)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.Sign() <= 0 || v.Cmp(mod) >= 0 {
			t.Fatalf("scalar %v out of [1, %v)", v, mod)
		}
	}
}

func TestRandomScalar_InvalidModulus(t *testing.T) {
	for _, m := range []*big.Int{nil, big.NewInt(0), big.NewInt(1), big.NewInt(-5)} {
		if _, err := RandomScalar(m); err == nil {
			t.Fatalf("expected error for modulus %v", m)
		}
	}
}

func TestBigEndianRoundTrip(t *testing.T) {
	values := []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(255),
		big.NewInt(256),
		new(big.Int).Lsh(big.NewInt(1), 130),
	}
	for _, v := range values {
		enc := ToBigEndian(v)
		if len(enc) == 0 {
			t.Fatalf("empty encoding for %v", v)
		}
		back := FromBigEndian(enc)
		if back.Cmp(v) != 0 {
			t.Fatalf("round trip of %v gave %v", v, back)
		}
	}
}

func TestPad(t *testing.T) {
	v := big.NewInt(0x0102)

	padded := pad(v, 4)
	if !bytes.Equal(padded, []byte{0, 0, 1, 2}) {
		t.Fatalf("pad short: got %v", padded)
	}

	exact := pad(v, 2)
	if !bytes.Equal(exact, []byte{1, 2}) {
		t.Fatalf("pad exact: got %v", exact)
	}

	truncated := pad(big.NewInt(0x010203), 2)
	if !bytes.Equal(truncated, []byte{2, 3}) {
		t.Fatalf("pad truncating keeps least significant bytes: got %v", truncated)
	}
}
