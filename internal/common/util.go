package common

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// GenerateRandByteArray returns size cryptographically random bytes.
// It panics if the system random source fails, which is not recoverable.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// MakeRandHexString generates a random hexadecimal string of the given size.
// The size parameter specifies the number of random bytes to generate before
// encoding them as a hexadecimal string, so the final string length is twice
// the size.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// This is useful for removing sensitive data such as passwords or cryptographic
// keys from memory after use.
//
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}

// MaskIdentifier obscures a user identifier for logging. It keeps the first
// two characters and the domain part of an email-like identifier so that log
// lines remain correlatable without recording the identifier itself.
func MaskIdentifier(id string) string {
	if id == "" {
		return "unknown"
	}
	at := strings.IndexByte(id, '@')
	local := id
	domain := ""
	if at >= 0 {
		local = id[:at]
		domain = id[at:]
	}
	if len(local) <= 2 {
		return local + "***" + domain
	}
	return local[:2] + "***" + domain
}
