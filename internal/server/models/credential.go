// Package models defines the persistent entities of the server.
package models

import "time"

// PakeCredential is the server-stored authentication material for one user.
// It never contains the password or the private key, only the SRP verifier,
// the KDF parameters needed to re-derive the private key client-side, and
// the group the verifier was computed in.
type PakeCredential struct {
	UserID            string
	Verifier          []byte
	SaltBase64        string
	Algorithm         string
	ModulusHex        string
	Generator         int
	KdfParametersJSON string
	TenantID          string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
