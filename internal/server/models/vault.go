package models

import "time"

// Vault is a user's persistent sealed vault, bootstrapped at registration
// and handed back on a first login from a new device. The server stores the
// ciphertext opaquely.
type Vault struct {
	UserID          string
	CipherText      string
	CipherSuite     string
	KdfMetadataJSON string
	Version         int
	TenantID        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
