package api

// Wire DTOs mirrored from the server contract. Exported so the service
// layer can assemble and inspect them.

// RegisterStartResponse tells the client how to derive its key material.
type RegisterStartResponse struct {
	KdfParametersJSON string `json:"kdfParametersJson"`
	Algorithm         string `json:"algorithm"`
	ModulusHex        string `json:"modulusHex"`
	Generator         int    `json:"generator"`
}

// RegisterFinishRequest uploads the verifier and an optional initial vault.
type RegisterFinishRequest struct {
	UserID               string `json:"userId"`
	VerifierBase64       string `json:"verifierBase64"`
	KdfParametersJSON    string `json:"kdfParametersJson"`
	VaultDataBase64      string `json:"vaultDataBase64,omitempty"`
	VaultKdfMetadataJSON string `json:"vaultKdfMetadataJson,omitempty"`
	VaultCipherSuite     string `json:"vaultCipherSuite,omitempty"`
}

// LoginStartRequest opens the exchange.
type LoginStartRequest struct {
	UserID                      string `json:"userId"`
	ClientPublicEphemeralBase64 string `json:"clientPublicEphemeralBase64"`
}

// LoginStartResponse carries the server challenge.
type LoginStartResponse struct {
	SessionID                   string `json:"sessionId"`
	SaltBase64                  string `json:"saltBase64"`
	ServerPublicEphemeralBase64 string `json:"serverPublicEphemeralBase64"`
	KdfParametersJSON           string `json:"kdfParametersJson"`
	Algorithm                   string `json:"algorithm"`
	ModulusHex                  string `json:"modulusHex"`
	Generator                   int    `json:"generator"`
}

// LoginFinishRequest submits the client proof.
type LoginFinishRequest struct {
	UserID            string `json:"userId"`
	SessionID         string `json:"sessionId"`
	ClientProofBase64 string `json:"clientProofBase64"`
	DeviceID          string `json:"deviceId,omitempty"`
	DeviceName        string `json:"deviceName,omitempty"`
	DevicePlatform    string `json:"devicePlatform,omitempty"`
}

// LoginFinishResponse returns tokens plus the server proof.
type LoginFinishResponse struct {
	Success           bool   `json:"success"`
	HasVault          bool   `json:"hasVault"`
	AccessToken       string `json:"accessToken"`
	RefreshToken      string `json:"refreshToken"`
	ExpiresIn         int64  `json:"expiresIn"`
	ServerProofBase64 string `json:"serverProofBase64"`
}

// TokenRefreshResponse returns a rotated token pair.
type TokenRefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// PairStartResponse describes a freshly opened pairing.
type PairStartResponse struct {
	PairingID string `json:"pairingId"`
	ClaimCode string `json:"claimCode"`
	ExpiresAt string `json:"expiresAt"`
}

// PairTransferRequest attaches the sealed vault to a pairing.
type PairTransferRequest struct {
	PairingID            string `json:"pairingId"`
	VaultDataBase64      string `json:"vaultDataBase64"`
	VaultKdfMetadataJSON string `json:"vaultKdfMetadataJson,omitempty"`
	VaultCipherSuite     string `json:"vaultCipherSuite,omitempty"`
	TargetDeviceID       string `json:"targetDeviceId,omitempty"`
}

// PairRedeemRequest claims a pairing from the target device.
type PairRedeemRequest struct {
	PairingID      string `json:"pairingId"`
	ClaimCode      string `json:"claimCode"`
	DeviceID       string `json:"deviceId,omitempty"`
	DeviceName     string `json:"deviceName,omitempty"`
	DevicePlatform string `json:"devicePlatform,omitempty"`
}

// PairRedeemResponse hands over the sealed vault and a token pair.
type PairRedeemResponse struct {
	UserID               string `json:"userId"`
	VaultDataBase64      string `json:"vaultDataBase64"`
	VaultKdfMetadataJSON string `json:"vaultKdfMetadataJson"`
	VaultCipherSuite     string `json:"vaultCipherSuite"`
	AccessToken          string `json:"accessToken"`
	RefreshToken         string `json:"refreshToken"`
	ExpiresIn            int64  `json:"expiresIn"`
}

// UpgradeRequest rotates the stored credential.
type UpgradeRequest struct {
	UserID            string `json:"userId"`
	VerifierBase64    string `json:"verifierBase64"`
	KdfParametersJSON string `json:"kdfParametersJson"`
}
