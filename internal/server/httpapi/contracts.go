package httpapi

// Wire DTOs for the JSON API. Field names follow the public contract and
// never change independently of it.

type registerStartRequest struct {
	UserID string `json:"userId"`
}

type registerStartResponse struct {
	KdfParametersJSON string `json:"kdfParametersJson"`
	Algorithm         string `json:"algorithm"`
	ModulusHex        string `json:"modulusHex"`
	Generator         int    `json:"generator"`
}

type registerFinishRequest struct {
	UserID               string `json:"userId"`
	VerifierBase64       string `json:"verifierBase64"`
	KdfParametersJSON    string `json:"kdfParametersJson"`
	VaultDataBase64      string `json:"vaultDataBase64,omitempty"`
	VaultKdfMetadataJSON string `json:"vaultKdfMetadataJson,omitempty"`
	VaultCipherSuite     string `json:"vaultCipherSuite,omitempty"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// Device metadata may arrive at either phase; tokens are minted at finish,
// so that copy wins when both are present.
type loginStartRequest struct {
	UserID                      string `json:"userId"`
	ClientPublicEphemeralBase64 string `json:"clientPublicEphemeralBase64"`
	DeviceID                    string `json:"deviceId,omitempty"`
	DeviceName                  string `json:"deviceName,omitempty"`
	DevicePlatform              string `json:"devicePlatform,omitempty"`
}

type loginStartResponse struct {
	SessionID                   string `json:"sessionId"`
	SaltBase64                  string `json:"saltBase64"`
	ServerPublicEphemeralBase64 string `json:"serverPublicEphemeralBase64"`
	KdfParametersJSON           string `json:"kdfParametersJson"`
	Algorithm                   string `json:"algorithm"`
	ModulusHex                  string `json:"modulusHex"`
	Generator                   int    `json:"generator"`
}

type loginFinishRequest struct {
	UserID            string `json:"userId"`
	SessionID         string `json:"sessionId"`
	ClientProofBase64 string `json:"clientProofBase64"`
	DeviceID          string `json:"deviceId,omitempty"`
	DeviceName        string `json:"deviceName,omitempty"`
	DevicePlatform    string `json:"devicePlatform,omitempty"`
}

type loginFinishResponse struct {
	Success           bool   `json:"success"`
	HasVault          bool   `json:"hasVault"`
	AccessToken       string `json:"accessToken"`
	RefreshToken      string `json:"refreshToken"`
	ExpiresIn         int64  `json:"expiresIn"`
	ServerProofBase64 string `json:"serverProofBase64"`
}

type tokenRefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenRefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type pairStartRequest struct {
	SourceDeviceID string `json:"sourceDeviceId,omitempty"`
}

type pairStartResponse struct {
	PairingID string `json:"pairingId"`
	ClaimCode string `json:"claimCode"`
	ExpiresAt string `json:"expiresAt"`
}

type pairTransferRequest struct {
	PairingID            string `json:"pairingId"`
	VaultDataBase64      string `json:"vaultDataBase64"`
	VaultKdfMetadataJSON string `json:"vaultKdfMetadataJson,omitempty"`
	VaultCipherSuite     string `json:"vaultCipherSuite,omitempty"`
	TargetDeviceID       string `json:"targetDeviceId,omitempty"`
}

type pairRedeemRequest struct {
	PairingID      string `json:"pairingId"`
	ClaimCode      string `json:"claimCode"`
	DeviceID       string `json:"deviceId,omitempty"`
	DeviceName     string `json:"deviceName,omitempty"`
	DevicePlatform string `json:"devicePlatform,omitempty"`
}

type pairRedeemResponse struct {
	UserID               string `json:"userId"`
	VaultDataBase64      string `json:"vaultDataBase64"`
	VaultKdfMetadataJSON string `json:"vaultKdfMetadataJson"`
	VaultCipherSuite     string `json:"vaultCipherSuite"`
	AccessToken          string `json:"accessToken"`
	RefreshToken         string `json:"refreshToken"`
	ExpiresIn            int64  `json:"expiresIn"`
}

type upgradeRequest struct {
	UserID            string `json:"userId"`
	VerifierBase64    string `json:"verifierBase64"`
	KdfParametersJSON string `json:"kdfParametersJson"`
}

type errorResponse struct {
	Error string `json:"error"`
}
