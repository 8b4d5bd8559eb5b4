// Package services implements the client side of the protocol: key
// derivation, verifier computation, the login exchange with mutual proof
// verification, vault sealing and the pairing roles.
package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/dbelyaev/srpvault/internal/client/api"
	"github.com/dbelyaev/srpvault/internal/common"
	"github.com/dbelyaev/srpvault/internal/cryptox"
	"github.com/dbelyaev/srpvault/internal/srp"
)

// computeScramble is a seam for testing the zero-scramble abort path.
var computeScramble = srp.ComputeScramble

// Session is the client's view of a completed login.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	HasVault     bool
}

// DeviceInfo identifies this device to the server. All fields optional.
type DeviceInfo struct {
	ID       string
	Name     string
	Platform string
}

// Service drives the protocol against a server endpoint.
type Service struct {
	api *api.Client
}

// NewService builds a Service on top of the given API client.
func NewService(c *api.Client) *Service {
	return &Service{api: c}
}

// Register creates an account: it fetches KDF parameters and group from the
// server, derives the verifier locally and uploads it, optionally together
// with an initial vault sealed under the same password. The password never
// leaves this function unhashed.
func (s *Service) Register(ctx context.Context, userID string, password []byte, vaultPlaintext []byte) error {
	start, err := s.api.RegisterStart(ctx, userID)
	if err != nil {
		return err
	}
	if start.Algorithm != srp.Algorithm {
		return fmt.Errorf("%w: server proposes unknown algorithm %q", common.ErrorConfiguration, start.Algorithm)
	}

	g, err := srp.NewGroup(start.ModulusHex, start.Generator)
	if err != nil {
		return fmt.Errorf("%w: server group unusable", common.ErrorConfiguration)
	}

	params, err := srp.ParseKdfParams(start.KdfParametersJSON)
	if err != nil {
		return fmt.Errorf("%w: server kdf parameters unusable", common.ErrorConfiguration)
	}
	if err := params.ValidateForRegistration(); err != nil {
		return err
	}

	x, err := derivePrivateKey(params, userID, password)
	if err != nil {
		return err
	}
	verifier := srp.ComputeVerifier(g, x)

	req := &api.RegisterFinishRequest{
		UserID:            userID,
		VerifierBase64:    base64.StdEncoding.EncodeToString(srp.ToBigEndian(verifier)),
		KdfParametersJSON: start.KdfParametersJSON,
	}

	if vaultPlaintext != nil {
		blob, err := cryptox.SealVault(password, vaultPlaintext)
		if err != nil {
			return err
		}
		req.VaultDataBase64 = blob.CipherText
		req.VaultKdfMetadataJSON = blob.KdfMetadataJSON
		req.VaultCipherSuite = blob.CipherSuite
	}

	return s.api.RegisterFinish(ctx, req)
}

// Login runs the full exchange. It refuses a zero scramble, uses exactly the
// group and KDF parameters the server stored at registration, and verifies
// the server proof before trusting the returned tokens.
func (s *Service) Login(ctx context.Context, userID string, password []byte, device DeviceInfo) (*Session, error) {
	g := srp.DefaultGroup()
	eph, err := srp.GenerateClientEphemeral(g)
	if err != nil {
		return nil, err
	}

	start, err := s.api.LoginStart(ctx, &api.LoginStartRequest{
		UserID:                      userID,
		ClientPublicEphemeralBase64: base64.StdEncoding.EncodeToString(srp.ToBigEndian(eph.Public)),
	})
	if err != nil {
		return nil, err
	}
	if start.Algorithm != srp.Algorithm {
		return nil, fmt.Errorf("%w: server proposes unknown algorithm %q", common.ErrorConfiguration, start.Algorithm)
	}

	// A travels in the start request, so the ephemeral is necessarily
	// minted in the default group before the server reveals the
	// credential's. A credential stored under any other group can never
	// complete with that A; bail out instead of failing the proof.
	if !g.Matches(start.ModulusHex, start.Generator) {
		return nil, fmt.Errorf("%w: server group differs from the one the exchange started in", common.ErrorConfiguration)
	}

	rawServerPublic, err := base64.StdEncoding.DecodeString(start.ServerPublicEphemeralBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed server ephemeral", common.ErrorProtocol)
	}
	serverPublic := srp.FromBigEndian(rawServerPublic)
	if !srp.ValidPublicEphemeral(g, serverPublic) {
		return nil, fmt.Errorf("%w: invalid server ephemeral", common.ErrorProtocol)
	}

	scramble := computeScramble(g, eph.Public, serverPublic)
	if scramble.Sign() == 0 {
		return nil, fmt.Errorf("%w: zero scramble", common.ErrorProtocol)
	}

	params, err := srp.ParseKdfParams(start.KdfParametersJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: server kdf parameters unusable", common.ErrorConfiguration)
	}
	x, err := derivePrivateKey(params, userID, password)
	if err != nil {
		return nil, err
	}

	session := srp.ComputeClientSession(g, serverPublic, x, eph.Secret, scramble)
	sessionKey := srp.ComputeSessionKey(g, session)
	defer common.WipeByteArray(sessionKey)

	clientProof := srp.ComputeClientProof(g, eph.Public, serverPublic, sessionKey)

	finish, err := s.api.LoginFinish(ctx, &api.LoginFinishRequest{
		UserID:            userID,
		SessionID:         start.SessionID,
		ClientProofBase64: base64.StdEncoding.EncodeToString(clientProof),
		DeviceID:          device.ID,
		DeviceName:        device.Name,
		DevicePlatform:    device.Platform,
	})
	if err != nil {
		return nil, err
	}

	// Mutual authentication: a server that cannot produce M2 never knew
	// the verifier, so its tokens are worthless.
	wantProof := srp.ComputeServerProof(g, eph.Public, clientProof, sessionKey)
	gotProof, err := base64.StdEncoding.DecodeString(finish.ServerProofBase64)
	if err != nil || !srp.CheckProof(wantProof, gotProof) {
		return nil, fmt.Errorf("%w: server proof mismatch", common.ErrorProtocol)
	}

	return &Session{
		AccessToken:  finish.AccessToken,
		RefreshToken: finish.RefreshToken,
		ExpiresIn:    finish.ExpiresIn,
		HasVault:     finish.HasVault,
	}, nil
}

// Refresh rotates the token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	res, err := s.api.TokenRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresIn:    res.ExpiresIn,
	}, nil
}

// PairingOffer is what the source device shows the user after opening a
// pairing: the claim code travels out of band to the target device.
type PairingOffer struct {
	PairingID string
	ClaimCode string
	ExpiresAt string
}

// OfferVault opens a pairing and uploads the vault sealed under password.
// Run on the source device while logged in.
func (s *Service) OfferVault(ctx context.Context, accessToken string, password, vaultPlaintext []byte, device DeviceInfo) (*PairingOffer, error) {
	start, err := s.api.PairStart(ctx, accessToken, device.ID)
	if err != nil {
		return nil, err
	}

	blob, err := cryptox.SealVault(password, vaultPlaintext)
	if err != nil {
		return nil, err
	}

	err = s.api.PairTransfer(ctx, accessToken, &api.PairTransferRequest{
		PairingID:            start.PairingID,
		VaultDataBase64:      blob.CipherText,
		VaultKdfMetadataJSON: blob.KdfMetadataJSON,
		VaultCipherSuite:     blob.CipherSuite,
	})
	if err != nil {
		return nil, err
	}

	return &PairingOffer{
		PairingID: start.PairingID,
		ClaimCode: start.ClaimCode,
		ExpiresAt: start.ExpiresAt,
	}, nil
}

// ClaimedVault is the outcome of a successful redeem on the target device.
type ClaimedVault struct {
	UserID    string
	Plaintext []byte
	Session   Session
}

// ClaimVault redeems a pairing on the target device and opens the received
// vault with the account password.
func (s *Service) ClaimVault(ctx context.Context, pairingID, claimCode string, password []byte, device DeviceInfo) (*ClaimedVault, error) {
	res, err := s.api.PairRedeem(ctx, &api.PairRedeemRequest{
		PairingID:      pairingID,
		ClaimCode:      claimCode,
		DeviceID:       device.ID,
		DeviceName:     device.Name,
		DevicePlatform: device.Platform,
	})
	if err != nil {
		return nil, err
	}

	blob := &cryptox.VaultBlob{
		CipherText:      res.VaultDataBase64,
		CipherSuite:     res.VaultCipherSuite,
		KdfMetadataJSON: res.VaultKdfMetadataJSON,
	}
	plaintext, err := cryptox.OpenVault(blob, password)
	if err != nil {
		return nil, err
	}

	return &ClaimedVault{
		UserID:    res.UserID,
		Plaintext: plaintext,
		Session: Session{
			AccessToken:  res.AccessToken,
			RefreshToken: res.RefreshToken,
			ExpiresIn:    res.ExpiresIn,
		},
	}, nil
}

// ExportVault seals plaintext under the account password for storage or
// transfer outside this process.
func (s *Service) ExportVault(password, plaintext []byte) (*cryptox.VaultBlob, error) {
	return cryptox.SealVault(password, plaintext)
}

// ImportVault opens a sealed blob with the account password.
func (s *Service) ImportVault(blob *cryptox.VaultBlob, password []byte) ([]byte, error) {
	return cryptox.OpenVault(blob, password)
}

// Upgrade re-derives the credential under fresh KDF parameters and replaces
// it server-side. Requires a valid access token for userID.
func (s *Service) Upgrade(ctx context.Context, accessToken, userID string, password []byte) error {
	params := srp.NewArgon2Params()
	paramsJSON, err := params.JSON()
	if err != nil {
		return err
	}

	x, err := derivePrivateKey(params, userID, password)
	if err != nil {
		return err
	}
	verifier := srp.ComputeVerifier(srp.DefaultGroup(), x)

	return s.api.Upgrade(ctx, accessToken, &api.UpgradeRequest{
		UserID:            userID,
		VerifierBase64:    base64.StdEncoding.EncodeToString(srp.ToBigEndian(verifier)),
		KdfParametersJSON: paramsJSON,
	})
}

func derivePrivateKey(params srp.KdfParams, userID string, password []byte) (*big.Int, error) {
	kdf, err := srp.ResolveKDF(params)
	if err != nil {
		return nil, err
	}
	return kdf.PrivateKey(userID, password)
}
