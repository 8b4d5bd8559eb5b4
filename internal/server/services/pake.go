// Package services contains server-side business logic. This file implements
// PakeService: registration, the two-phase login exchange, token refresh and
// credential upgrade.
package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dbelyaev/srpvault/internal/common"
	"github.com/dbelyaev/srpvault/internal/cryptox"
	"github.com/dbelyaev/srpvault/internal/dbx"
	"github.com/dbelyaev/srpvault/internal/logging"
	"github.com/dbelyaev/srpvault/internal/server/auth"
	"github.com/dbelyaev/srpvault/internal/server/config"
	"github.com/dbelyaev/srpvault/internal/server/models"
	"github.com/dbelyaev/srpvault/internal/server/repositories/repomanager"
	"github.com/dbelyaev/srpvault/internal/srp"
)

// scrambleRetries bounds how often the server re-rolls its ephemeral when
// the scramble parameter collapses to zero. Hitting the bound is effectively
// impossible with an honest client.
const scrambleRetries = 8

// withTx is a seam for testing transactional flows without a live database.
var withTx = dbx.WithTx

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// RegisterStartResult tells a new client how to derive its private key and
// which group to compute the verifier in.
type RegisterStartResult struct {
	KdfParametersJSON string
	Algorithm         string
	ModulusHex        string
	Generator         int
}

// RegisterFinishRequest carries the client-computed verifier plus an
// optional sealed vault bootstrap.
type RegisterFinishRequest struct {
	UserID            string
	VerifierBase64    string
	KdfParametersJSON string
	Vault             *cryptox.VaultBlob
}

// LoginStartRequest opens a login exchange.
type LoginStartRequest struct {
	UserID                      string
	ClientPublicEphemeralBase64 string
	ClientIP                    string
}

// LoginStartResult carries the server challenge.
type LoginStartResult struct {
	SessionID                   string
	SaltBase64                  string
	ServerPublicEphemeralBase64 string
	KdfParametersJSON           string
	Algorithm                   string
	ModulusHex                  string
	Generator                   int
}

// LoginFinishRequest closes a login exchange with the client proof.
type LoginFinishRequest struct {
	UserID            string
	SessionID         string
	ClientProofBase64 string
	DeviceID          string
	DeviceName        string
	DevicePlatform    string
	ClientIP          string
}

// LoginFinishResult returns tokens and the server proof on success.
type LoginFinishResult struct {
	HasVault          bool
	Tokens            TokenPair
	ServerProofBase64 string
}

// UpgradeRequest rotates the stored credential of an authenticated user to a
// freshly derived verifier, typically after a KDF parameter bump.
type UpgradeRequest struct {
	UserID            string
	VerifierBase64    string
	KdfParametersJSON string
}

// PakeService implements the server side of the password-authenticated key
// exchange. It never sees passwords or private keys; only verifiers, public
// ephemerals and proofs cross its boundary.
type PakeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	sessions    *auth.LoginSessionStore
	limiter     *auth.AttemptLimiter

	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration

	// decoyKey feeds the HMAC that fabricates stable fake salts for unknown
	// users so repeated login-start probes cannot reveal account existence.
	decoyKey []byte
}

// NewPakeService constructs a PakeService from repositories, session state
// and server config.
func NewPakeService(db *sql.DB, m repomanager.RepositoryManager, sessions *auth.LoginSessionStore,
	limiter *auth.AttemptLimiter, logger logging.Logger, cfg *config.Config) *PakeService {
	return &PakeService{
		db:                           db,
		repomanager:                  m,
		logger:                       logger.With("module", "pake"),
		sessions:                     sessions,
		limiter:                      limiter,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		decoyKey:                     common.GenerateRandByteArray(32),
	}
}

// RegisterStart hands a new client fresh KDF parameters and the group to
// compute its verifier in. No state is created; registration only takes
// effect at RegisterFinish.
func (s *PakeService) RegisterStart(ctx context.Context, userID string) (*RegisterStartResult, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	params := srp.NewArgon2Params()
	paramsJSON, err := params.JSON()
	if err != nil {
		return nil, common.ErrorInternal
	}

	g := srp.DefaultGroup()
	return &RegisterStartResult{
		KdfParametersJSON: paramsJSON,
		Algorithm:         srp.Algorithm,
		ModulusHex:        g.ModulusHex(),
		Generator:         g.Generator(),
	}, nil
}

// RegisterFinish stores the client-computed verifier and, when provided, the
// initial sealed vault. A duplicate user id fails with ErrorAlreadyExists
// and never overwrites the stored credential.
func (s *PakeService) RegisterFinish(ctx context.Context, req *RegisterFinishRequest) error {
	if err := validateUserID(req.UserID); err != nil {
		return err
	}

	params, err := srp.ParseKdfParams(req.KdfParametersJSON)
	if err != nil {
		return fmt.Errorf("%w: bad kdf parameters", common.ErrorValidation)
	}
	if err := params.ValidateForRegistration(); err != nil {
		return err
	}

	g := srp.DefaultGroup()
	verifier, err := decodeBase64Int(req.VerifierBase64)
	if err != nil || !srp.ValidVerifier(g, verifier) {
		return fmt.Errorf("%w: invalid verifier", common.ErrorProtocol)
	}

	cred := &models.PakeCredential{
		UserID:            req.UserID,
		Verifier:          srp.ToBigEndian(verifier),
		SaltBase64:        params.SaltBase64,
		Algorithm:         srp.Algorithm,
		ModulusHex:        g.ModulusHex(),
		Generator:         g.Generator(),
		KdfParametersJSON: req.KdfParametersJSON,
		TenantID:          uuid.NewString(),
	}

	err = withTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Credentials(tx).Create(ctx, cred); err != nil {
			return err
		}
		if req.Vault != nil {
			vault := &models.Vault{
				UserID:          req.UserID,
				CipherText:      req.Vault.CipherText,
				CipherSuite:     req.Vault.CipherSuite,
				KdfMetadataJSON: req.Vault.KdfMetadataJSON,
				TenantID:        cred.TenantID,
			}
			if err := s.repomanager.Vaults(tx).Upsert(ctx, vault); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return common.ErrorAlreadyExists
		}
		s.logger.Error(ctx, "register finish failed", "user", common.MaskIdentifier(req.UserID), "error", err)
		return common.ErrorInternal
	}

	s.logger.Info(ctx, "user registered", "user", common.MaskIdentifier(req.UserID), "vault", req.Vault != nil)
	return nil
}

// LoginStart validates the client ephemeral, mints a server ephemeral and
// opens a single-use session. Unknown users receive a decoy challenge that
// is indistinguishable from a real one, including across repeated probes.
func (s *PakeService) LoginStart(ctx context.Context, req *LoginStartRequest) (*LoginStartResult, error) {
	if err := validateUserID(req.UserID); err != nil {
		return nil, err
	}
	if err := s.limiter.Check(req.UserID, req.ClientIP); err != nil {
		return nil, err
	}

	clientPublic, err := decodeBase64Int(req.ClientPublicEphemeralBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed client ephemeral", common.ErrorProtocol)
	}

	cred, err := s.repomanager.Credentials(s.db).GetByUserID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return s.decoyLoginStart(ctx, req.UserID, clientPublic)
		}
		s.logger.Error(ctx, "credential lookup failed", "user", common.MaskIdentifier(req.UserID), "error", err)
		return nil, common.ErrorInternal
	}

	g, err := srp.NewGroup(cred.ModulusHex, cred.Generator)
	if err != nil {
		s.logger.Error(ctx, "stored group unusable", "user", common.MaskIdentifier(req.UserID), "error", err)
		return nil, common.ErrorConfiguration
	}
	if !srp.ValidPublicEphemeral(g, clientPublic) {
		return nil, fmt.Errorf("%w: invalid client ephemeral", common.ErrorProtocol)
	}

	verifier := srp.FromBigEndian(cred.Verifier)

	ephemeral, err := s.serverEphemeralNonzeroScramble(g, verifier, clientPublic)
	if err != nil {
		return nil, err
	}

	sessionID := s.sessions.Put(&auth.LoginSession{
		UserID:       req.UserID,
		Verifier:     verifier,
		ClientPublic: clientPublic,
		ServerSecret: ephemeral.Secret,
		ServerPublic: ephemeral.Public,
	})

	s.logger.Debug(ctx, "login exchange opened", "user", common.MaskIdentifier(req.UserID))

	return &LoginStartResult{
		SessionID:                   sessionID,
		SaltBase64:                  cred.SaltBase64,
		ServerPublicEphemeralBase64: encodeBase64Int(ephemeral.Public),
		KdfParametersJSON:           cred.KdfParametersJSON,
		Algorithm:                   cred.Algorithm,
		ModulusHex:                  cred.ModulusHex,
		Generator:                   cred.Generator,
	}, nil
}

// LoginFinish consumes the session, verifies the client proof and on
// success mints tokens and returns the server proof. The session is gone
// after this call whether or not the proof verified.
func (s *PakeService) LoginFinish(ctx context.Context, req *LoginFinishRequest) (*LoginFinishResult, error) {
	if err := validateUserID(req.UserID); err != nil {
		return nil, err
	}
	if err := s.limiter.Check(req.UserID, req.ClientIP); err != nil {
		return nil, err
	}

	session, err := s.sessions.Consume(req.SessionID)
	if err != nil || session.UserID != req.UserID {
		s.limiter.Fail(req.UserID, req.ClientIP)
		return nil, common.ErrorUnauthorized
	}

	clientProof, err := base64.StdEncoding.DecodeString(req.ClientProofBase64)
	if err != nil {
		s.limiter.Fail(req.UserID, req.ClientIP)
		return nil, common.ErrorUnauthorized
	}

	if session.Decoy {
		s.limiter.Fail(req.UserID, req.ClientIP)
		return nil, common.ErrorUnauthorized
	}

	cred, err := s.repomanager.Credentials(s.db).GetByUserID(ctx, req.UserID)
	if err != nil {
		s.limiter.Fail(req.UserID, req.ClientIP)
		return nil, common.ErrorUnauthorized
	}
	g, err := srp.NewGroup(cred.ModulusHex, cred.Generator)
	if err != nil {
		return nil, common.ErrorConfiguration
	}

	scramble := srp.ComputeScramble(g, session.ClientPublic, session.ServerPublic)
	sessionValue := srp.ComputeServerSession(g, session.ClientPublic, session.Verifier, session.ServerSecret, scramble)
	sessionKey := srp.ComputeSessionKey(g, sessionValue)
	defer common.WipeByteArray(sessionKey)

	expected := srp.ComputeClientProof(g, session.ClientPublic, session.ServerPublic, sessionKey)
	if !srp.CheckProof(expected, clientProof) {
		s.limiter.Fail(req.UserID, req.ClientIP)
		s.logger.Warn(ctx, "login proof mismatch", "user", common.MaskIdentifier(req.UserID))
		return nil, common.ErrorUnauthorized
	}

	s.limiter.Reset(req.UserID, req.ClientIP)

	hasVault, err := s.repomanager.Vaults(s.db).Exists(ctx, req.UserID)
	if err != nil {
		return nil, common.ErrorInternal
	}

	pair, err := s.generateTokenPair(ctx, req.UserID, req.DeviceID, req.DeviceName, req.DevicePlatform, s.db)
	if err != nil {
		return nil, err
	}

	serverProof := srp.ComputeServerProof(g, session.ClientPublic, clientProof, sessionKey)

	s.logger.Info(ctx, "login succeeded", "user", common.MaskIdentifier(req.UserID))

	return &LoginFinishResult{
		HasVault:          hasVault,
		Tokens:            *pair,
		ServerProofBase64: base64.StdEncoding.EncodeToString(serverProof),
	}, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *PakeService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, common.ErrorInternal
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := withTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.UserID, token.DeviceID, token.DeviceName, token.DevicePlatform, tx)
		return genErr
	}); err != nil {
		return nil, common.ErrorInternal
	}
	return pair, nil
}

// Upgrade replaces the stored verifier and KDF parameters of userID. The
// caller must already hold a valid access token for that user; the handler
// enforces that the authenticated subject matches.
func (s *PakeService) Upgrade(ctx context.Context, req *UpgradeRequest) error {
	if err := validateUserID(req.UserID); err != nil {
		return err
	}

	params, err := srp.ParseKdfParams(req.KdfParametersJSON)
	if err != nil {
		return fmt.Errorf("%w: bad kdf parameters", common.ErrorValidation)
	}
	if err := params.ValidateForRegistration(); err != nil {
		return err
	}

	g := srp.DefaultGroup()
	verifier, err := decodeBase64Int(req.VerifierBase64)
	if err != nil || !srp.ValidVerifier(g, verifier) {
		return fmt.Errorf("%w: invalid verifier", common.ErrorProtocol)
	}

	cred := &models.PakeCredential{
		UserID:            req.UserID,
		Verifier:          srp.ToBigEndian(verifier),
		SaltBase64:        params.SaltBase64,
		Algorithm:         srp.Algorithm,
		ModulusHex:        g.ModulusHex(),
		Generator:         g.Generator(),
		KdfParametersJSON: req.KdfParametersJSON,
	}

	if err := s.repomanager.Credentials(s.db).Update(ctx, cred); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}

	s.logger.Info(ctx, "credential upgraded", "user", common.MaskIdentifier(req.UserID))
	return nil
}

// --- helpers below ---

// decoyLoginStart fabricates a challenge for an unknown user. The salt and
// KDF parameters are a deterministic function of the user id, so probing the
// same id twice returns the same material, just like a real account.
func (s *PakeService) decoyLoginStart(ctx context.Context, userID string, clientPublic *big.Int) (*LoginStartResult, error) {
	g := srp.DefaultGroup()
	if !srp.ValidPublicEphemeral(g, clientPublic) {
		return nil, fmt.Errorf("%w: invalid client ephemeral", common.ErrorProtocol)
	}

	mac := hmac.New(sha256.New, s.decoyKey)
	mac.Write([]byte("salt:"))
	mac.Write([]byte(userID))
	fakeSalt := mac.Sum(nil)[:16]

	params := srp.NewArgon2Params()
	params.SaltBase64 = base64.StdEncoding.EncodeToString(fakeSalt)
	paramsJSON, err := params.JSON()
	if err != nil {
		return nil, common.ErrorInternal
	}

	ephemeral, err := srp.GenerateClientEphemeral(g)
	if err != nil {
		return nil, common.ErrorInternal
	}

	sessionID := s.sessions.Put(&auth.LoginSession{
		UserID:       userID,
		ClientPublic: clientPublic,
		ServerSecret: ephemeral.Secret,
		ServerPublic: ephemeral.Public,
		Decoy:        true,
	})

	s.logger.Debug(ctx, "login exchange opened", "user", common.MaskIdentifier(userID))

	return &LoginStartResult{
		SessionID:                   sessionID,
		SaltBase64:                  params.SaltBase64,
		ServerPublicEphemeralBase64: encodeBase64Int(ephemeral.Public),
		KdfParametersJSON:           paramsJSON,
		Algorithm:                   srp.Algorithm,
		ModulusHex:                  g.ModulusHex(),
		Generator:                   g.Generator(),
	}, nil
}

// serverEphemeralNonzeroScramble draws a server ephemeral whose scramble
// with the given client ephemeral is nonzero, re-rolling a bounded number of
// times.
func (s *PakeService) serverEphemeralNonzeroScramble(g *srp.Group, verifier, clientPublic *big.Int) (*srp.Ephemeral, error) {
	for i := 0; i < scrambleRetries; i++ {
		ephemeral, err := srp.GenerateServerEphemeral(g, verifier)
		if err != nil {
			return nil, common.ErrorInternal
		}
		if srp.ComputeScramble(g, clientPublic, ephemeral.Public).Sign() != 0 {
			return ephemeral, nil
		}
	}
	return nil, fmt.Errorf("%w: scramble stuck at zero", common.ErrorProtocol)
}

func (s *PakeService) generateTokenPair(ctx context.Context, userID, deviceID, deviceName, devicePlatform string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}

	token := &models.RefreshToken{
		Token:          refresh,
		UserID:         userID,
		DeviceID:       deviceID,
		DeviceName:     deviceName,
		DevicePlatform: devicePlatform,
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, token, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTokenValidityDuration.Seconds()),
	}, nil
}

func validateUserID(userID string) error {
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" || trimmed != userID {
		return fmt.Errorf("%w: empty or padded user id", common.ErrorValidation)
	}
	if len(userID) > 255 {
		return fmt.Errorf("%w: user id too long", common.ErrorValidation)
	}
	return nil
}

func decodeBase64Int(s string) (*big.Int, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, errors.New("empty value")
	}
	return srp.FromBigEndian(b), nil
}

func encodeBase64Int(v *big.Int) string {
	return base64.StdEncoding.EncodeToString(srp.ToBigEndian(v))
}
