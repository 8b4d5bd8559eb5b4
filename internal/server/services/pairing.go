package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/dbelyaev/srpvault/internal/common"
	"github.com/dbelyaev/srpvault/internal/cryptox"
	"github.com/dbelyaev/srpvault/internal/logging"
	"github.com/dbelyaev/srpvault/internal/server/auth"
)

// PairingStartResult is what the source device shows the user: the pairing
// id plus the claim code to read out on the target device.
type PairingStartResult struct {
	PairingID string
	ClaimCode string
	ExpiresAt time.Time
}

// PairingRedeemRequest claims an open pairing from the target device. The
// target is unauthenticated until the redeem succeeds.
type PairingRedeemRequest struct {
	PairingID      string
	ClaimCode      string
	DeviceID       string
	DeviceName     string
	DevicePlatform string
	ClientIP       string
}

// PairingRedeemResult hands the target device the sealed vault and a token
// pair for the vault owner's account.
type PairingRedeemResult struct {
	UserID string
	Vault  *cryptox.VaultBlob
	Tokens TokenPair
}

// PairingService runs the device pairing ceremony: a source device opens a
// short-lived offer, attaches its sealed vault, and a target device redeems
// it once with the claim code. The vault never touches durable storage
// during the ceremony.
type PairingService struct {
	db       *sql.DB
	pairings *auth.PairingStore
	limiter  *auth.AttemptLimiter
	logger   logging.Logger
	tokens   *PakeService
}

// NewPairingService constructs a PairingService. Token minting is delegated
// to the PakeService so both flows issue identical pairs.
func NewPairingService(db *sql.DB, pairings *auth.PairingStore,
	limiter *auth.AttemptLimiter, tokens *PakeService, logger logging.Logger) *PairingService {
	return &PairingService{
		db:       db,
		pairings: pairings,
		limiter:  limiter,
		logger:   logger.With("module", "pairing"),
		tokens:   tokens,
	}
}

// Start opens a pairing for the authenticated user.
func (s *PairingService) Start(ctx context.Context, userID, sourceDeviceID string) (*PairingStartResult, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	session, err := s.pairings.Open(userID, sourceDeviceID)
	if err != nil {
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "pairing opened", "user", common.MaskIdentifier(userID))

	return &PairingStartResult{
		PairingID: session.ID,
		ClaimCode: session.ClaimCode,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Transfer attaches the sealed vault blob to an open pairing owned by the
// authenticated user.
func (s *PairingService) Transfer(ctx context.Context, userID, pairingID string, blob *cryptox.VaultBlob) error {
	if blob == nil || blob.CipherText == "" {
		return common.ErrorValidation
	}

	if err := s.pairings.AttachVault(pairingID, userID, blob); err != nil {
		return err
	}

	s.logger.Info(ctx, "vault attached to pairing", "user", common.MaskIdentifier(userID))
	return nil
}

// Redeem claims the pairing. Exactly one concurrent caller wins; everyone
// else, along with wrong claim codes and unknown pairing ids, gets the same
// generic not-found answer.
func (s *PairingService) Redeem(ctx context.Context, req *PairingRedeemRequest) (*PairingRedeemResult, error) {
	if err := s.limiter.Check(req.PairingID, req.ClientIP); err != nil {
		return nil, err
	}

	session, err := s.pairings.Redeem(req.PairingID, req.ClaimCode)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.limiter.Fail(req.PairingID, req.ClientIP)
		}
		return nil, err
	}

	s.limiter.Reset(req.PairingID, req.ClientIP)

	pair, err := s.tokens.generateTokenPair(ctx, session.UserID, req.DeviceID, req.DeviceName, req.DevicePlatform, s.db)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "pairing redeemed", "user", common.MaskIdentifier(session.UserID))

	return &PairingRedeemResult{
		UserID: session.UserID,
		Vault:  session.Vault,
		Tokens: *pair,
	}, nil
}
