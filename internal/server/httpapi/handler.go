package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dbelyaev/srpvault/internal/common"
	"github.com/dbelyaev/srpvault/internal/cryptox"
	"github.com/dbelyaev/srpvault/internal/server/services"
)

func (s *HTTPServer) handleRegisterStart(w http.ResponseWriter, r *http.Request) {
	var req registerStartRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.pake.RegisterStart(r.Context(), req.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, registerStartResponse{
		KdfParametersJSON: res.KdfParametersJSON,
		Algorithm:         res.Algorithm,
		ModulusHex:        res.ModulusHex,
		Generator:         res.Generator,
	})
}

func (s *HTTPServer) handleRegisterFinish(w http.ResponseWriter, r *http.Request) {
	var req registerFinishRequest
	if !s.decode(w, r, &req) {
		return
	}

	var vault *cryptox.VaultBlob
	if req.VaultDataBase64 != "" {
		vault = &cryptox.VaultBlob{
			CipherText:      req.VaultDataBase64,
			CipherSuite:     req.VaultCipherSuite,
			KdfMetadataJSON: req.VaultKdfMetadataJSON,
		}
	}

	err := s.pake.RegisterFinish(r.Context(), &services.RegisterFinishRequest{
		UserID:            req.UserID,
		VerifierBase64:    req.VerifierBase64,
		KdfParametersJSON: req.KdfParametersJSON,
		Vault:             vault,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *HTTPServer) handleLoginStart(w http.ResponseWriter, r *http.Request) {
	var req loginStartRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.pake.LoginStart(r.Context(), &services.LoginStartRequest{
		UserID:                      req.UserID,
		ClientPublicEphemeralBase64: req.ClientPublicEphemeralBase64,
		ClientIP:                    clientIP(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, loginStartResponse{
		SessionID:                   res.SessionID,
		SaltBase64:                  res.SaltBase64,
		ServerPublicEphemeralBase64: res.ServerPublicEphemeralBase64,
		KdfParametersJSON:           res.KdfParametersJSON,
		Algorithm:                   res.Algorithm,
		ModulusHex:                  res.ModulusHex,
		Generator:                   res.Generator,
	})
}

func (s *HTTPServer) handleLoginFinish(w http.ResponseWriter, r *http.Request) {
	var req loginFinishRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.pake.LoginFinish(r.Context(), &services.LoginFinishRequest{
		UserID:            req.UserID,
		SessionID:         req.SessionID,
		ClientProofBase64: req.ClientProofBase64,
		DeviceID:          req.DeviceID,
		DeviceName:        req.DeviceName,
		DevicePlatform:    req.DevicePlatform,
		ClientIP:          clientIP(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, loginFinishResponse{
		Success:           true,
		HasVault:          res.HasVault,
		AccessToken:       res.Tokens.AccessToken,
		RefreshToken:      res.Tokens.RefreshToken,
		ExpiresIn:         res.Tokens.ExpiresIn,
		ServerProofBase64: res.ServerProofBase64,
	})
}

func (s *HTTPServer) handleTokenRefresh(w http.ResponseWriter, r *http.Request) {
	var req tokenRefreshRequest
	if !s.decode(w, r, &req) {
		return
	}

	pair, err := s.pake.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, tokenRefreshResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

func (s *HTTPServer) handlePairStart(w http.ResponseWriter, r *http.Request) {
	var req pairStartRequest
	if !s.decode(w, r, &req) {
		return
	}

	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		s.writeError(w, r, common.ErrorUnauthorized)
		return
	}

	res, err := s.pairing.Start(r.Context(), userID, req.SourceDeviceID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, pairStartResponse{
		PairingID: res.PairingID,
		ClaimCode: res.ClaimCode,
		ExpiresAt: res.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *HTTPServer) handlePairTransfer(w http.ResponseWriter, r *http.Request) {
	var req pairTransferRequest
	if !s.decode(w, r, &req) {
		return
	}

	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		s.writeError(w, r, common.ErrorUnauthorized)
		return
	}

	blob := &cryptox.VaultBlob{
		CipherText:      req.VaultDataBase64,
		CipherSuite:     req.VaultCipherSuite,
		KdfMetadataJSON: req.VaultKdfMetadataJSON,
	}
	if err := s.pairing.Transfer(r.Context(), userID, req.PairingID, blob); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *HTTPServer) handlePairRedeem(w http.ResponseWriter, r *http.Request) {
	var req pairRedeemRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.pairing.Redeem(r.Context(), &services.PairingRedeemRequest{
		PairingID:      req.PairingID,
		ClaimCode:      req.ClaimCode,
		DeviceID:       req.DeviceID,
		DeviceName:     req.DeviceName,
		DevicePlatform: req.DevicePlatform,
		ClientIP:       clientIP(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, pairRedeemResponse{
		UserID:               res.UserID,
		VaultDataBase64:      res.Vault.CipherText,
		VaultKdfMetadataJSON: res.Vault.KdfMetadataJSON,
		VaultCipherSuite:     res.Vault.CipherSuite,
		AccessToken:          res.Tokens.AccessToken,
		RefreshToken:         res.Tokens.RefreshToken,
		ExpiresIn:            res.Tokens.ExpiresIn,
	})
}

func (s *HTTPServer) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	var req upgradeRequest
	if !s.decode(w, r, &req) {
		return
	}

	userID, ok := UserIDFromContext(r.Context())
	if !ok || userID != req.UserID {
		s.writeError(w, r, common.ErrorUnauthorized)
		return
	}

	err := s.pake.Upgrade(r.Context(), &services.UpgradeRequest{
		UserID:            req.UserID,
		VerifierBase64:    req.VerifierBase64,
		KdfParametersJSON: req.KdfParametersJSON,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// --- plumbing ---

func (s *HTTPServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return false
	}
	return true
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the service error taxonomy onto HTTP statuses. Unknown
// errors become a generic 500 so internals never leak to clients.
func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var msg string

	switch {
	case errors.Is(err, common.ErrorValidation):
		status, msg = http.StatusBadRequest, "invalid request"
	case errors.Is(err, common.ErrorProtocol):
		status, msg = http.StatusBadRequest, "protocol violation"
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		status, msg = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrorNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrorAlreadyExists):
		status, msg = http.StatusConflict, "already exists"
	case errors.Is(err, common.ErrorRateLimited):
		status, msg = http.StatusTooManyRequests, "too many attempts"
	default:
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		status, msg = http.StatusInternalServerError, "internal error"
	}

	s.writeJSON(w, status, errorResponse{Error: msg})
}

// clientIP prefers the direct peer address. The service only uses it to key
// the attempt limiter, so a missing port or a proxy hop degrades gracefully.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
