package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dbelyaev/srpvault/internal/common"
)

// Pair runs the source side of a vault transfer: it opens a pairing, seals
// the local vault under the account password and uploads it, then shows the
// claim code to read out to the target device.
func (a *App) Pair(ctx context.Context) error {
	if !a.isLoggedIn() {
		return fmt.Errorf("log in first")
	}

	vault, err := a.loadVault()
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	offer, err := a.service.OfferVault(ctx, a.state.AccessToken, password, vault, a.deviceInfo())
	if err != nil {
		return err
	}

	fmt.Printf("Pairing open until %s.\n", offer.ExpiresAt)
	fmt.Printf("On the other device run: redeem\n")
	fmt.Printf("  pairing id: %s\n", offer.PairingID)
	fmt.Printf("  claim code: %s\n", offer.ClaimCode)
	return nil
}

// Redeem runs the target side: it claims a pairing with the code from the
// source device, opens the received vault with the account password and
// stores both the vault and the fresh tokens locally.
func (a *App) Redeem(ctx context.Context) error {
	pairingID, err := getSimpleText(a.reader, "Enter pairing id", os.Stdout)
	if err != nil {
		return err
	}
	claimCode, err := getSimpleText(a.reader, "Enter claim code", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	claimed, err := a.service.ClaimVault(ctx, pairingID, claimCode, password, a.deviceInfo())
	if err != nil {
		return err
	}

	if err := a.saveVault(claimed.Plaintext); err != nil {
		return err
	}

	a.state.UserID = claimed.UserID
	a.state.AccessToken = claimed.Session.AccessToken
	a.state.RefreshToken = claimed.Session.RefreshToken
	a.state.ObtainedAt = nowFn()
	if err := a.state.Save(a.statePath); err != nil {
		return err
	}

	fmt.Printf("Vault received and stored at %s.\n", a.vaultPath)
	return nil
}

// loadVault reads the local vault file; if none exists yet the user is
// asked to type the content to share.
func (a *App) loadVault() ([]byte, error) {
	raw, err := os.ReadFile(a.vaultPath)
	if err == nil {
		return raw, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	content, err := getMultiline(a.reader, "No local vault found. Enter vault content", os.Stdout)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, fmt.Errorf("nothing to share")
	}
	return []byte(content), nil
}

func (a *App) saveVault(plaintext []byte) error {
	if err := os.MkdirAll(filepath.Dir(a.vaultPath), 0o700); err != nil {
		return err
	}
	return os.WriteFile(a.vaultPath, plaintext, 0o600)
}
