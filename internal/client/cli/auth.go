package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dbelyaev/srpvault/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate
// testing. They point to the interactive input helpers.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getMultiline = GetMultiline

// Register prompts for an email and password and creates the account. The
// user may seed an initial vault; its content is sealed locally before
// upload. The password is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	userID, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	content, err := getMultiline(a.reader, "Initial vault content (empty to skip)", os.Stdout)
	if err != nil {
		return err
	}
	var vault []byte
	if content != "" {
		vault = []byte(content)
	}

	if err := a.service.Register(ctx, userID, password, vault); err != nil {
		return err
	}

	fmt.Println("Account created.")
	return nil
}

// Login authenticates and caches the token pair in the state file.
func (a *App) Login(ctx context.Context) error {
	userID, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	session, err := a.service.Login(ctx, userID, password, a.deviceInfo())
	if err != nil {
		return err
	}

	a.state.UserID = userID
	a.state.AccessToken = session.AccessToken
	a.state.RefreshToken = session.RefreshToken
	a.state.ObtainedAt = nowFn()
	if err := a.state.Save(a.statePath); err != nil {
		return err
	}

	if session.HasVault {
		fmt.Println("Logged in. A vault is stored server-side; use 'pair' on another device to fetch it.")
	} else {
		fmt.Println("Logged in.")
	}
	return nil
}

// Refresh rotates the cached token pair.
func (a *App) Refresh(ctx context.Context) error {
	if a.state.RefreshToken == "" {
		return fmt.Errorf("not logged in")
	}

	session, err := a.service.Refresh(ctx, a.state.RefreshToken)
	if err != nil {
		return err
	}

	a.state.AccessToken = session.AccessToken
	a.state.RefreshToken = session.RefreshToken
	a.state.ObtainedAt = nowFn()
	if err := a.state.Save(a.statePath); err != nil {
		return err
	}

	fmt.Println("Tokens refreshed.")
	return nil
}

// Upgrade re-derives the credential under current KDF defaults. Requires a
// logged-in session and the account password.
func (a *App) Upgrade(ctx context.Context) error {
	if !a.isLoggedIn() {
		return fmt.Errorf("log in first")
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.service.Upgrade(ctx, a.state.AccessToken, a.state.UserID, password); err != nil {
		return err
	}

	fmt.Println("Credential upgraded. Existing sessions stay valid; the next login uses the new parameters.")
	return nil
}

// Logout drops the cached tokens.
func (a *App) Logout(ctx context.Context) error {
	return a.state.Clear(a.statePath)
}
