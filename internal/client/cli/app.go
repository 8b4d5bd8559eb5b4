// Package cli implements the interactive client: account registration and
// login, token refresh, credential upgrade and vault pairing between
// devices. Tokens are cached in a state file readable only by the owner.
package cli

import (
	"bufio"
	"context"
	"os"
	"path/filepath"

	"github.com/dbelyaev/srpvault/internal/client/api"
	"github.com/dbelyaev/srpvault/internal/client/config"
	"github.com/dbelyaev/srpvault/internal/client/services"
)

type App struct {
	config    *config.Config
	service   *services.Service
	reader    *bufio.Reader
	state     *State
	statePath string
	vaultPath string
}

func NewApp(c *config.Config) (*App, error) {
	statePath := c.StateFile
	if statePath == "" {
		dir, err := DefaultStateDir()
		if err != nil {
			return nil, err
		}
		statePath = filepath.Join(dir, "state.json")
	}

	state, err := LoadState(statePath)
	if err != nil {
		return nil, err
	}

	svc := services.NewService(api.NewClient(c.ServerEndpointAddr, c.RequestTimeout))

	return &App{
		config:    c,
		service:   svc,
		reader:    bufio.NewReader(os.Stdin),
		state:     state,
		statePath: statePath,
		vaultPath: filepath.Join(filepath.Dir(statePath), "vault.json"),
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.state.AccessToken != ""
}

func (a *App) status() string {
	if a.isLoggedIn() {
		return a.state.UserID
	}
	return "not logged in"
}

func (a *App) Run(ctx context.Context) {
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.status, scanner)
}

// deviceInfo describes this device to the server using the hostname; the
// rest is static.
func (a *App) deviceInfo() services.DeviceInfo {
	host, _ := os.Hostname()
	return services.DeviceInfo{
		ID:       host,
		Name:     host,
		Platform: "cli",
	}
}
