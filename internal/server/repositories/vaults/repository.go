// Package vaults declares the repository contract for persistent sealed
// vault blobs.
package vaults

import (
	"context"

	"github.com/dbelyaev/srpvault/internal/server/models"
)

// Repository defines operations over stored vault blobs. The server never
// inspects cipher_text; it stores and returns it opaquely.
type Repository interface {
	// Upsert inserts the vault or replaces an existing one, bumping version.
	Upsert(ctx context.Context, vault *models.Vault) error

	// GetByUserID returns the vault for userID or common.ErrorNotFound.
	GetByUserID(ctx context.Context, userID string) (*models.Vault, error)

	// Exists reports whether a vault row is stored for userID.
	Exists(ctx context.Context, userID string) (bool, error)
}
