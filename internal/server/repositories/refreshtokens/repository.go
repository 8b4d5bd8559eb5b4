// Package refreshtokens declares the server-side repository contract for
// managing refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dbelyaev/srpvault/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking
// refresh tokens.
type Repository interface {
	// Create stores a new refresh token with an expiry of now+validity.
	// Device metadata is recorded as given.
	Create(ctx context.Context, token *models.RefreshToken, validity time.Duration) error

	// Find looks up a refresh token by its opaque token string.
	// Returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a refresh token. Deleting a non-existent token is not
	// an error.
	Delete(ctx context.Context, token string) error

	// DeleteExpired removes all tokens past their expiry.
	DeleteExpired(ctx context.Context) (int64, error)
}
