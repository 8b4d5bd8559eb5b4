// Package credentials declares the repository contract for stored
// authentication credentials.
package credentials

import (
	"context"

	"github.com/dbelyaev/srpvault/internal/server/models"
)

// Repository defines operations over stored PAKE credentials.
type Repository interface {
	// Create inserts a credential. A second insert for the same user id
	// returns common.ErrorAlreadyExists; the stored verifier is never
	// overwritten by a replayed registration.
	Create(ctx context.Context, cred *models.PakeCredential) error

	// GetByUserID returns the credential for userID or common.ErrorNotFound.
	GetByUserID(ctx context.Context, userID string) (*models.PakeCredential, error)

	// Update replaces the verifier and KDF parameters of an existing
	// credential. Used by the upgrade flow after a password-verified login.
	Update(ctx context.Context, cred *models.PakeCredential) error
}
