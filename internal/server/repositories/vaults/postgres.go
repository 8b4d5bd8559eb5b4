package vaults

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dbelyaev/srpvault/internal/common"
	"github.com/dbelyaev/srpvault/internal/dbx"
	"github.com/dbelyaev/srpvault/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, vault *models.Vault) error {
	query := `
		INSERT INTO vaults (user_id, cipher_text, cipher_suite, kdf_metadata_json, tenant_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET cipher_text = EXCLUDED.cipher_text,
		    cipher_suite = EXCLUDED.cipher_suite,
		    kdf_metadata_json = EXCLUDED.kdf_metadata_json,
		    version = vaults.version + 1,
		    updated_at = now()
	`
	_, err := r.db.ExecContext(ctx, query,
		vault.UserID, vault.CipherText, vault.CipherSuite, vault.KdfMetadataJSON, vault.TenantID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.Vault, error) {
	query := `
		SELECT user_id, cipher_text, cipher_suite, kdf_metadata_json, version,
		       tenant_id, created_at, updated_at
		FROM vaults
		WHERE user_id = $1
	`
	vault := &models.Vault{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&vault.UserID, &vault.CipherText, &vault.CipherSuite,
		&vault.KdfMetadataJSON, &vault.Version, &vault.TenantID,
		&vault.CreatedAt, &vault.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return vault, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, userID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM vaults WHERE user_id = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}
