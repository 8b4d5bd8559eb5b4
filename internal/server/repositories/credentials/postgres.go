package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dbelyaev/srpvault/internal/common"
	"github.com/dbelyaev/srpvault/internal/dbx"
	"github.com/dbelyaev/srpvault/internal/server/models"
)

const pgUniqueViolation = "23505"

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, cred *models.PakeCredential) error {
	query := `
		INSERT INTO pake_credentials
			(user_id, verifier, salt_b64, algorithm, modulus_hex, generator, kdf_parameters_json, tenant_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		cred.UserID, cred.Verifier, cred.SaltBase64, cred.Algorithm,
		cred.ModulusHex, cred.Generator, cred.KdfParametersJSON, cred.TenantID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.PakeCredential, error) {
	query := `
		SELECT user_id, verifier, salt_b64, algorithm, modulus_hex, generator,
		       kdf_parameters_json, tenant_id, created_at, updated_at
		FROM pake_credentials
		WHERE user_id = $1
	`
	cred := &models.PakeCredential{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&cred.UserID, &cred.Verifier, &cred.SaltBase64, &cred.Algorithm,
		&cred.ModulusHex, &cred.Generator, &cred.KdfParametersJSON,
		&cred.TenantID, &cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return cred, nil
}

func (r *PostgresRepository) Update(ctx context.Context, cred *models.PakeCredential) error {
	query := `
		UPDATE pake_credentials
		SET verifier = $2, salt_b64 = $3, algorithm = $4, modulus_hex = $5,
		    generator = $6, kdf_parameters_json = $7, updated_at = now()
		WHERE user_id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		cred.UserID, cred.Verifier, cred.SaltBase64, cred.Algorithm,
		cred.ModulusHex, cred.Generator, cred.KdfParametersJSON)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
