package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/dbelyaev/srpvault/internal/common"
	"github.com/dbelyaev/srpvault/internal/dbx"
	"github.com/dbelyaev/srpvault/internal/server/models"
	"github.com/dbelyaev/srpvault/internal/server/repositories/credentials"
	"github.com/dbelyaev/srpvault/internal/server/repositories/refreshtokens"
	"github.com/dbelyaev/srpvault/internal/server/repositories/vaults"
)

type fakeCredentialsRepo struct {
	mu    sync.Mutex
	creds map[string]*models.PakeCredential
}

func (r *fakeCredentialsRepo) Create(ctx context.Context, cred *models.PakeCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.creds[cred.UserID]; ok {
		return common.ErrorAlreadyExists
	}
	c := *cred
	r.creds[cred.UserID] = &c
	return nil
}

func (r *fakeCredentialsRepo) GetByUserID(ctx context.Context, userID string) (*models.PakeCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.creds[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := *cred
	return &c, nil
}

func (r *fakeCredentialsRepo) Update(ctx context.Context, cred *models.PakeCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.creds[cred.UserID]; !ok {
		return common.ErrorNotFound
	}
	c := *cred
	r.creds[cred.UserID] = &c
	return nil
}

type fakeVaultsRepo struct {
	mu     sync.Mutex
	vaults map[string]*models.Vault
}

func (r *fakeVaultsRepo) Upsert(ctx context.Context, vault *models.Vault) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := *vault
	if prev, ok := r.vaults[vault.UserID]; ok {
		v.Version = prev.Version + 1
	} else {
		v.Version = 1
	}
	r.vaults[vault.UserID] = &v
	return nil
}

func (r *fakeVaultsRepo) GetByUserID(ctx context.Context, userID string) (*models.Vault, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	vault, ok := r.vaults[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	v := *vault
	return &v, nil
}

func (r *fakeVaultsRepo) Exists(ctx context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.vaults[userID]
	return ok, nil
}

type fakeRefreshTokensRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshToken
}

func (r *fakeRefreshTokensRepo) Create(ctx context.Context, token *models.RefreshToken, validity time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := *token
	t.Expires = time.Now().Add(validity)
	r.tokens[token.Token] = &t
	return nil
}

func (r *fakeRefreshTokensRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	t := *rt
	return &t, nil
}

func (r *fakeRefreshTokensRepo) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}

func (r *fakeRefreshTokensRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	now := time.Now()
	for k, t := range r.tokens {
		if t.Expires.Before(now) {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

// fakeRepoManager hands out shared in-memory repositories regardless of the
// DBTX it is given, so transactional and plain paths see the same state.
type fakeRepoManager struct {
	creds         *fakeCredentialsRepo
	vaults        *fakeVaultsRepo
	refreshTokens *fakeRefreshTokensRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		creds:         &fakeCredentialsRepo{creds: map[string]*models.PakeCredential{}},
		vaults:        &fakeVaultsRepo{vaults: map[string]*models.Vault{}},
		refreshTokens: &fakeRefreshTokensRepo{tokens: map[string]*models.RefreshToken{}},
	}
}

func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }

func (m *fakeRepoManager) Credentials(db dbx.DBTX) credentials.Repository { return m.creds }

func (m *fakeRepoManager) Vaults(db dbx.DBTX) vaults.Repository { return m.vaults }

func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return m.refreshTokens
}
