package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbelyaev/srpvault/internal/common"
)

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(PairStartResponse{PairingID: "p-1", ClaimCode: "ABCDEF"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	res, err := c.PairStart(context.Background(), "token-123", "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-123", gotAuth)
	assert.Equal(t, "/v1/auth/pake/pair/start", gotPath)
	assert.Equal(t, "p-1", res.PairingID)
}

func TestClientNoBearerOnPublicEndpoints(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(RegisterStartResponse{Algorithm: "x"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).RegisterStart(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClientStatusErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, common.ErrorValidation},
		{http.StatusUnauthorized, common.ErrorUnauthorized},
		{http.StatusNotFound, common.ErrorNotFound},
		{http.StatusConflict, common.ErrorAlreadyExists},
		{http.StatusTooManyRequests, common.ErrorRateLimited},
		{http.StatusInternalServerError, common.ErrorInternal},
		{http.StatusBadGateway, common.ErrorInternal},
	}

	for _, tc := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			json.NewEncoder(w).Encode(map[string]string{"error": "nope"})
		}))
		_, err := NewClient(srv.URL, time.Second).RegisterStart(context.Background(), "alice@example.com")
		srv.Close()

		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
		assert.Contains(t, err.Error(), "nope")
	}
}

func TestClientErrorWithoutBodyUsesStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).RegisterStart(context.Background(), "alice@example.com")
	require.ErrorIs(t, err, common.ErrorInternal)
	assert.Contains(t, err.Error(), "503")
}
