package auth

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbelyaev/srpvault/internal/common"
	"github.com/dbelyaev/srpvault/internal/cryptox"
)

func testBlob() *cryptox.VaultBlob {
	return &cryptox.VaultBlob{
		CipherText:      "A2:dGVzdA==",
		CipherSuite:     cryptox.CipherSuiteAESGCM,
		KdfMetadataJSON: `{"cipher":"AES-256-GCM"}`,
	}
}

func TestNewClaimCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := NewClaimCode()
		require.NoError(t, err)
		assert.Len(t, code, ClaimCodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(claimCodeAlphabet, r), "unexpected rune %q", r)
		}
		seen[code] = true
	}
	// 50 draws from a 31^6 space colliding down to a handful would mean
	// the sampling is broken.
	assert.Greater(t, len(seen), 45)
}

func TestPairingStore_FullCeremony(t *testing.T) {
	s := NewPairingStore(time.Minute)
	defer s.Close()

	session, err := s.Open("alice@example.com", "laptop-1")
	require.NoError(t, err)
	require.Equal(t, PairingOpen, session.State)
	require.Len(t, session.ClaimCode, ClaimCodeLength)

	require.NoError(t, s.AttachVault(session.ID, "alice@example.com", testBlob()))

	got, err := s.Redeem(session.ID, session.ClaimCode)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.UserID)
	assert.Equal(t, PairingRedeemed, got.State)
	require.NotNil(t, got.Vault)
	assert.Equal(t, cryptox.CipherSuiteAESGCM, got.Vault.CipherSuite)
}

func TestPairingStore_WrongCodeLooksLikeUnknownPairing(t *testing.T) {
	s := NewPairingStore(time.Minute)
	defer s.Close()

	session, err := s.Open("u1", "")
	require.NoError(t, err)
	require.NoError(t, s.AttachVault(session.ID, "u1", testBlob()))

	_, errWrongCode := s.Redeem(session.ID, "AAAAAA")
	_, errUnknownID := s.Redeem("no-such-pairing", session.ClaimCode)

	assert.ErrorIs(t, errWrongCode, common.ErrorNotFound)
	assert.ErrorIs(t, errUnknownID, common.ErrorNotFound)
	assert.Equal(t, errWrongCode.Error(), errUnknownID.Error())
}

func TestPairingStore_AttachVault_WrongOwner(t *testing.T) {
	s := NewPairingStore(time.Minute)
	defer s.Close()

	session, err := s.Open("owner", "")
	require.NoError(t, err)

	err = s.AttachVault(session.ID, "intruder", testBlob())
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPairingStore_RedeemWithoutVault(t *testing.T) {
	s := NewPairingStore(time.Minute)
	defer s.Close()

	session, err := s.Open("u1", "")
	require.NoError(t, err)

	_, err = s.Redeem(session.ID, session.ClaimCode)
	assert.ErrorIs(t, err, common.ErrorProtocol)
}

func TestPairingStore_Expiry(t *testing.T) {
	s := NewPairingStore(10 * time.Millisecond)
	defer s.Close()

	session, err := s.Open("u1", "")
	require.NoError(t, err)
	require.NoError(t, s.AttachVault(session.ID, "u1", testBlob()))

	time.Sleep(30 * time.Millisecond)

	_, err = s.Redeem(session.ID, session.ClaimCode)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPairingStore_ConcurrentRedeem_OneWinner(t *testing.T) {
	s := NewPairingStore(time.Minute)
	defer s.Close()

	session, err := s.Open("u1", "")
	require.NoError(t, err)
	require.NoError(t, s.AttachVault(session.ID, "u1", testBlob()))

	const n = 16
	var wins int
	var mu sync.Mutex
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := s.Redeem(session.ID, session.ClaimCode); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}

	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
}
