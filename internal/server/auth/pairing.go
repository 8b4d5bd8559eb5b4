package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dbelyaev/srpvault/internal/common"
	"github.com/dbelyaev/srpvault/internal/cryptox"
)

// PairingState tracks the lifecycle of a pairing ceremony.
type PairingState string

const (
	PairingOpen     PairingState = "open"
	PairingRedeemed PairingState = "redeemed"
)

// Claim codes avoid visually ambiguous characters (0/O, 1/I/L) so they
// survive being read aloud or typed from a second screen.
const claimCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// ClaimCodeLength is the number of characters in a pairing claim code.
const ClaimCodeLength = 6

// PairingSession is a short-lived offer to hand a sealed vault to a new
// device. The source device opens it and attaches the blob; the target
// device redeems it with the claim code. The session owns the blob; nothing
// is written to durable storage during the ceremony.
type PairingSession struct {
	ID             string
	UserID         string
	ClaimCode      string
	State          PairingState
	SourceDeviceID string
	Vault          *cryptox.VaultBlob
	ExpiresAt      time.Time
}

// PairingStore is an in-process TTL cache of pairing sessions.
type PairingStore struct {
	mu      sync.Mutex
	entries map[string]*PairingSession
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

// NewPairingStore creates a store with the given pairing TTL and starts the
// sweep goroutine.
func NewPairingStore(ttl time.Duration) *PairingStore {
	s := &PairingStore{
		entries: make(map[string]*PairingSession),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

// NewClaimCode draws a claim code from the unambiguous alphabet using
// crypto/rand. Rejection sampling keeps the distribution uniform.
func NewClaimCode() (string, error) {
	max := big.NewInt(int64(len(claimCodeAlphabet)))
	code := make([]byte, ClaimCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = claimCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// Open creates a new pairing session for userID and returns it with a fresh
// id and claim code.
func (s *PairingStore) Open(userID, sourceDeviceID string) (*PairingSession, error) {
	code, err := NewClaimCode()
	if err != nil {
		return nil, err
	}

	session := &PairingSession{
		ID:             uuid.NewString(),
		UserID:         userID,
		ClaimCode:      code,
		State:          PairingOpen,
		SourceDeviceID: sourceDeviceID,
		ExpiresAt:      time.Now().Add(s.ttl),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[session.ID] = session
	return session, nil
}

// AttachVault stores the sealed blob on an open pairing owned by userID.
// Wrong owner and unknown pairing are indistinguishable to the caller.
func (s *PairingStore) AttachVault(pairingID, userID string, blob *cryptox.VaultBlob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.entries[pairingID]
	if !ok || time.Now().After(session.ExpiresAt) || session.UserID != userID {
		return common.ErrorNotFound
	}
	if session.State != PairingOpen {
		return common.ErrorProtocol
	}

	session.Vault = blob
	return nil
}

// Redeem atomically transitions an open pairing to redeemed and returns it.
// The claim code is compared in constant time; a wrong code, an unknown id
// and an expired pairing all yield common.ErrorNotFound. Of two concurrent
// redeems exactly one wins.
func (s *PairingStore) Redeem(pairingID, claimCode string) (*PairingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.entries[pairingID]
	if !ok || time.Now().After(session.ExpiresAt) {
		return nil, common.ErrorNotFound
	}

	codeOK := len(claimCode) == len(session.ClaimCode) &&
		subtle.ConstantTimeCompare([]byte(claimCode), []byte(session.ClaimCode)) == 1
	if !codeOK {
		return nil, common.ErrorNotFound
	}

	if session.State != PairingOpen {
		return nil, common.ErrorNotFound
	}
	if session.Vault == nil {
		return nil, common.ErrorProtocol
	}

	session.State = PairingRedeemed
	delete(s.entries, pairingID)
	return session, nil
}

// Len reports the number of live entries.
func (s *PairingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the janitor goroutine.
func (s *PairingStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *PairingStore) janitor() {
	interval := s.ttl
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for id, session := range s.entries {
				if now.After(session.ExpiresAt) {
					delete(s.entries, id)
				}
			}
			s.mu.Unlock()
		}
	}
}
