package auth

import (
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dbelyaev/srpvault/internal/common"
)

// LoginSession holds the server half of an in-flight login exchange between
// the Start and Finish phases. Sessions are single-use: Finish consumes the
// session whether the proof verifies or not.
type LoginSession struct {
	ID           string
	UserID       string
	Verifier     *big.Int
	ClientPublic *big.Int
	ServerSecret *big.Int
	ServerPublic *big.Int
	// Decoy marks a session minted for an unknown user. Finish on a decoy
	// session fails like an ordinary proof mismatch.
	Decoy     bool
	ExpiresAt time.Time
}

type loginEntry struct {
	session   *LoginSession
	expiresAt time.Time
}

// LoginSessionStore is an in-process TTL cache of login sessions. Entries
// disappear on consume or expiry; a restart aborts in-flight logins, which
// clients recover from by restarting the exchange.
type LoginSessionStore struct {
	mu      sync.Mutex
	entries map[string]loginEntry
	ttl     time.Duration
	done    chan struct{}
	once    sync.Once
}

// NewLoginSessionStore creates a store with the given session TTL and starts
// a janitor goroutine sweeping expired entries. Close stops the janitor.
func NewLoginSessionStore(ttl time.Duration) *LoginSessionStore {
	s := &LoginSessionStore{
		entries: make(map[string]loginEntry),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Put stores the session under a fresh id and returns that id.
func (s *LoginSessionStore) Put(session *LoginSession) string {
	id := uuid.NewString()
	session.ID = id
	session.ExpiresAt = time.Now().Add(s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = loginEntry{session: session, expiresAt: session.ExpiresAt}
	return id
}

// Consume removes and returns the session in one step. Of two concurrent
// Finish calls for the same session exactly one obtains it; the other gets
// common.ErrorNotFound, as do lookups of expired or unknown ids.
func (s *LoginSessionStore) Consume(id string) (*LoginSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(s.entries, id)

	if time.Now().After(e.expiresAt) {
		return nil, common.ErrorNotFound
	}
	return e.session, nil
}

// Len reports the number of live entries. Used by tests and debug logging.
func (s *LoginSessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the janitor goroutine.
func (s *LoginSessionStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *LoginSessionStore) janitor() {
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
			for id, e := range s.entries {
				if now.After(e.expiresAt) {
					delete(s.entries, id)
				}
			}
			s.mu.Unlock()
		}
	}
}
