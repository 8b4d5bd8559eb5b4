package auth

import (
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbelyaev/srpvault/internal/common"
)

func TestLoginSessionStore_PutConsume(t *testing.T) {
	s := NewLoginSessionStore(time.Minute)
	defer s.Close()

	id := s.Put(&LoginSession{
		UserID:       "alice@example.com",
		Verifier:     big.NewInt(42),
		ServerSecret: big.NewInt(7),
	})
	require.NotEmpty(t, id)
	assert.Equal(t, 1, s.Len())

	got, err := s.Consume(id)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.UserID)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, 0, s.Len())
}

func TestLoginSessionStore_ConsumeIsSingleUse(t *testing.T) {
	s := NewLoginSessionStore(time.Minute)
	defer s.Close()

	id := s.Put(&LoginSession{UserID: "u1"})

	_, err := s.Consume(id)
	require.NoError(t, err)

	_, err = s.Consume(id)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestLoginSessionStore_UnknownID(t *testing.T) {
	s := NewLoginSessionStore(time.Minute)
	defer s.Close()

	_, err := s.Consume("nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestLoginSessionStore_Expiry(t *testing.T) {
	s := NewLoginSessionStore(10 * time.Millisecond)
	defer s.Close()

	id := s.Put(&LoginSession{UserID: "u1"})
	time.Sleep(30 * time.Millisecond)

	_, err := s.Consume(id)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestLoginSessionStore_ConcurrentConsume_OneWinner(t *testing.T) {
	s := NewLoginSessionStore(time.Minute)
	defer s.Close()

	id := s.Put(&LoginSession{UserID: "u1"})

	const n = 16
	var wins, losses int
	var mu sync.Mutex
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.Consume(id)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if errors.Is(err, common.ErrorNotFound) {
				losses++
			}
		}()
	}

	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, losses)
}
