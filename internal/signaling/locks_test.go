package signaling

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoomLocks_SerializesSameRoom(t *testing.T) {
	l := NewRoomLocks()
	unlock := l.Lock("r1")

	acquired := make(chan struct{})
	go func() {
		u := l.Lock("r1")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		require.Fail(t, "second Lock acquired while first was held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		require.Fail(t, "second Lock never acquired")
	}
}

func TestRoomLocks_IndependentRooms(t *testing.T) {
	l := NewRoomLocks()
	unlock := l.Lock("r1")
	defer unlock()

	done := make(chan struct{})
	go func() {
		l.Lock("r2")()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "lock on r2 blocked by r1")
	}
}

func TestRoomLocks_ReleasesEntries(t *testing.T) {
	l := NewRoomLocks()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Lock("r1")()
		}()
	}
	wg.Wait()
	require.Equal(t, 0, l.size())
}
