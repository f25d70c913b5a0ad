package signaling

import "sync"

// RoomLocks hands out one mutex per room ID. Relays hold a room's lock while
// they mutate the registry and enqueue the resulting broadcast, which keeps
// the order peers observe equal to the order mutations happened.
//
// Lock order is RoomLocks before any room.Registry lock.
type RoomLocks struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	sync.Mutex
	refs int
}

func NewRoomLocks() *RoomLocks {
	return &RoomLocks{locks: make(map[string]*roomLock)}
}

// Lock blocks until the caller holds roomID's lock and returns the function
// that releases it. Entries are discarded once nobody holds or waits on them.
func (l *RoomLocks) Lock(roomID string) (unlock func()) {
	l.mu.Lock()
	rl, ok := l.locks[roomID]
	if !ok {
		rl = &roomLock{}
		l.locks[roomID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.Lock()
	return func() {
		rl.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, roomID)
		}
		l.mu.Unlock()
	}
}

func (l *RoomLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
