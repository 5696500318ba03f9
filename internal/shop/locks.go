package shop

import "sync"

// chatLocks serializes event handling per chat identifier, so duplicate
// deliveries for one chat cannot race the session read-modify-write
// while unrelated chats proceed in parallel. Entries are reference
// counted and garbage collected once idle.
type chatLocks struct {
	mu      sync.Mutex
	entries map[int64]*chatLock
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

func newChatLocks() *chatLocks {
	return &chatLocks{entries: make(map[int64]*chatLock)}
}

// acquire returns the lock entry for the chat and increments its
// reference count. The caller must Lock entry.mu and pair this call
// with release after unlocking.
func (l *chatLocks) acquire(chatID int64) *chatLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[chatID]
	if !ok {
		entry = &chatLock{}
		l.entries[chatID] = entry
	}
	entry.refs++
	return entry
}

func (l *chatLocks) release(chatID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[chatID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(l.entries, chatID)
	}
}
