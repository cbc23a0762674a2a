package bot

import "sync"

// chatLocks serializes update handling per chat. Telegram delivers a
// rapid double-tap as two updates; without a lock the second would
// race the first's state save. TryAcquire fails fast so the bot can
// answer "hold on" instead of silently last-write-wins.
type chatLocks struct {
	mu   sync.Mutex
	busy map[int64]bool
}

func newChatLocks() *chatLocks {
	return &chatLocks{busy: make(map[int64]bool)}
}

// TryAcquire locks the chat if it is free. Returns false when another
// update for the chat is still being processed.
func (l *chatLocks) TryAcquire(chatID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy[chatID] {
		return false
	}
	l.busy[chatID] = true
	return true
}

// Release unlocks the chat.
func (l *chatLocks) Release(chatID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.busy, chatID)
}
