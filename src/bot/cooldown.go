package bot

import (
	"sync"
	"time"
)

// Cooldown throttles campaign actions per user so command spam cannot
// hammer the shared ledger. One successful Try consumes the window.
type Cooldown struct {
	window time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{
		window: window,
		last:   make(map[string]time.Time),
	}
}

// Try consumes the user's cooldown when it is available. When it is
// not, it reports false along with the remaining wait.
func (c *Cooldown) Try(userID string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if last, ok := c.last[userID]; ok {
		if wait := c.window - now.Sub(last); wait > 0 {
			return wait, false
		}
	}
	c.last[userID] = now
	return 0, true
}
