package ws

import (
	"sync"
	"time"

	"github.com/lberthe/scribe/internal/domain"
)

// FrameLimiter caps inbound audio frames per participant over a
// sliding window, guarding the CPU-bound decode path.
type FrameLimiter struct {
	mu       sync.Mutex
	history  map[domain.ParticipantID][]time.Time
	limit    int
	interval time.Duration
}

// NewFrameLimiter returns nil when limit <= 0 (limiting disabled).
func NewFrameLimiter(limit int, interval time.Duration) *FrameLimiter {
	if limit <= 0 {
		return nil
	}
	return &FrameLimiter{
		history:  make(map[domain.ParticipantID][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *FrameLimiter) Allow(pid domain.ParticipantID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	// Keep only attempts inside the window.
	attempts := rl.history[pid]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[pid] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[pid] = fresh
	return true
}

// Forget drops a participant's history when their connection closes.
func (rl *FrameLimiter) Forget(pid domain.ParticipantID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, pid)
}
