package tracking

import "sync"

// StateCache is the in-process home for published derived state: the
// server-side analogue of the client's per-card component state. Toggles
// write their optimistic projections here and the recent-logs endpoint
// serves from it between authoritative reloads.
//
// Keys must already be scoped to the owning user (the API layer keys by
// "userID:habitID"), so entries for different users never collide.
type StateCache struct {
	mu      sync.RWMutex
	windows map[string]Window
	stats   map[string]ThirtyDayStat
	streaks map[string]StreakState
}

// NewStateCache creates an empty cache.
func NewStateCache() *StateCache {
	return &StateCache{
		windows: make(map[string]Window),
		stats:   make(map[string]ThirtyDayStat),
		streaks: make(map[string]StreakState),
	}
}

// Window returns the published window for a habit key.
func (c *StateCache) Window(key string) (Window, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.windows[key]
	return w, ok
}

// SetWindow publishes a window for a habit key.
func (c *StateCache) SetWindow(key string, w Window) {
	c.mu.Lock()
	c.windows[key] = w
	c.mu.Unlock()
}

// Stat returns the published 30-day stat for a habit key.
func (c *StateCache) Stat(key string) (ThirtyDayStat, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.stats[key]
	return s, ok
}

// SetStat publishes a 30-day stat for a habit key.
func (c *StateCache) SetStat(key string, s ThirtyDayStat) {
	c.mu.Lock()
	c.stats[key] = s
	c.mu.Unlock()
}

// Streak returns the published streak for a habit key.
func (c *StateCache) Streak(key string) (StreakState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.streaks[key]
	return s, ok
}

// SetStreak publishes a streak for a habit key.
func (c *StateCache) SetStreak(key string, s StreakState) {
	c.mu.Lock()
	c.streaks[key] = s
	c.mu.Unlock()
}

// Drop removes all published state for a habit key, e.g. when the habit
// is deleted.
func (c *StateCache) Drop(key string) {
	c.mu.Lock()
	delete(c.windows, key)
	delete(c.stats, key)
	delete(c.streaks, key)
	c.mu.Unlock()
}

// Accessors adapts the cache to the coordinator's injected accessor
// contract for a single habit key. onLog may be nil.
func (c *StateCache) Accessors(key string, onLog func(habitID string, ev LogEvent)) Accessors {
	return Accessors{
		GetWindow: func(string) (Window, bool) { return c.Window(key) },
		SetWindow: func(_ string, w Window) { c.SetWindow(key, w) },
		GetStat:   func(string) (ThirtyDayStat, bool) { return c.Stat(key) },
		SetStat:   func(_ string, s ThirtyDayStat) { c.SetStat(key, s) },
		SetStreak: func(_ string, s StreakState) { c.SetStreak(key, s) },
		OnLog:     onLog,
	}
}
