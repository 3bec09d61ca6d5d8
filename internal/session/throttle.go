package session

import (
	"sync"
	"time"

	"github.com/npezzotti/roomrent/internal/types"
)

const (
	RoleLookupInterval   = 3 * time.Second
	defaultRoleCacheSize = 1024
)

type roleEntry struct {
	at   time.Time
	role types.Role
	// pending is closed when the lookup that opened the window completes.
	pending chan struct{}
}

type roleCache struct {
	mu      sync.Mutex
	entries map[string]roleEntry
	ttl     time.Duration
	max     int
	now     func() time.Time
}

func newRoleCache(ttl time.Duration, max int) *roleCache {
	return &roleCache{
		entries: make(map[string]roleEntry),
		ttl:     ttl,
		max:     max,
		now:     time.Now,
	}
}

// begin decides how the caller obtains the role for userId. If a lookup is
// already running, the returned channel is closed once its result can be read
// with get. If the last lookup is inside the window, its role is returned.
// Otherwise fetch is true and the caller must look the role up and call
// finish.
func (c *roleCache) begin(userId string) (role types.Role, pending <-chan struct{}, fetch bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.entries[userId]; ok {
		if e.pending != nil {
			return types.RoleNone, e.pending, false
		}
		if now.Sub(e.at) < c.ttl {
			return e.role, nil, false
		}
	}

	if _, ok := c.entries[userId]; !ok && len(c.entries) >= c.max {
		c.evict(now)
	}

	e := c.entries[userId]
	e.at = now
	e.pending = make(chan struct{})
	c.entries[userId] = e

	return types.RoleNone, nil, true
}

func (c *roleCache) finish(userId string, role types.Role) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[userId]
	if !ok {
		e.at = c.now()
	}
	e.role = role
	if e.pending != nil {
		close(e.pending)
		e.pending = nil
	}
	c.entries[userId] = e
}

func (c *roleCache) get(userId string) types.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[userId].role
}

// evict drops expired entries, or the oldest one if none have expired.
// Entries with a lookup in flight are kept so their waiters can read the
// result.
func (c *roleCache) evict(now time.Time) {
	var (
		oldestId string
		oldestAt time.Time
	)
	for id, e := range c.entries {
		if e.pending != nil {
			continue
		}
		if now.Sub(e.at) >= c.ttl {
			delete(c.entries, id)
			continue
		}
		if oldestId == "" || e.at.Before(oldestAt) {
			oldestId, oldestAt = id, e.at
		}
	}

	if len(c.entries) >= c.max && oldestId != "" {
		delete(c.entries, oldestId)
	}
}

func (c *roleCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
