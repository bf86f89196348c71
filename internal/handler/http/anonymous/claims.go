package anonymous

import (
	"sync"

	"jules-backend/internal/domain/entity"
)

// inflight tracks gated requests that passed the quota check but are not
// counted yet. Entries live only while a request on the session holds one.
type inflight struct {
	mu       sync.Mutex
	sessions map[string]*claim
}

// claim is the per-session state. mu serializes check-and-claim against
// count-and-release for one session.
type claim struct {
	mu      sync.Mutex
	refs    int
	pending entity.UsageCounts
}

func (f *inflight) acquire(sessionID string) *claim {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessions == nil {
		f.sessions = make(map[string]*claim)
	}
	c := f.sessions[sessionID]
	if c == nil {
		c = &claim{}
		f.sessions[sessionID] = c
	}
	c.refs++
	return c
}

func (f *inflight) release(sessionID string, c *claim) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.refs--
	if c.refs == 0 {
		delete(f.sessions, sessionID)
	}
}

func (f *inflight) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

// take adds one pending use of each feature. Callers hold c.mu.
func (c *claim) take(features []entity.Feature) {
	for _, ft := range features {
		c.pending.Set(ft, c.pending.Get(ft)+1)
	}
}

// give returns the pending uses taken by take. Callers hold c.mu.
func (c *claim) give(features []entity.Feature) {
	for _, ft := range features {
		c.pending.Set(ft, c.pending.Get(ft)-1)
	}
}
