package utils

import (
	"context"
	"sync"
	"time"
)

const stateKeyPrefix = "oauth:state:"

var (
	localStates   = map[string]time.Time{}
	localStatesMu sync.Mutex
)

// SaveState records an OAuth login state for single use within ttl.
// Redis keeps states consistent across instances; the in-memory map is
// the single-instance fallback when redis is down.
func SaveState(state string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if rc.Set(ctx, stateKeyPrefix+state, "1", ttl).Err() == nil {
			return
		}
	}
	localStatesMu.Lock()
	localStates[state] = time.Now().Add(ttl)
	localStatesMu.Unlock()
}

// ConsumeState checks and burns a state in one step so a replayed
// OAuth callback fails.
func ConsumeState(state string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if v, err := rc.GetDel(ctx, stateKeyPrefix+state).Result(); err == nil {
			return v != ""
		}
	}
	localStatesMu.Lock()
	expires, ok := localStates[state]
	if ok {
		delete(localStates, state)
	}
	localStatesMu.Unlock()
	return ok && time.Now().Before(expires)
}
