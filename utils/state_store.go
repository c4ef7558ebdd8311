package utils

import (
	"context"
	"sync"
	"time"
)

var (
	oauthStates  = map[string]time.Time{}
	oauthStateMu sync.Mutex
)

// SaveState stores an OAuth state token with a TTL to mitigate CSRF on the
// callback. Redis keeps states consistent across instances; the in-memory
// map covers single-instance deployments.
func SaveState(state string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rc.Set(ctx, "oauth:state:"+state, "1", ttl).Err()
		return
	}
	oauthStateMu.Lock()
	oauthStates[state] = time.Now().Add(ttl)
	oauthStateMu.Unlock()
}

// ConsumeState validates a state token and removes it so it is single-use.
func ConsumeState(state string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		v, err := rc.GetDel(ctx, "oauth:state:"+state).Result()
		if err != nil {
			return false
		}
		return v != ""
	}

	oauthStateMu.Lock()
	expiresAt, ok := oauthStates[state]
	if ok {
		delete(oauthStates, state)
	}
	oauthStateMu.Unlock()
	return ok && time.Now().Before(expiresAt)
}
