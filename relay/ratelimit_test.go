package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsUpToMax(t *testing.T) {
	rl := NewRateLimiter(3)
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("tok"), "request %d should be allowed", i)
	}
	assert.False(t, rl.Allow("tok"), "request beyond the cap must be rejected")
}

func TestRateLimiterTracksTokensIndependently(t *testing.T) {
	rl := NewRateLimiter(1)
	assert.True(t, rl.Allow("tok-a"))
	assert.True(t, rl.Allow("tok-b"))
	assert.False(t, rl.Allow("tok-a"))
}

func TestRateLimiterResetsAfterWindow(t *testing.T) {
	rl := NewRateLimiter(1)
	assert.True(t, rl.Allow("tok"))
	assert.False(t, rl.Allow("tok"))

	rl.mu.Lock()
	rl.entries["tok"].startedAt = time.Now().Add(-2 * time.Hour)
	rl.mu.Unlock()

	assert.True(t, rl.Allow("tok"), "a new window should allow requests again")
}
