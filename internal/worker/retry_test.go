package worker

import (
	"context"
	"testing"
	"time"

	"gatisathi/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Second, policy.NextDelay(0))
	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
	assert.Equal(t, 4*time.Second, policy.NextDelay(3))
	assert.Equal(t, 5*time.Second, policy.NextDelay(5))
	assert.Equal(t, 5*time.Second, policy.NextDelay(200))
}

func TestRetryPolicyDefaults(t *testing.T) {
	p := RetryPolicy{}.withDefaults()
	assert.Equal(t, 5, p.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, p.InitialDelay)
	assert.Equal(t, 2.0, p.BackoffFactor)

	assert.Equal(t, time.Second, RetryPolicy{}.NextDelay(1))
}

func TestRetryPolicyFromConfig(t *testing.T) {
	p := RetryPolicyFromConfig(config.EventsConfig{MaxRetries: 3, InitialDelayMS: 250, MaxDelayMS: 2000, BackoffFactor: 3})
	assert.Equal(t, 3, p.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, p.InitialDelay)
	assert.Equal(t, 2*time.Second, p.MaxDelay)
	assert.Equal(t, 750*time.Millisecond, p.NextDelay(2))
}

func TestRetryPolicyWait(t *testing.T) {
	p := RetryPolicy{InitialDelay: time.Millisecond}
	assert.True(t, p.Wait(context.Background(), 1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, RetryPolicy{InitialDelay: time.Hour}.Wait(ctx, 1))
}
