package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewMicroBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, b.TryAcquire())
		b.OnFailure()
	}

	assert.False(t, b.TryAcquire(), "breaker should be open after threshold failures")
}

func TestBreakerAdmitsSingleProbeAfterCooldown(t *testing.T) {
	b := NewMicroBreaker(1, 10*time.Millisecond)

	assert.True(t, b.TryAcquire())
	b.OnFailure()
	assert.False(t, b.TryAcquire())

	time.Sleep(20 * time.Millisecond)

	assert.True(t, b.TryAcquire(), "cooldown elapsed, one probe admitted")
	assert.False(t, b.TryAcquire(), "only one probe at a time")

	b.OnSuccess()
	assert.True(t, b.TryAcquire(), "successful probe closes the breaker")
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b := NewMicroBreaker(1, 10*time.Millisecond)

	b.TryAcquire()
	b.OnFailure()
	time.Sleep(20 * time.Millisecond)

	assert.True(t, b.TryAcquire())
	b.OnFailure()

	assert.False(t, b.TryAcquire(), "failed probe reopens the breaker")
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewMicroBreaker(2, time.Minute)

	b.TryAcquire()
	b.OnFailure()
	b.TryAcquire()
	b.OnSuccess()
	b.TryAcquire()
	b.OnFailure()

	assert.True(t, b.TryAcquire(), "success resets the consecutive failure count")
}
