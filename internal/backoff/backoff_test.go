package backoff

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Delay_Doubles(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: time.Minute, MaxAttempts: 4}

	d1, ok := p.Delay(1)
	require.True(t, ok)
	assert.Equal(t, time.Second, d1)

	d2, ok := p.Delay(2)
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, d2)

	d3, ok := p.Delay(3)
	require.True(t, ok)
	assert.Equal(t, 4*time.Second, d3)
}

func TestPolicy_Delay_Capped(t *testing.T) {
	p := Policy{BaseDelay: 10 * time.Second, MaxDelay: 15 * time.Second, MaxAttempts: 5}

	d, ok := p.Delay(3)
	require.True(t, ok)
	assert.Equal(t, 15*time.Second, d)
}

func TestPolicy_Delay_GivesUp(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: time.Minute, MaxAttempts: 3}

	_, ok := p.Delay(4)
	assert.False(t, ok)

	_, ok = p.Delay(0)
	assert.False(t, ok)
}

func TestPolicy_Delay_ZeroAttemptsDisablesRetries(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: time.Minute}

	_, ok := p.Delay(1)
	assert.False(t, ok)
}

func TestSleep_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleep_Elapses(t *testing.T) {
	err := Sleep(context.Background(), time.Millisecond)
	assert.NoError(t, err)
}
