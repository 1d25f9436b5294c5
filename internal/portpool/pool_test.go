package portpool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsInvalidRange(t *testing.T) {
	_, err := New(80, 90)
	require.Error(t, err)

	_, err = New(5000, 4000)
	require.Error(t, err)

	_, err = New(60000, 70000)
	require.Error(t, err)
}

func TestAllocate_IsIdempotentAndLowestFirst(t *testing.T) {
	p, err := New(4000, 4002)
	require.NoError(t, err)

	port, ok := p.Allocate("a")
	require.True(t, ok)
	assert.Equal(t, 4000, port)

	again, ok := p.Allocate("a")
	require.True(t, ok)
	assert.Equal(t, port, again)

	port2, ok := p.Allocate("b")
	require.True(t, ok)
	assert.Equal(t, 4001, port2)
}

func TestAllocate_ExhaustedRangeReturnsFalse(t *testing.T) {
	p, err := New(4000, 4000)
	require.NoError(t, err)

	_, ok := p.Allocate("a")
	require.True(t, ok)

	_, ok = p.Allocate("b")
	assert.False(t, ok)
}

func TestRelease_HonorsReuseCooldown(t *testing.T) {
	p, err := New(4000, 4000)
	require.NoError(t, err)

	fakeNow := time.Now()
	p.now = func() time.Time { return fakeNow }

	port, ok := p.Allocate("a")
	require.True(t, ok)
	p.Release("a")

	_, ok = p.Allocate("b")
	assert.False(t, ok, "port must not be reallocated before the cooldown elapses")

	fakeNow = fakeNow.Add(ReuseCooldown + time.Millisecond)

	got, ok := p.Allocate("b")
	require.True(t, ok)
	assert.Equal(t, port, got)
}

func TestIsAvailable(t *testing.T) {
	p, err := New(4000, 4001)
	require.NoError(t, err)

	assert.True(t, p.IsAvailable(4000))
	_, _ = p.Allocate("a")
	assert.False(t, p.IsAvailable(4000))
}

func TestStats(t *testing.T) {
	p, err := New(4000, 4004)
	require.NoError(t, err)

	_, _ = p.Allocate("a")
	_, _ = p.Allocate("b")

	s := p.Stats()
	assert.Equal(t, 2, s.Allocated)
	assert.Equal(t, 3, s.Free)
}
