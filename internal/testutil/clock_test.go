package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

func TestFakeClock_NowStandsStill(t *testing.T) {
	clock := NewFakeClock(epoch)
	assert.Equal(t, epoch, clock.Now())
	assert.Equal(t, epoch, clock.Now())

	clock.Advance(time.Minute)
	assert.Equal(t, epoch.Add(time.Minute), clock.Now())
}

func TestFakeClock_AfterFiresOnAdvance(t *testing.T) {
	clock := NewFakeClock(epoch)
	ch := clock.After(10 * time.Second)
	require.Equal(t, 1, clock.PendingCount())

	clock.Advance(9 * time.Second)
	select {
	case <-ch:
		t.Fatal("fired before deadline")
	default:
	}

	clock.Advance(time.Second)
	select {
	case got := <-ch:
		assert.Equal(t, epoch.Add(10*time.Second), got)
	default:
		t.Fatal("did not fire at deadline")
	}
	assert.Zero(t, clock.PendingCount())
}

func TestFakeClock_AfterNonPositiveFiresImmediately(t *testing.T) {
	clock := NewFakeClock(epoch)
	select {
	case <-clock.After(0):
	default:
		t.Fatal("After(0) should fire immediately")
	}
	assert.Zero(t, clock.PendingCount())
}

func TestFakeClock_WaitForTimers(t *testing.T) {
	clock := NewFakeClock(epoch)
	done := make(chan struct{})
	go func() {
		<-clock.After(time.Minute)
		close(done)
	}()

	clock.WaitForTimers(1)
	clock.Advance(time.Minute)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sleeper was not woken")
	}
}
