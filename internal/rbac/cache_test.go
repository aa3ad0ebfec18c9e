package rbac

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCacheHitSkipsCompute(t *testing.T) {
	c := NewCache(time.Minute)
	var calls atomic.Int32
	compute := func(ctx context.Context) (*Entry, error) {
		calls.Add(1)
		return NewEntry(RoleSupport, time.Now()), nil
	}

	for i := 0; i < 3; i++ {
		e, err := c.GetOrCompute(context.Background(), "u1", compute)
		require.NoError(t, err)
		assert.Equal(t, RoleSupport, e.Role)
	}
	assert.EqualValues(t, 1, calls.Load())

	stats := c.Stats()
	assert.EqualValues(t, 2, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestCacheEntriesExpire(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache(time.Minute)
	c.now = fixedClock(now)

	_, err := c.GetOrCompute(context.Background(), "u1", func(ctx context.Context) (*Entry, error) {
		return NewEntry(RoleAdmin, now), nil
	})
	require.NoError(t, err)
	_, ok := c.Get("u1")
	assert.True(t, ok)

	c.now = fixedClock(now.Add(time.Minute))
	_, ok = c.Get("u1")
	assert.False(t, ok)
}

func TestCacheClampsEarlyExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewCache(time.Hour)
	c.now = fixedClock(now)

	e, err := c.GetOrCompute(context.Background(), "u1", func(ctx context.Context) (*Entry, error) {
		entry := NewEntry(RoleNone, now)
		entry.ExpiresAt = now.Add(10 * time.Minute)
		return entry, nil
	})
	require.NoError(t, err)
	assert.Equal(t, now.Add(10*time.Minute), e.ExpiresAt)

	e, err = c.GetOrCompute(context.Background(), "u2", func(ctx context.Context) (*Entry, error) {
		entry := NewEntry(RoleNone, now)
		entry.ExpiresAt = now.Add(48 * time.Hour)
		return entry, nil
	})
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), e.ExpiresAt)
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	c := NewCache(time.Minute)
	boom := errors.New("boom")

	_, err := c.GetOrCompute(context.Background(), "u1", func(ctx context.Context) (*Entry, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestInvalidateDuringComputeDiscardsResult(t *testing.T) {
	c := NewCache(time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan *Entry)
	go func() {
		e, _ := c.GetOrCompute(context.Background(), "u1", func(ctx context.Context) (*Entry, error) {
			close(started)
			<-release
			return NewEntry(RoleAdmin, time.Now()), nil
		})
		done <- e
	}()

	<-started
	c.Invalidate("u1")
	close(release)
	stale := <-done
	assert.Equal(t, RoleAdmin, stale.Role)

	// the stale computation must not have been stored
	_, ok := c.Get("u1")
	assert.False(t, ok)

	fresh, err := c.GetOrCompute(context.Background(), "u1", func(ctx context.Context) (*Entry, error) {
		return NewEntry(RoleSupport, time.Now()), nil
	})
	require.NoError(t, err)
	assert.Equal(t, RoleSupport, fresh.Role)
}

func TestFlushDuringComputeDiscardsResult(t *testing.T) {
	c := NewCache(time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		_, _ = c.GetOrCompute(context.Background(), "u1", func(ctx context.Context) (*Entry, error) {
			close(started)
			<-release
			return NewEntry(RoleAdmin, time.Now()), nil
		})
		close(finished)
	}()

	<-started
	c.Flush()
	close(release)
	<-finished

	assert.Equal(t, 0, c.Len())
}

func TestConcurrentMissesShareOneCompute(t *testing.T) {
	c := NewCache(time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := c.GetOrCompute(context.Background(), "u1", func(ctx context.Context) (*Entry, error) {
				calls.Add(1)
				<-release
				return NewEntry(RoleManager, time.Now()), nil
			})
			assert.NoError(t, err)
			assert.Equal(t, RoleManager, e.Role)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int32(10))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
	assert.Equal(t, 1, c.Len())
}

func TestCallerCancellationDoesNotAbortSharedCompute(t *testing.T) {
	c := NewCache(time.Minute)
	release := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error)
	go func() {
		_, err := c.GetOrCompute(ctx, "u1", func(ctx context.Context) (*Entry, error) {
			<-release
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return NewEntry(RoleSupport, time.Now()), nil
		})
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	close(release)
	assert.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 5*time.Millisecond)
}
