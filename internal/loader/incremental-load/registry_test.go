package incrementalload

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AbortAll(t *testing.T) {
	r := NewRegistry()
	ctx1, release1 := r.Register(context.Background(), ClassFirstPage, 0)
	ctx2, _ := r.Register(context.Background(), ClassPrefetch, time.Minute)
	assert.Equal(t, 2, r.Len())

	assert.Equal(t, 2, r.AbortAll("test"))
	assert.Equal(t, 0, r.Len())
	assert.ErrorIs(t, ctx1.Err(), context.Canceled)
	assert.ErrorIs(t, ctx2.Err(), context.Canceled)

	release1()
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_AbortClass(t *testing.T) {
	r := NewRegistry()
	first, _ := r.Register(context.Background(), ClassFirstPage, 0)
	prefetch, _ := r.Register(context.Background(), ClassPrefetch, 0)

	assert.Equal(t, 1, r.AbortClass(ClassPrefetch, "test"))
	assert.NoError(t, first.Err())
	assert.Error(t, prefetch.Err())
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_ReleaseRemoves(t *testing.T) {
	r := NewRegistry()
	ctx, release := r.Register(context.Background(), ClassPage, 0)
	release()
	assert.Equal(t, 0, r.Len())
	assert.Error(t, ctx.Err())
	assert.Equal(t, 0, r.AbortAll("test"))
}

func TestRegistry_Timeout(t *testing.T) {
	r := NewRegistry()
	ctx, release := r.Register(context.Background(), ClassPrefetch, 5*time.Millisecond)
	defer release()

	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
}

func TestDebouncer_LastWriteWins(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var fired atomic.Int32
	var last atomic.Value

	for _, q := range []string{"a", "ab", "abc"} {
		q := q
		d.Schedule(func() {
			fired.Add(1)
			last.Store(q)
		})
	}
	assert.True(t, d.Pending())

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
	assert.Equal(t, "abc", last.Load())
	assert.False(t, d.Pending())
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var fired atomic.Int32
	d.Schedule(func() { fired.Add(1) })
	d.Cancel()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
	assert.False(t, d.Pending())
}
