package incrementalload

import (
	"testing"
	"time"

	"pricelens/internal/common/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_Lifecycle(t *testing.T) {
	src := newFakeSource()
	sessions := NewSessions(func() *Controller[item] {
		return NewController[item](testConfig(), src, nil, logger.NewNoOpLogger())
	}, time.Minute)

	id, ctrl := sessions.Create()
	require.NotNil(t, ctrl)
	assert.Equal(t, 1, sessions.Len())

	got, ok := sessions.Get(id)
	require.True(t, ok)
	assert.Same(t, ctrl, got)

	_, ok = sessions.Get(uuid.New())
	assert.False(t, ok)

	assert.True(t, sessions.Close(id))
	assert.False(t, sessions.Close(id))
	assert.Equal(t, 0, sessions.Len())
}

func TestSessions_SweepIdle(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	sessions := NewSessions(func() *Controller[item] {
		return NewController[item](testConfig(), newFakeSource(), nil, logger.NewNoOpLogger())
	}, time.Minute)
	sessions.now = func() time.Time { return now }

	idle, _ := sessions.Create()
	now = now.Add(45 * time.Second)
	active, _ := sessions.Create()
	now = now.Add(30 * time.Second)

	assert.Equal(t, 1, sessions.Sweep())
	_, ok := sessions.Get(idle)
	assert.False(t, ok)
	_, ok = sessions.Get(active)
	assert.True(t, ok)

	sessions.CloseAll()
	assert.Equal(t, 0, sessions.Len())
}
