package audit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferFIFO(t *testing.T) {
	b := NewBuffer(4)
	b.Push(Event{Action: ActionProjectCreated})
	b.Push(Event{Action: ActionMemberAdded})
	b.Push(Event{Action: ActionTaskCreated})

	batch := b.PopBatch(2)
	require.Len(t, batch, 2)
	assert.Equal(t, ActionProjectCreated, batch[0].Action)
	assert.Equal(t, ActionMemberAdded, batch[1].Action)
	assert.Equal(t, 1, b.Len())

	batch = b.PopBatch(10)
	require.Len(t, batch, 1)
	assert.Equal(t, ActionTaskCreated, batch[0].Action)
	assert.Nil(t, b.PopBatch(1))
}

func TestBufferEvictsOldestWhenFull(t *testing.T) {
	b := NewBuffer(2)
	assert.False(t, b.Push(Event{Action: ActionProjectCreated}))
	assert.False(t, b.Push(Event{Action: ActionProjectUpdated}))
	assert.True(t, b.Push(Event{Action: ActionProjectDeleted}))

	assert.Equal(t, int64(1), b.Dropped())
	batch := b.PopBatch(2)
	require.Len(t, batch, 2)
	assert.Equal(t, ActionProjectUpdated, batch[0].Action)
	assert.Equal(t, ActionProjectDeleted, batch[1].Action)
}

func TestBufferDefaultCapacity(t *testing.T) {
	b := NewBuffer(0)
	assert.Equal(t, defaultBufferSize, b.capacity)
}

func TestBufferConcurrentPush(t *testing.T) {
	b := NewBuffer(1000)
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				b.Push(Event{Action: ActionCommentAdded})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 500, b.Len())
	assert.Zero(t, b.Dropped())
}
