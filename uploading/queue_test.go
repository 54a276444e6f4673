package uploading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueAddDeduplicates(t *testing.T) {
	var q Queue

	assert.True(t, q.Add("/sd/a.avi"))
	assert.True(t, q.Add("/sd/b.avi"))
	assert.False(t, q.Add("/sd/a.avi"), "re-adding a queued path is a no-op")

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, []string{"/sd/a.avi", "/sd/b.avi"}, q.Paths())
}

func TestQueueFIFOOrder(t *testing.T) {
	var q Queue
	q.Add("/sd/a.avi")
	q.Add("/sd/b.avi")
	q.Add("/sd/c.avi")

	head, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, "/sd/a.avi", head)
	assert.Equal(t, 3, q.Len(), "peek does not remove")

	popped, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "/sd/a.avi", popped)

	popped, _ = q.Pop()
	assert.Equal(t, "/sd/b.avi", popped)
	popped, _ = q.Pop()
	assert.Equal(t, "/sd/c.avi", popped)

	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestQueueRemove(t *testing.T) {
	var q Queue
	q.Add("/sd/a.avi")
	q.Add("/sd/b.avi")
	q.Add("/sd/c.avi")

	assert.True(t, q.Remove("/sd/b.avi"))
	assert.False(t, q.Remove("/sd/b.avi"))
	assert.False(t, q.Contains("/sd/b.avi"))
	assert.Equal(t, []string{"/sd/a.avi", "/sd/c.avi"}, q.Paths())
}

func TestQueuePeekEmpty(t *testing.T) {
	var q Queue

	_, ok := q.Peek()
	assert.False(t, ok)
	assert.Zero(t, q.Len())
}

func TestQueueClear(t *testing.T) {
	var q Queue
	q.Add("/sd/a.avi")
	q.Add("/sd/b.avi")

	q.Clear()

	assert.Zero(t, q.Len())
	assert.True(t, q.Add("/sd/a.avi"), "cleared paths can be re-added")
}

func TestQueuePathsReturnsCopy(t *testing.T) {
	var q Queue
	q.Add("/sd/a.avi")

	paths := q.Paths()
	paths[0] = "/sd/mutated.avi"

	head, _ := q.Peek()
	assert.Equal(t, "/sd/a.avi", head)
}
