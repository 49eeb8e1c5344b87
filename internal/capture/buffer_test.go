package capture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuffer_DropsOldestOnOverflow(t *testing.T) {
	b := NewBuffer(3)

	for i := 1; i <= 3; i++ {
		b.Push(&Frame{Sequence: uint64(i)})
	}
	stats := b.Stats()
	assert.Equal(t, 3, stats.Queued)
	assert.Equal(t, uint64(0), stats.Dropped)

	// Overflow: pushing a 4th frame drops the oldest (sequence 1).
	b.Push(&Frame{Sequence: 4})
	stats = b.Stats()
	assert.Equal(t, 3, stats.Queued)
	assert.Equal(t, uint64(1), stats.Dropped)

	f, ok := b.Pop(50 * time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, uint64(2), f.Sequence, "oldest retained frame should be sequence 2")
}

func TestBuffer_PopTimesOutWhenEmpty(t *testing.T) {
	b := NewBuffer(2)
	_, ok := b.Pop(20 * time.Millisecond)
	assert.False(t, ok)
}

func TestBuffer_ProducedCounterTracksAllPushes(t *testing.T) {
	b := NewBuffer(1)
	b.Push(&Frame{Sequence: 1})
	b.Push(&Frame{Sequence: 2})
	b.Push(&Frame{Sequence: 3})

	stats := b.Stats()
	assert.Equal(t, uint64(3), stats.Produced)
	assert.Equal(t, uint64(2), stats.Dropped)
}
