package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCircularBuffer_FIFOOrder(t *testing.T) {
	buf := NewCircularBuffer[int](3)

	buf.Add(1)
	buf.Add(2)
	assert.Equal(t, []int{1, 2}, buf.Items())
	assert.Equal(t, 2, buf.Size())
}

func TestCircularBuffer_EvictsOldest(t *testing.T) {
	buf := NewCircularBuffer[int](3)

	for i := 1; i <= 5; i++ {
		buf.Add(i)
	}

	assert.Equal(t, []int{3, 4, 5}, buf.Items())
	assert.Equal(t, 3, buf.Size())
}

func TestCircularBuffer_Clear(t *testing.T) {
	buf := NewCircularBuffer[string](2)
	buf.Add("a")
	buf.Add("b")

	buf.Clear()

	assert.Equal(t, 0, buf.Size())
	assert.Empty(t, buf.Items())
}

func TestCircularBuffer_InvalidCapacityUsesDefault(t *testing.T) {
	buf := NewCircularBuffer[int](0)
	assert.Equal(t, 100, buf.capacity)
}
