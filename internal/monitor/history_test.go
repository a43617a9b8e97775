package monitor

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okServer(id int, cpu float64) ServerSnapshot {
	return ServerSnapshot{
		ID:          id,
		Status:      StatusOK,
		CPUPercent:  cpu,
		MemPercent:  cpu / 2,
		DiskPercent: 10,
		Rates:       Rates{UploadBps: 100, DownloadBps: 50},
	}
}

func TestNewHistory(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		expected int
	}{
		{"default size", 0, DefaultHistorySize},
		{"negative size", -1, DefaultHistorySize},
		{"custom size", 100, 100},
		{"small size", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHistory(tt.size)
			assert.Equal(t, tt.expected, h.size)
			assert.NotNil(t, h.servers)
		})
	}
}

func TestHistoryPush(t *testing.T) {
	h := NewHistory(10)

	h.Push(okServer(1, 50))
	assert.Equal(t, 1, h.Count(1))
	assert.Equal(t, []float64{50}, h.CPU(1, 10))
	assert.Equal(t, []float64{25}, h.Memory(1, 10))
	assert.Equal(t, []float64{10}, h.Disk(1, 10))
	assert.Equal(t, []float64{150}, h.Network(1, 10))

	// Placeholder entries carry no readings.
	h.Push(ServerSnapshot{ID: 1, Status: StatusFailed})
	h.Push(ServerSnapshot{ID: 2, Status: StatusNoData})
	assert.Equal(t, 1, h.Count(1))
	assert.Equal(t, 0, h.Count(2))
	assert.Nil(t, h.CPU(2, 10))
}

func TestHistoryPushMultiple(t *testing.T) {
	h := NewHistory(10)
	for i := 0; i < 5; i++ {
		h.Push(okServer(1, float64(i*10)))
	}

	assert.Equal(t, 5, h.Count(1))
	assert.Equal(t, []float64{0, 10, 20, 30, 40}, h.CPU(1, 5))
	assert.Equal(t, []float64{30, 40}, h.CPU(1, 2))
}

func TestHistoryRingBufferOverflow(t *testing.T) {
	h := NewHistory(5)
	for i := 0; i < 8; i++ {
		h.Push(okServer(1, float64(i)))
	}

	assert.Equal(t, 5, h.Count(1))
	// Oldest values were overwritten.
	assert.Equal(t, []float64{3, 4, 5, 6, 7}, h.CPU(1, 10))
}

func TestHistoryTotal(t *testing.T) {
	h := NewHistory(3)
	for _, v := range []float64{1, 2, 3, 4} {
		h.PushTotal(v)
	}
	assert.Equal(t, []float64{2, 3, 4}, h.Total(10))
	assert.Nil(t, h.Total(0))
}

func TestHistoryRetain(t *testing.T) {
	h := NewHistory(5)
	h.Push(okServer(1, 1))
	h.Push(okServer(2, 2))
	h.Push(okServer(3, 3))

	h.Retain([]int{2, 3})
	assert.Equal(t, 0, h.Count(1))
	assert.Equal(t, 1, h.Count(2))
	assert.Equal(t, 1, h.Count(3))
}

func TestHistoryClearAll(t *testing.T) {
	h := NewHistory(5)
	h.Push(okServer(1, 1))
	h.PushTotal(10)

	h.ClearAll()
	assert.Equal(t, 0, h.Count(1))
	assert.Nil(t, h.Total(5))
}

func TestHistoryConcurrentAccess(t *testing.T) {
	h := NewHistory(100)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h.Push(okServer(id, float64(j)))
				h.PushTotal(float64(j))
			}
		}(i)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = h.CPU(id, 10)
				_ = h.Total(10)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		assert.Equal(t, 50, h.Count(i))
	}
}

func TestRingBufferGetLast(t *testing.T) {
	r := newRingBuffer(4)
	assert.Nil(t, r.getLast(2))

	r.push(1)
	r.push(2)
	require.Equal(t, []float64{1, 2}, r.getLast(5))
	assert.Nil(t, r.getLast(0))
	assert.Nil(t, r.getLast(-1))

	r.push(3)
	r.push(4)
	r.push(5)
	assert.Equal(t, []float64{2, 3, 4, 5}, r.getLast(4))
	assert.Equal(t, []float64{5}, r.getLast(1))
}
