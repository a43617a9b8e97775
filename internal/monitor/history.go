package monitor

import "sync"

// DefaultHistorySize is the default number of data points to retain per metric.
const DefaultHistorySize = 60

// History keeps recent readings per server in ring buffers for sparkline
// rendering. Safe for concurrent use.
type History struct {
	mu      sync.RWMutex
	size    int
	servers map[int]*serverHistory
	total   *ringBuffer
}

// serverHistory holds the ring buffers for a single server.
type serverHistory struct {
	cpu     *ringBuffer
	mem     *ringBuffer
	disk    *ringBuffer
	network *ringBuffer // combined up+down bytes/s
}

// ringBuffer is a fixed-size circular buffer for float64 values.
type ringBuffer struct {
	data  []float64
	head  int
	count int
	size  int
}

// NewHistory creates a history tracker with the given buffer size.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{
		size:    size,
		servers: make(map[int]*serverHistory),
		total:   newRingBuffer(size),
	}
}

// Push records a server's readings. Only StatusOK entries carry readings;
// anything else is ignored.
func (h *History) Push(s ServerSnapshot) {
	if s.Status != StatusOK {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	hist := h.getOrCreate(s.ID)
	hist.cpu.push(s.CPUPercent)
	hist.mem.push(s.MemPercent)
	hist.disk.push(s.DiskPercent)
	hist.network.push(s.Rates.Total())
}

// PushTotal records the combined throughput of all servers.
func (h *History) PushTotal(bps float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.total.push(bps)
}

// CPU returns up to count CPU percentages for a server, oldest first.
func (h *History) CPU(id, count int) []float64 {
	return h.get(id, count, func(s *serverHistory) *ringBuffer { return s.cpu })
}

// Memory returns up to count memory percentages for a server, oldest first.
func (h *History) Memory(id, count int) []float64 {
	return h.get(id, count, func(s *serverHistory) *ringBuffer { return s.mem })
}

// Disk returns up to count disk percentages for a server, oldest first.
func (h *History) Disk(id, count int) []float64 {
	return h.get(id, count, func(s *serverHistory) *ringBuffer { return s.disk })
}

// Network returns up to count throughput values for a server, oldest first.
func (h *History) Network(id, count int) []float64 {
	return h.get(id, count, func(s *serverHistory) *ringBuffer { return s.network })
}

// Total returns up to count combined throughput values, oldest first.
func (h *History) Total(count int) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total.getLast(count)
}

func (h *History) get(id, count int, pick func(*serverHistory) *ringBuffer) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	hist, ok := h.servers[id]
	if !ok {
		return nil
	}
	return pick(hist).getLast(count)
}

// Count returns the number of samples stored for a server.
func (h *History) Count(id int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	hist, ok := h.servers[id]
	if !ok {
		return 0
	}
	return hist.cpu.count
}

// Retain drops history for every server not in ids.
func (h *History) Retain(ids []int) {
	keep := make(map[int]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.servers {
		if !keep[id] {
			delete(h.servers, id)
		}
	}
}

// ClearAll removes all history.
func (h *History) ClearAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.servers = make(map[int]*serverHistory)
	h.total = newRingBuffer(h.size)
}

// getOrCreate returns the history for a server, creating it if needed.
// Must be called with h.mu held.
func (h *History) getOrCreate(id int) *serverHistory {
	hist, ok := h.servers[id]
	if !ok {
		hist = &serverHistory{
			cpu:     newRingBuffer(h.size),
			mem:     newRingBuffer(h.size),
			disk:    newRingBuffer(h.size),
			network: newRingBuffer(h.size),
		}
		h.servers[id] = hist
	}
	return hist
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{
		data: make([]float64, size),
		size: size,
	}
}

func (r *ringBuffer) push(value float64) {
	r.data[r.head] = value
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// getLast returns the last count values in chronological order (oldest first).
func (r *ringBuffer) getLast(count int) []float64 {
	if count <= 0 || r.count == 0 {
		return nil
	}
	if count > r.count {
		count = r.count
	}

	result := make([]float64, count)
	// head is the next write position, so the newest value is at head-1.
	start := (r.head - count + r.size) % r.size
	for i := 0; i < count; i++ {
		result[i] = r.data[(start+i)%r.size]
	}
	return result
}
