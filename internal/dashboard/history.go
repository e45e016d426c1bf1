package dashboard

import (
	"time"

	"github.com/perfdash/perfdash/internal/metrics"
)

// DefaultHistorySize is the number of samples kept per series.
const DefaultHistorySize = 60

// History keeps recent CPU and memory samples for the overview sparklines.
// It is only touched from the Bubble Tea event loop and needs no locking.
type History struct {
	cpu *ringBuffer
	mem *ringBuffer

	lastNet  metrics.NetworkStats
	lastTime time.Time
	rxRate   float64
	txRate   float64
}

type ringBuffer struct {
	data  []float64
	head  int
	count int
	size  int
}

// NewHistory creates a history holding size samples per series.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{cpu: newRingBuffer(size), mem: newRingBuffer(size)}
}

// Push records a snapshot. Network rates are derived from the byte counters
// of consecutive snapshots.
func (h *History) Push(s metrics.Snapshot) {
	h.cpu.push(s.CPU.Percent)
	h.mem.push(s.Memory.Percent)

	if !h.lastTime.IsZero() && s.Timestamp.After(h.lastTime) {
		secs := s.Timestamp.Sub(h.lastTime).Seconds()
		h.rxRate = counterRate(h.lastNet.BytesRecv, s.Network.BytesRecv, secs)
		h.txRate = counterRate(h.lastNet.BytesSent, s.Network.BytesSent, secs)
	}
	h.lastNet = s.Network
	h.lastTime = s.Timestamp
}

// counterRate is zero when the counter went backwards (reset or wrap).
func counterRate(prev, cur uint64, secs float64) float64 {
	if cur < prev || secs <= 0 {
		return 0
	}
	return float64(cur-prev) / secs
}

// CPU returns up to count CPU samples, oldest first.
func (h *History) CPU(count int) []float64 {
	return h.cpu.getLast(count)
}

// Memory returns up to count memory samples, oldest first.
func (h *History) Memory(count int) []float64 {
	return h.mem.getLast(count)
}

// NetworkRates returns receive and transmit bytes per second.
func (h *History) NetworkRates() (rx, tx float64) {
	return h.rxRate, h.txRate
}

// Len returns the number of CPU samples stored.
func (h *History) Len() int {
	return h.cpu.count
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{data: make([]float64, size), size: size}
}

func (r *ringBuffer) push(value float64) {
	r.data[r.head] = value
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// getLast returns the last count values in chronological order.
func (r *ringBuffer) getLast(count int) []float64 {
	if count <= 0 || r.count == 0 {
		return nil
	}
	if count > r.count {
		count = r.count
	}

	result := make([]float64, count)
	// head is the next write position; the newest value sits at head-1.
	start := (r.head - count + r.size) % r.size
	for i := 0; i < count; i++ {
		result[i] = r.data[(start+i)%r.size]
	}
	return result
}
