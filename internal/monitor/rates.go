package monitor

import (
	"fmt"
	"sync"

	"github.com/nzmon/nzmon/internal/nezha"
)

// RateMode records how a server's throughput was derived.
type RateMode int

const (
	// RateNone means the reply had neither speeds nor counters.
	RateNone RateMode = iota
	// RateFromSpeed means the dashboard reported speeds directly.
	RateFromSpeed
	// RateFromCounters means the rate came from counter deltas.
	RateFromCounters
)

func (m RateMode) String() string {
	switch m {
	case RateFromSpeed:
		return "speed"
	case RateFromCounters:
		return "counters"
	default:
		return "none"
	}
}

// Sample is one network reading for a server.
type Sample struct {
	HasSpeed  bool
	UpSpeed   float64 // bytes/s outbound
	DownSpeed float64 // bytes/s inbound

	HasCounters bool
	OutBytes    float64 // cumulative bytes sent
	InBytes     float64 // cumulative bytes received

	// TimestampMs is a monotonic millisecond timestamp. Never 0 for a real
	// sample.
	TimestampMs int64
}

// Mode reports which branch Compute takes for s.
func (s Sample) Mode() RateMode {
	switch {
	case s.HasSpeed:
		return RateFromSpeed
	case s.HasCounters:
		return RateFromCounters
	default:
		return RateNone
	}
}

// SampleFromState extracts the network reading from a server state.
func SampleFromState(st *nezha.State, timestampMs int64) Sample {
	s := Sample{TimestampMs: timestampMs}
	if st == nil {
		return s
	}
	s.UpSpeed, s.DownSpeed, s.HasSpeed = st.Speeds()
	s.OutBytes, s.InBytes, s.HasCounters = st.Counters()
	return s
}

// Rates is throughput in bytes per second.
type Rates struct {
	UploadBps   float64
	DownloadBps float64
}

// Total returns upload plus download.
func (r Rates) Total() float64 {
	return r.UploadBps + r.DownloadBps
}

// sampleState is the previous counter reading for one server. lastMs is 0
// until the first counter sample arrives.
type sampleState struct {
	inBytes  float64
	outBytes float64
	lastMs   int64
}

// RateComputer turns network samples into throughput. Counter samples are
// diffed against the previous sample for the same server.
type RateComputer struct {
	mu     sync.Mutex
	states map[int]*sampleState
}

// NewRateComputer creates an empty rate computer.
func NewRateComputer() *RateComputer {
	return &RateComputer{states: make(map[int]*sampleState)}
}

// Compute returns the throughput for serverID.
//
// Reported speeds are used as is and leave the counter state alone. Counters
// are diffed against the previous sample: the first sample, or one whose
// timestamp did not advance, yields 0, and a counter that went backwards
// (agent restart) yields 0 for that direction. The new reading always
// becomes the baseline. A sample with neither yields 0.
func (rc *RateComputer) Compute(serverID int, s Sample) Rates {
	switch s.Mode() {
	case RateFromSpeed:
		return Rates{UploadBps: s.UpSpeed, DownloadBps: s.DownSpeed}
	case RateNone:
		return Rates{}
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()

	st, ok := rc.states[serverID]
	if !ok {
		st = &sampleState{}
		rc.states[serverID] = st
	}

	var r Rates
	if st.lastMs != 0 {
		if elapsed := s.TimestampMs - st.lastMs; elapsed > 0 {
			secs := float64(elapsed) / 1000
			r.UploadBps = clampDelta(s.OutBytes-st.outBytes) / secs
			r.DownloadBps = clampDelta(s.InBytes-st.inBytes) / secs
		}
	}

	st.outBytes = s.OutBytes
	st.inBytes = s.InBytes
	st.lastMs = s.TimestampMs
	return r
}

// clampDelta handles counter resets (negative delta).
func clampDelta(d float64) float64 {
	if d < 0 {
		return 0
	}
	return d
}

// Forget drops the counter state for serverID.
func (rc *RateComputer) Forget(serverID int) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	delete(rc.states, serverID)
}

// Len returns the number of servers with counter state.
func (rc *RateComputer) Len() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.states)
}

var rateUnits = []string{"B/s", "KB/s", "MB/s", "GB/s"}

// FormatRate renders bytes per second with 1024-based units and two
// decimals, e.g. "1.50 MB/s".
func FormatRate(bps float64) string {
	if bps < 0 {
		bps = 0
	}
	unit := 0
	for bps >= 1024 && unit < len(rateUnits)-1 {
		bps /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", bps, rateUnits[unit])
}
