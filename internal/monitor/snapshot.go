package monitor

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Placeholder values shown instead of readings.
const (
	PlaceholderWaiting = "waiting for data"
	PlaceholderFailed  = "fetch failed"
	PlaceholderNoData  = "no data"
)

const bytesPerGB = 1024 * 1024 * 1024

// ServerStatus classifies a server's values in a snapshot.
type ServerStatus string

const (
	StatusWaiting ServerStatus = "waiting"
	StatusOK      ServerStatus = "ok"
	StatusNoData  ServerStatus = "no_data"
	StatusFailed  ServerStatus = "failed"
)

// ServerSnapshot holds the formatted values for one tracked server.
type ServerSnapshot struct {
	ID     int          `json:"id"`
	Name   string       `json:"name,omitempty"`
	Status ServerStatus `json:"status"`

	CPU     string `json:"cpu"`
	Memory  string `json:"memory"`
	Disk    string `json:"disk"`
	Network string `json:"network"`

	// Error is a one-line reason when Status is StatusFailed or StatusNoData.
	Error string `json:"error,omitempty"`

	// Numeric readings behind the strings, for graphs and sorting. Zero
	// unless Status is StatusOK.
	CPUPercent  float64 `json:"-"`
	MemPercent  float64 `json:"-"`
	DiskPercent float64 `json:"-"`
	Rates       Rates   `json:"-"`
}

// Snapshot is the output of one poll cycle.
type Snapshot struct {
	Servers      []ServerSnapshot `json:"servers"`
	TotalNetwork string           `json:"total_network"`
	TotalRates   Rates            `json:"-"`
	UpdatedAt    time.Time        `json:"updated_at"`

	// Cycle counts completed poll cycles; 0 means never polled.
	Cycle int `json:"cycle"`
}

// WaitingSnapshot returns the snapshot shown before the first poll.
func WaitingSnapshot(ids []int) Snapshot {
	snap := Snapshot{
		Servers:      make([]ServerSnapshot, len(ids)),
		TotalNetwork: PlaceholderWaiting,
	}
	for i, id := range ids {
		snap.Servers[i] = placeholderServer(id, StatusWaiting, PlaceholderWaiting, "")
	}
	return snap
}

func placeholderServer(id int, status ServerStatus, value, reason string) ServerSnapshot {
	return ServerSnapshot{
		ID:      id,
		Status:  status,
		CPU:     value,
		Memory:  value,
		Disk:    value,
		Network: value,
		Error:   reason,
	}
}

// Failed returns a copy with every value, including the total, set to
// "fetch failed".
func (s Snapshot) Failed(reason string) Snapshot {
	out := Snapshot{
		Servers:      make([]ServerSnapshot, len(s.Servers)),
		TotalNetwork: PlaceholderFailed,
		UpdatedAt:    s.UpdatedAt,
		Cycle:        s.Cycle,
	}
	for i, srv := range s.Servers {
		out.Servers[i] = placeholderServer(srv.ID, StatusFailed, PlaceholderFailed, reason)
		out.Servers[i].Name = srv.Name
	}
	return out
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Servers = append([]ServerSnapshot(nil), s.Servers...)
	return out
}

// IDs returns the server IDs in display order.
func (s Snapshot) IDs() []int {
	ids := make([]int, len(s.Servers))
	for i, srv := range s.Servers {
		ids[i] = srv.ID
	}
	return ids
}

// Reached reports whether the dashboard answered for at least one server,
// with readings or without.
func (s Snapshot) Reached() bool {
	for _, srv := range s.Servers {
		if srv.Status == StatusOK || srv.Status == StatusNoData {
			return true
		}
	}
	return false
}

// IsPlaceholder reports whether v is one of the placeholder values.
func IsPlaceholder(v string) bool {
	switch v {
	case PlaceholderWaiting, PlaceholderFailed, PlaceholderNoData:
		return true
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// formatNumber rounds to two decimals and prints the shortest form, so 0.5
// stays "0.5" and 3 stays "3".
func formatNumber(v float64) string {
	r := round2(v)
	if r == 0 {
		r = 0 // normalize -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// usagePercent is used/total*100, or 0 when total is not positive.
func usagePercent(used, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return round2(used / total * 100)
}

// FormatCPU renders a CPU reading, e.g. "12.35%".
func FormatCPU(cpu float64) string {
	return formatNumber(cpu) + "%"
}

// FormatUsage renders a memory or disk reading, e.g. "25% (1GB)".
func FormatUsage(used, total float64) string {
	return fmt.Sprintf("%s%% (%sGB)", formatNumber(usagePercent(used, total)), formatNumber(used/bytesPerGB))
}

// FormatNetwork renders combined throughput, e.g. "↑↓: 2.93 KB/s".
func FormatNetwork(r Rates) string {
	return "↑↓: " + FormatRate(r.Total())
}
