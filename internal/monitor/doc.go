// Package monitor turns dashboard replies into the values nzmon displays.
//
// # Key Components
//
//	RateComputer - Derives network throughput from speeds or counter deltas
//	Poller       - Runs one poll cycle over the tracked servers
//	Snapshot     - Formatted values produced by a cycle
//	History      - Ring buffers of recent readings for sparklines
//	Service      - Owns settings, client, poller and the latest snapshot
//
// # Poll Cycle
//
//  1. Every distinct tracked ID is fetched, up to DefaultConcurrency at once
//  2. Replies are applied in display order; counter samples go through the
//     RateComputer so per-server state is only touched from one goroutine
//  3. Each server gets four strings (CPU, memory, disk, network) or a
//     placeholder, and the throughput of all servers is summed into a total
//  4. Readings are pushed to History and the Snapshot replaces the last one
//
// A panic anywhere in a cycle is recovered and every value, including the
// total, reads "fetch failed" until the next cycle.
//
// # Rates
//
// Dashboards that report net_in_speed/net_out_speed are used directly.
// Otherwise cumulative counters are diffed against the previous sample for
// the same server. The first sample for a server reads 0, and a counter that
// goes backwards reads 0 for that cycle and becomes the new baseline.
package monitor
